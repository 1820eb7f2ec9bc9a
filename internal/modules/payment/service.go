package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pgstay/internal/domain"
	"pgstay/internal/events"
	"pgstay/internal/metrics"
	"pgstay/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	applyProcessed = "processed"
	applyIgnored   = "ignored"
)

type Config struct {
	Currency      string
	ReturnURL     string
	WebhookSecret string
	// MaxRetries bounds in-request webhook processing retries.
	MaxRetries uint64
	// OrderTTL is how long a pending order is handed back instead of
	// creating a new one.
	OrderTTL time.Duration
}

type Service struct {
	store   *repository.Store
	gateway Gateway
	bus     events.Publisher
	cfg     Config
	log     *logrus.Entry
	now     func() time.Time
	backoff func() backoff.BackOff
}

func NewService(store *repository.Store, gateway Gateway, bus events.Publisher, cfg Config, log *logrus.Entry) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = 30 * time.Minute
	}
	s := &Service{store: store, gateway: gateway, bus: bus, cfg: cfg, log: log, now: time.Now}
	s.backoff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 100 * time.Millisecond
		b.MaxInterval = time.Second
		return backoff.WithMaxRetries(b, s.cfg.MaxRetries)
	}
	return s
}

// CreateOrder registers a payment intent for the tenant's approved booking.
// The pending row is written before the gateway call so a fast webhook
// always finds it. A booking has at most one live pending order: a repeat
// request within OrderTTL gets the same session back, and an older pending
// order is expired before a new one is created. Amount 0 means the full
// payable total.
func (s *Service) CreateOrder(ctx context.Context, tenantID int64, req CreateOrderRequest) (*CreateOrderResponse, error) {
	tenant, err := s.store.Users().GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var (
		order  *domain.PaymentOrder
		reused bool
	)
	err = s.store.WithinTx(ctx, func(tx *repository.Store) error {
		b, err := tx.Bookings().GetByIDForUpdate(ctx, req.BookingID)
		if err != nil {
			return err
		}
		if b.TenantID != tenantID {
			return domain.ErrNotFound
		}
		if b.PaymentStatus == domain.PaymentPaid {
			return fmt.Errorf("%w: booking is already paid", domain.ErrConflict)
		}
		if b.Status != domain.BookingApproved {
			return fmt.Errorf("%w: booking is not approved", domain.ErrPreconditionFailed)
		}

		total := b.PayableTotal()
		amount := domain.RoundMoney(req.Amount)
		if amount == 0 {
			amount = total
		}
		if !domain.MoneyEqual(amount, total) {
			return fmt.Errorf("%w: amount must equal the payable total %.2f", domain.ErrValidation, total)
		}

		pending, err := tx.Orders().LatestPendingByBooking(ctx, b.ID)
		switch {
		case err == nil && s.now().Sub(pending.CreatedAt) < s.cfg.OrderTTL:
			if pending.SessionToken == "" {
				return fmt.Errorf("%w: a payment order is already being created", domain.ErrConflict)
			}
			order, reused = pending, true
			return nil
		case err == nil:
			if _, err := tx.Orders().MarkFailed(ctx, pending.ID, "", domain.FailureExpired, ""); err != nil {
				return err
			}
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		order = &domain.PaymentOrder{
			BookingID:       b.ID,
			TenantID:        tenantID,
			ExternalOrderID: fmt.Sprintf("order_%d_%d", b.ID, s.now().UnixMilli()),
			Amount:          amount,
			Currency:        s.cfg.Currency,
			Status:          domain.OrderPending,
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			if repository.IsUniqueViolation(err) {
				return fmt.Errorf("%w: order already being created", domain.ErrConflict)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reused {
		metrics.PaymentOrders.WithLabelValues("reused").Inc()
		s.log.WithFields(logrus.Fields{
			"order_id":   order.ExternalOrderID,
			"booking_id": order.BookingID,
		}).Info("returning live payment order")
		return &CreateOrderResponse{
			OrderID:          order.ExternalOrderID,
			PaymentSessionID: order.SessionToken,
			Amount:           order.Amount,
			Currency:         order.Currency,
			Status:           string(domain.OrderPending),
		}, nil
	}

	amount := order.Amount

	gw, err := s.gateway.CreateOrder(ctx, GatewayOrderRequest{
		OrderID:       order.ExternalOrderID,
		Amount:        amount,
		Currency:      order.Currency,
		CustomerID:    "user_" + strconv.FormatInt(tenantID, 10),
		CustomerName:  tenant.Name,
		CustomerEmail: tenant.Email,
		CustomerPhone: tenant.Phone,
		ReturnURL:     s.cfg.ReturnURL,
	})
	if err != nil {
		if _, ferr := s.store.Orders().MarkFailed(ctx, order.ID, "", domain.FailureGatewayUnavailable, ""); ferr != nil {
			s.log.WithError(ferr).WithField("order_id", order.ExternalOrderID).Error("failed to mark order failed")
		}
		metrics.PaymentOrders.WithLabelValues("gateway_unavailable").Inc()
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
		}
		return nil, err
	}

	if err := s.store.Orders().SetSession(ctx, order.ID, gw.PaymentSessionID); err != nil {
		return nil, err
	}
	metrics.PaymentOrders.WithLabelValues("created").Inc()
	s.log.WithFields(logrus.Fields{
		"order_id":   order.ExternalOrderID,
		"booking_id": order.BookingID,
		"amount":     amount,
	}).Info("payment order created")

	return &CreateOrderResponse{
		OrderID:          order.ExternalOrderID,
		PaymentSessionID: gw.PaymentSessionID,
		Amount:           amount,
		Currency:         order.Currency,
		Status:           string(domain.OrderPending),
	}, nil
}

// VerifyOrder polls the gateway for a pending or locally failed order and
// applies what it reports through the same path as the webhook.
func (s *Service) VerifyOrder(ctx context.Context, tenantID int64, orderID string) (*OrderStatusResponse, error) {
	order, err := s.store.Orders().GetByExternalID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}

	if order.Status == domain.OrderPending || order.Recoverable() {
		gw, err := s.gateway.FetchOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if _, err := s.apply(ctx, &outcome{
			OrderID:    orderID,
			Status:     gw.Status,
			PaidAmount: gw.Amount,
		}); err != nil {
			return nil, err
		}
		if order, err = s.store.Orders().GetByExternalID(ctx, orderID); err != nil {
			return nil, err
		}
	}

	return &OrderStatusResponse{
		OrderID:       order.ExternalOrderID,
		BookingID:     order.BookingID,
		Status:        string(order.Status),
		GatewayStatus: order.GatewayStatus,
		Amount:        order.Amount,
		PaidAt:        order.PaidAt,
	}, nil
}

type applied struct {
	result    string
	order     *domain.PaymentOrder
	booking   *domain.Booking
	paid      bool
	failed    bool
	recovered bool
	duplicate bool
	reason    string
}

// apply moves a pending order to its final state exactly once. A PAID result
// also completes an order failed locally by expiry or an unreachable gateway.
// Unknown orders and other final orders are ignored.
func (s *Service) apply(ctx context.Context, o *outcome) (string, error) {
	res := &applied{result: applyIgnored}
	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		order, err := tx.Orders().GetByExternalIDForUpdate(ctx, o.OrderID)
		if errors.Is(err, domain.ErrNotFound) {
			res.reason = "unknown_order"
			return nil
		}
		if err != nil {
			return err
		}
		res.order = order

		if order.Settled() {
			if !order.Recoverable() || resolve(o.Status) != resolvePaid {
				res.reason = "already_" + string(order.Status)
				if order.Status == domain.OrderFailed && resolve(o.Status) == resolvePaid {
					s.log.WithFields(logrus.Fields{
						"order_id":       order.ExternalOrderID,
						"failure_reason": order.FailureReason,
					}).Warn("paid notification for an order the gateway failed")
				}
				return nil
			}
			res.recovered = true
		}

		switch resolve(o.Status) {
		case resolvePending:
			res.reason = "not_final"
			return nil
		case resolveFailed:
			if _, err := tx.Orders().MarkFailed(ctx, order.ID, o.Status, "gateway_"+strings.ToLower(o.Status), o.Payload); err != nil {
				return err
			}
			res.result, res.failed, res.reason = applyProcessed, true, "gateway_"+strings.ToLower(o.Status)
			return nil
		}

		if !amountEqual(o.PaidAmount, order.Amount) {
			if res.recovered {
				res.reason = "amount_mismatch"
				s.log.WithField("order_id", order.ExternalOrderID).Warn("paid amount mismatch on a locally failed order")
				return nil
			}
			if _, err := tx.Orders().MarkFailed(ctx, order.ID, o.Status, "amount_mismatch", o.Payload); err != nil {
				return err
			}
			res.result, res.failed, res.reason = applyProcessed, true, "amount_mismatch"
			return nil
		}

		b, err := tx.Bookings().GetByIDForUpdate(ctx, order.BookingID)
		if err != nil {
			return err
		}
		paidAt := s.now()
		if err := tx.Orders().MarkPaid(ctx, order.ID, o.PaymentRef, parseAmount(o.PaidAmount), o.Status, o.Payload, paidAt); err != nil {
			return err
		}
		confirmed, err := tx.Bookings().ConfirmPayment(ctx, b.ID, b.PayableTotal())
		if err != nil {
			return err
		}
		res.result, res.paid, res.booking = applyProcessed, true, b
		res.duplicate = !confirmed
		return nil
	})
	if err != nil {
		return "", err
	}
	s.afterApply(ctx, res)
	return res.result, nil
}

func (s *Service) afterApply(ctx context.Context, res *applied) {
	if res.order == nil || res.result != applyProcessed {
		return
	}
	fields := logrus.Fields{"order_id": res.order.ExternalOrderID, "booking_id": res.order.BookingID}
	if res.paid && res.duplicate {
		metrics.PaymentOrders.WithLabelValues("duplicate_capture").Inc()
		s.log.WithFields(fields).WithField("amount", res.order.Amount).
			Error("payment captured for a booking that is already paid; refund required")
		return
	}
	if res.paid {
		metrics.PaymentOrders.WithLabelValues("paid").Inc()
		s.log.WithFields(fields).WithField("recovered", res.recovered).Info("payment confirmed")
		if s.bus != nil {
			s.bus.Publish(ctx, events.Event{
				Type:       events.PaymentConfirmed,
				BookingID:  res.booking.ID,
				PropertyID: res.booking.PropertyID,
				TenantID:   res.booking.TenantID,
				OwnerID:    res.booking.OwnerID,
				OrderID:    res.order.ExternalOrderID,
				Amount:     res.order.Amount,
			})
		}
		return
	}
	if res.failed {
		metrics.PaymentOrders.WithLabelValues("failed").Inc()
		s.log.WithFields(fields).WithField("reason", res.reason).Warn("payment failed")
		if s.bus != nil {
			s.bus.Publish(ctx, events.Event{
				Type:      events.PaymentFailed,
				BookingID: res.order.BookingID,
				TenantID:  res.order.TenantID,
				OrderID:   res.order.ExternalOrderID,
				Amount:    res.order.Amount,
				Reason:    res.reason,
			})
		}
	}
}

// HandleWebhook authenticates and applies one gateway notification. Only a
// bad signature is returned as an error; anything after that is recorded,
// retried and logged so the gateway is always acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if !VerifySignature(s.cfg.WebhookSecret, rawBody, signature) {
		metrics.WebhookDeliveries.WithLabelValues("invalid_signature").Inc()
		s.log.Warn("webhook rejected: invalid signature")
		return domain.ErrInvalidSignature
	}

	o, err := parseWebhook(rawBody)
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("malformed").Inc()
		s.log.WithError(err).Warn("webhook payload ignored")
		s.record(ctx, &domain.WebhookDelivery{
			Payload:   string(rawBody),
			Status:    domain.DeliveryIgnored,
			LastError: err.Error(),
		})
		return nil
	}

	d := &domain.WebhookDelivery{
		ExternalOrderID: o.OrderID,
		GatewayStatus:   o.Status,
		Payload:         o.Payload,
		Status:          domain.DeliveryFailed,
	}
	s.process(ctx, d, o, s.backoff())
	s.record(ctx, d)
	return nil
}

// process applies o, retrying with bo, and stores the result on d.
func (s *Service) process(ctx context.Context, d *domain.WebhookDelivery, o *outcome, bo backoff.BackOff) {
	var result string
	op := func() error {
		d.Attempts++
		r, err := s.apply(ctx, o)
		if err != nil {
			return err
		}
		result = r
		return nil
	}
	err := backoff.Retry(op, backoff.WithContext(bo, ctx))

	fields := logrus.Fields{"order_id": o.OrderID, "gateway_status": o.Status, "attempts": d.Attempts}
	if err != nil {
		d.Status, d.LastError = domain.DeliveryFailed, err.Error()
		metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
		s.log.WithError(err).WithFields(fields).Error("webhook processing failed")
		return
	}
	d.LastError = ""
	if result == applyProcessed {
		d.Status = domain.DeliveryProcessed
	} else {
		d.Status = domain.DeliveryIgnored
	}
	metrics.WebhookDeliveries.WithLabelValues(string(d.Status)).Inc()
	s.log.WithFields(fields).WithField("result", d.Status).Info("webhook handled")
}

func (s *Service) record(ctx context.Context, d *domain.WebhookDelivery) {
	var err error
	if d.ID == "" {
		err = s.store.Deliveries().Create(ctx, d)
	} else {
		err = s.store.Deliveries().Update(ctx, d)
	}
	if err != nil {
		s.log.WithError(err).WithField("order_id", d.ExternalOrderID).Error("failed to record webhook delivery")
	}
}

// ReprocessFailed replays deliveries whose processing failed, up to
// maxAttempts each. It returns how many now succeeded.
func (s *Service) ReprocessFailed(ctx context.Context, maxAttempts, limit int) (int, error) {
	pending, err := s.store.Deliveries().ListRetryable(ctx, maxAttempts, limit)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for i := range pending {
		d := &pending[i]
		o, err := parseWebhook([]byte(d.Payload))
		if err != nil {
			d.Status, d.LastError = domain.DeliveryIgnored, err.Error()
			s.record(ctx, d)
			continue
		}
		s.process(ctx, d, o, &backoff.StopBackOff{})
		s.record(ctx, d)
		if d.Status != domain.DeliveryFailed {
			recovered++
		}
	}
	return recovered, nil
}

// ExpireStale fails pending orders older than ttl.
func (s *Service) ExpireStale(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := s.store.Orders().ExpirePending(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.PaymentOrders.WithLabelValues("expired").Add(float64(n))
		s.log.WithField("count", n).Info("expired stale payment orders")
	}
	return n, nil
}
