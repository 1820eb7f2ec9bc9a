package notification

import (
	"context"
	"fmt"

	"pgstay/internal/domain"
	"pgstay/internal/events"
	"pgstay/internal/realtime"
	"pgstay/internal/repository"

	"github.com/sirupsen/logrus"
)

type Pusher interface {
	SendToUser(userID int64, msg realtime.Message) bool
	SendToPair(a, b int64, msg realtime.Message) int
}

// Service stores in-app notifications and pushes them to live sockets.
// Delivery is best effort: Notify never fails the caller.
type Service struct {
	store *repository.Store
	push  Pusher
	log   *logrus.Entry
}

func NewService(store *repository.Store, push Pusher, log *logrus.Entry) *Service {
	return &Service{store: store, push: push, log: log}
}

func (s *Service) Notify(ctx context.Context, userID int64, title, message string, t domain.NotificationType) {
	if userID == 0 {
		return
	}
	n := &domain.Notification{UserID: userID, Type: t, Title: title, Message: message}
	if err := s.store.Notifications().Create(ctx, n); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "type": t}).Warn("notification not stored")
		return
	}
	if s.push != nil {
		s.push.SendToUser(userID, realtime.Message{Type: "notification", Data: n})
	}
}

func (s *Service) List(ctx context.Context, userID int64, limit int) ([]domain.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := s.store.Notifications().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.store.Notifications().CountUnread(ctx, userID)
	if err != nil {
		unread = 0
	}
	return list, unread, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	return s.store.Notifications().MarkRead(ctx, userID, id)
}

// Subscribe turns lifecycle events into user notifications.
func (s *Service) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.BookingCreated, func(ctx context.Context, e events.Event) error {
		s.Notify(ctx, e.OwnerID, "New booking request",
			fmt.Sprintf("Booking #%d is waiting for your decision", e.BookingID), domain.NotifBookingCreated)
		return nil
	})
	bus.Subscribe(events.BookingApproved, func(ctx context.Context, e events.Event) error {
		s.Notify(ctx, e.TenantID, "Booking approved",
			fmt.Sprintf("Your booking #%d was approved. Complete the payment to confirm it.", e.BookingID), domain.NotifBookingApproved)
		s.pushPair(e, "booking.approved")
		return nil
	})
	bus.Subscribe(events.BookingRejected, func(ctx context.Context, e events.Event) error {
		msg := fmt.Sprintf("Your booking #%d was rejected", e.BookingID)
		if e.Reason != "" {
			msg += ": " + e.Reason
		}
		s.Notify(ctx, e.TenantID, "Booking rejected", msg, domain.NotifBookingRejected)
		s.pushPair(e, "booking.rejected")
		return nil
	})
	bus.Subscribe(events.PaymentConfirmed, func(ctx context.Context, e events.Event) error {
		s.Notify(ctx, e.TenantID, "Payment received",
			fmt.Sprintf("Payment of %.2f for booking #%d is confirmed", e.Amount, e.BookingID), domain.NotifPaymentConfirmed)
		s.Notify(ctx, e.OwnerID, "Booking paid",
			fmt.Sprintf("Booking #%d is paid. %.2f will be settled to you.", e.BookingID, e.Amount), domain.NotifPaymentConfirmed)
		s.pushPair(e, "payment.confirmed")
		return nil
	})
	bus.Subscribe(events.PaymentFailed, func(ctx context.Context, e events.Event) error {
		s.Notify(ctx, e.TenantID, "Payment failed",
			fmt.Sprintf("Payment for booking #%d did not go through", e.BookingID), domain.NotifPaymentFailed)
		return nil
	})
	bus.Subscribe(events.AgreementSigned, func(ctx context.Context, e events.Event) error {
		// Reason names the party that signed; tell the other one.
		to := e.OwnerID
		if e.Reason == "owner" {
			to = e.TenantID
		}
		s.Notify(ctx, to, "Agreement signed",
			fmt.Sprintf("The %s signed the agreement for booking #%d. Your signature is pending.", e.Reason, e.BookingID), domain.NotifAgreementSigned)
		return nil
	})
	bus.Subscribe(events.AgreementSealed, func(ctx context.Context, e events.Event) error {
		for _, uid := range []int64{e.TenantID, e.OwnerID} {
			s.Notify(ctx, uid, "Agreement completed",
				fmt.Sprintf("The rental agreement for booking #%d is signed by both parties", e.BookingID), domain.NotifAgreementSealed)
		}
		return nil
	})
	bus.Subscribe(events.MoveInCompleted, func(ctx context.Context, e events.Event) error {
		s.Notify(ctx, e.OwnerID, "Tenant moved in",
			fmt.Sprintf("The tenant of booking #%d completed move-in", e.BookingID), domain.NotifMoveInCompleted)
		s.pushPair(e, "booking.moved_in")
		return nil
	})
	bus.Subscribe(events.OwnerVerified, func(ctx context.Context, e events.Event) error {
		s.Notify(ctx, e.OwnerID, "Verification updated",
			fmt.Sprintf("Your owner verification status is now %s", e.Reason), domain.NotifOwnerVerification)
		return nil
	})
	bus.Subscribe(events.TenancyEnded, func(ctx context.Context, e events.Event) error {
		s.Notify(ctx, e.TenantID, "Stay ended", "Your tenancy has been marked as vacated", domain.NotifTenancyEnded)
		return nil
	})
	bus.Subscribe(events.SettlementDone, func(ctx context.Context, e events.Event) error {
		s.Notify(ctx, e.OwnerID, "Payout settled",
			fmt.Sprintf("%.2f for booking #%d has been settled", e.Amount, e.BookingID), domain.NotifSettlementDone)
		return nil
	})
}

func (s *Service) pushPair(e events.Event, kind string) {
	if s.push == nil || e.TenantID == 0 || e.OwnerID == 0 {
		return
	}
	s.push.SendToPair(e.TenantID, e.OwnerID, realtime.Message{Type: kind, Data: e})
}
