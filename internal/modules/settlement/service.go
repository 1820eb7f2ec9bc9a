package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pgstay/internal/domain"
	"pgstay/internal/events"
	"pgstay/internal/metrics"
	"pgstay/internal/pkg/sealbox"
	"pgstay/internal/pkg/validator"
	"pgstay/internal/repository"

	"github.com/sirupsen/logrus"
)

const defaultHistoryLimit = 100

type PayoutAccountRequest struct {
	AccountHolder string `json:"account_holder" binding:"required" validate:"required,max=120"`
	AccountNumber string `json:"account_number" binding:"required" validate:"required,numeric,min=6,max=20"`
	IFSC          string `json:"ifsc" binding:"required" validate:"required,len=11,alphanum"`
	BankName      string `json:"bank_name" validate:"max=120"`
	Branch        string `json:"branch" validate:"max=120"`
	UPIID         string `json:"upi_id" validate:"omitempty,max=120,contains=@"`
}

type MarkResult struct {
	BookingID       int64                   `json:"booking_id"`
	OwnerSettlement domain.SettlementStatus `json:"owner_settlement"`
	SettlementDate  *time.Time              `json:"settlement_date"`
	Changed         bool                    `json:"changed"`
}

// Service is the settlement ledger: what owners are owed for paid bookings
// and whether it has been disbursed. It never moves money itself.
type Service struct {
	store *repository.Store
	box   *sealbox.Box
	bus   events.Publisher
	log   *logrus.Entry
	now   func() time.Time
}

func NewService(store *repository.Store, box *sealbox.Box, bus events.Publisher, log *logrus.Entry) *Service {
	return &Service{store: store, box: box, bus: bus, log: log, now: time.Now}
}

func (s *Service) SaveOwnerPayoutAccount(ctx context.Context, ownerID int64, req PayoutAccountRequest) (*domain.OwnerPayoutAccount, error) {
	req.AccountNumber = strings.ReplaceAll(strings.TrimSpace(req.AccountNumber), " ", "")
	req.IFSC = strings.ToUpper(strings.TrimSpace(req.IFSC))
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	owner, err := s.store.Users().GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner.Role != domain.RoleOwner {
		return nil, fmt.Errorf("%w: only owners have payout accounts", domain.ErrForbidden)
	}

	sealed, err := s.box.Seal(req.AccountNumber)
	if err != nil {
		return nil, fmt.Errorf("seal account number: %w", err)
	}
	acct := &domain.OwnerPayoutAccount{
		OwnerID:             ownerID,
		AccountHolder:       strings.TrimSpace(req.AccountHolder),
		AccountNumberSealed: sealed,
		AccountLast4:        req.AccountNumber[len(req.AccountNumber)-4:],
		IFSC:                req.IFSC,
		BankName:            strings.TrimSpace(req.BankName),
		Branch:              strings.TrimSpace(req.Branch),
		UPIID:               strings.TrimSpace(req.UPIID),
	}
	if err := s.store.Payouts().Upsert(ctx, acct); err != nil {
		return nil, err
	}
	s.log.WithField("owner_id", ownerID).Info("payout account saved")
	return s.store.Payouts().GetByOwner(ctx, ownerID)
}

// ListPendingSettlements returns confirmed, unsettled bookings with the
// owner's payout details decrypted for the admin.
func (s *Service) ListPendingSettlements(ctx context.Context, adminID int64) ([]domain.PendingSettlement, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	rows, err := s.store.Bookings().PendingSettlements(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		r := &rows[i]
		if r.AccountSealed == nil {
			continue
		}
		plain, err := s.box.Open(*r.AccountSealed)
		if err != nil {
			s.log.WithError(err).WithField("owner_id", r.OwnerID).Error("cannot decrypt payout account")
			r.PayoutReady = false
			continue
		}
		r.AccountNumber = plain
	}
	return rows, nil
}

// MarkSettled records that the owner was paid for bookingID. Marking an
// already settled booking changes nothing.
func (s *Service) MarkSettled(ctx context.Context, adminID, bookingID int64) (*MarkResult, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	var (
		res     *MarkResult
		booking *domain.Booking
	)
	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		b, err := tx.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		booking = b
		if b.OwnerSettlement == nil || b.PaymentStatus != domain.PaymentPaid {
			return fmt.Errorf("%w: booking has no settlement to mark", domain.ErrPreconditionFailed)
		}
		if *b.OwnerSettlement == domain.SettlementDone {
			res = &MarkResult{BookingID: b.ID, OwnerSettlement: domain.SettlementDone, SettlementDate: b.SettlementDate}
			return nil
		}

		now := s.now()
		if err := tx.Bookings().MarkSettled(ctx, b.ID, now); err != nil {
			return err
		}
		res = &MarkResult{BookingID: b.ID, OwnerSettlement: domain.SettlementDone, SettlementDate: &now, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Changed {
		metrics.SettlementsMarked.Inc()
		s.log.WithFields(logrus.Fields{
			"booking_id":   bookingID,
			"admin_id":     adminID,
			"owner_amount": booking.OwnerAmount,
		}).Info("settlement marked done")
		if s.bus != nil {
			s.bus.Publish(ctx, events.Event{
				Type:       events.SettlementDone,
				BookingID:  booking.ID,
				PropertyID: booking.PropertyID,
				OwnerID:    booking.OwnerID,
				TenantID:   booking.TenantID,
				Amount:     booking.OwnerAmount,
			})
		}
	}
	return res, nil
}

func (s *Service) FinanceSummary(ctx context.Context, adminID int64) (*domain.FinanceSummary, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.store.Bookings().FinanceSummary(ctx, dayStart)
}

func (s *Service) SettlementHistory(ctx context.Context, adminID int64, limit int) ([]domain.SettlementRecord, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = defaultHistoryLimit
	}
	return s.store.Bookings().SettlementHistory(ctx, limit)
}

func (s *Service) requireAdmin(ctx context.Context, adminID int64) error {
	u, err := s.store.Users().GetByID(ctx, adminID)
	if err != nil {
		return fmt.Errorf("%w: unknown caller", domain.ErrForbidden)
	}
	if u.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: admin only", domain.ErrForbidden)
	}
	return nil
}
