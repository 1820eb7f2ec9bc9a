package tenancy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pgstay/internal/domain"
	"pgstay/internal/events"
	"pgstay/internal/metrics"
	"pgstay/internal/repository"

	"github.com/sirupsen/logrus"
)

// AgreementEnsurer creates the booking's agreement inside the caller's
// transaction when it does not exist yet.
type AgreementEnsurer interface {
	Ensure(ctx context.Context, tx *repository.Store, b *domain.Booking, unitRef string) (*domain.Agreement, bool, error)
}

type Decision struct {
	Status       domain.BookingStatus
	RejectReason string
	RoomNo       string
	ExitDate     *time.Time
}

type Result struct {
	Booking          *domain.Booking   `json:"booking"`
	Tenancy          *domain.Tenancy   `json:"tenancy,omitempty"`
	Agreement        *domain.Agreement `json:"agreement,omitempty"`
	Changed          bool              `json:"changed"`
	TenancyCreated   bool              `json:"tenancy_created"`
	AgreementCreated bool              `json:"agreement_created"`
}

type Service struct {
	store      *repository.Store
	agreements AgreementEnsurer
	bus        events.Publisher
	log        *logrus.Entry
	now        func() time.Time
}

func NewService(store *repository.Store, agreements AgreementEnsurer, bus events.Publisher, log *logrus.Entry) *Service {
	return &Service{store: store, agreements: agreements, bus: bus, log: log, now: time.Now}
}

// ApproveBooking applies an owner's decision. Approval writes the booking
// status, the ACTIVE tenancy and the agreement in one transaction; a retry on
// an already approved booking finds the existing rows and changes nothing.
func (s *Service) ApproveBooking(ctx context.Context, ownerID, bookingID int64, d Decision) (*Result, error) {
	if d.Status != domain.BookingApproved && d.Status != domain.BookingRejected {
		return nil, fmt.Errorf("%w: status must be approved or rejected", domain.ErrValidation)
	}
	if d.Status == domain.BookingApproved {
		owner, err := s.store.Users().GetByID(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if !owner.IsVerifiedOwner() {
			metrics.BookingDecisions.WithLabelValues(string(d.Status), "onboarding_pending").Inc()
			return nil, domain.ErrOnboardingPending
		}
	}

	res := &Result{}
	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		b, err := tx.Bookings().GetOwnedForUpdate(ctx, bookingID, ownerID)
		if err != nil {
			return err
		}
		res.Booking = b

		if d.Status == domain.BookingRejected {
			return s.reject(ctx, tx, b, d, res)
		}
		return s.approve(ctx, tx, b, d, res)
	})
	if err != nil {
		metrics.BookingDecisions.WithLabelValues(string(d.Status), domain.Kind(err)).Inc()
		return nil, err
	}

	metrics.BookingDecisions.WithLabelValues(string(d.Status), "ok").Inc()
	if res.TenancyCreated {
		metrics.TenanciesActivated.Inc()
	}
	s.log.WithFields(logrus.Fields{
		"booking_id":        bookingID,
		"owner_id":          ownerID,
		"decision":          d.Status,
		"changed":           res.Changed,
		"tenancy_created":   res.TenancyCreated,
		"agreement_created": res.AgreementCreated,
	}).Info("booking decision applied")

	if res.Changed && s.bus != nil {
		evt := events.Event{
			Type:       events.BookingApproved,
			BookingID:  res.Booking.ID,
			PropertyID: res.Booking.PropertyID,
			TenantID:   res.Booking.TenantID,
			OwnerID:    res.Booking.OwnerID,
		}
		if d.Status == domain.BookingRejected {
			evt.Type = events.BookingRejected
			evt.Reason = d.RejectReason
		}
		s.bus.Publish(ctx, evt)
	}
	return res, nil
}

func (s *Service) reject(ctx context.Context, tx *repository.Store, b *domain.Booking, d Decision, res *Result) error {
	switch b.Status {
	case domain.BookingRejected:
		return nil
	case domain.BookingPending:
	default:
		return fmt.Errorf("%w: cannot reject a booking in status %s", domain.ErrInvalidTransition, b.Status)
	}

	updates := map[string]interface{}{"status": domain.BookingRejected}
	if reason := strings.TrimSpace(d.RejectReason); reason != "" {
		updates["reject_reason"] = reason
		b.RejectReason = &reason
	}
	if err := tx.Bookings().Update(ctx, b.ID, updates); err != nil {
		return err
	}
	b.Status = domain.BookingRejected
	res.Changed = true
	return nil
}

func (s *Service) approve(ctx context.Context, tx *repository.Store, b *domain.Booking, d Decision, res *Result) error {
	switch b.Status {
	case domain.BookingApproved:
	case domain.BookingPending:
		if err := tx.Bookings().Update(ctx, b.ID, map[string]interface{}{
			"status":        domain.BookingApproved,
			"reject_reason": nil,
		}); err != nil {
			return err
		}
		b.Status = domain.BookingApproved
		b.RejectReason = nil
		res.Changed = true
	default:
		return fmt.Errorf("%w: cannot approve a booking in status %s", domain.ErrInvalidTransition, b.Status)
	}

	t, created, err := s.Activate(ctx, tx, b, d.RoomNo, d.ExitDate)
	if err != nil {
		return err
	}
	res.Tenancy, res.TenancyCreated = t, created

	a, aCreated, err := s.agreements.Ensure(ctx, tx, b, strings.TrimSpace(d.RoomNo))
	if err != nil {
		return fmt.Errorf("create agreement: %w", err)
	}
	res.Agreement, res.AgreementCreated = a, aCreated
	return nil
}

// Activate returns the ACTIVE tenancy for the booking's tenant and property,
// inserting one if none exists. Safe under concurrent callers: the database
// unique index admits exactly one insert.
func (s *Service) Activate(ctx context.Context, tx *repository.Store, b *domain.Booking, roomNo string, exitDate *time.Time) (*domain.Tenancy, bool, error) {
	existing, err := tx.Tenancies().GetActive(ctx, b.TenantID, b.PropertyID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	t := &domain.Tenancy{
		PropertyID: b.PropertyID,
		TenantID:   b.TenantID,
		OwnerID:    b.OwnerID,
		BookingID:  b.ID,
		JoinDate:   b.MoveInDate,
		ExitDate:   exitDate,
	}
	if room := strings.TrimSpace(roomNo); room != "" {
		t.UnitRef = &room
	}
	inserted, err := tx.Tenancies().InsertActive(ctx, t)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return t, true, nil
	}
	existing, err = tx.Tenancies().GetActive(ctx, b.TenantID, b.PropertyID)
	return existing, false, err
}

// EndTenancy marks a vacate as complete, freeing the tenant's active slot
// for the property.
func (s *Service) EndTenancy(ctx context.Context, ownerID, tenancyID int64, exitDate *time.Time) (*domain.Tenancy, error) {
	var (
		out   *domain.Tenancy
		ended bool
	)
	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		t, err := tx.Tenancies().GetByIDForUpdate(ctx, tenancyID)
		if err != nil {
			return err
		}
		if t.OwnerID != ownerID {
			return domain.ErrNotFound
		}
		out = t
		if t.Status == domain.TenancyEnded {
			return nil
		}

		now := s.now()
		exit := now
		if exitDate != nil {
			exit = *exitDate
		}
		if err := tx.Tenancies().End(ctx, t.ID, exit, now); err != nil {
			return err
		}
		t.Status, t.ExitDate, t.EndedAt = domain.TenancyEnded, &exit, &now
		ended = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ended && s.bus != nil {
		s.bus.Publish(ctx, events.Event{
			Type:       events.TenancyEnded,
			BookingID:  out.BookingID,
			PropertyID: out.PropertyID,
			TenantID:   out.TenantID,
			OwnerID:    out.OwnerID,
		})
	}
	return out, nil
}

func (s *Service) ListActiveTenants(ctx context.Context, ownerID int64) ([]domain.Tenancy, error) {
	return s.store.Tenancies().ListActiveByOwner(ctx, ownerID)
}

func (s *Service) MyActiveStays(ctx context.Context, tenantID int64) ([]domain.Tenancy, error) {
	return s.store.Tenancies().ListActiveByTenant(ctx, tenantID)
}
