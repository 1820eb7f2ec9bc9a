package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"pgstay/internal/domain"
	"pgstay/internal/events"
	"pgstay/internal/pkg/validator"
	"pgstay/internal/repository"

	"github.com/sirupsen/logrus"
)

type Service struct {
	store     *repository.Store
	tenancies TenancyActivator
	bus       events.Publisher
	log       *logrus.Entry
	now       func() time.Time
}

func NewService(store *repository.Store, tenancies TenancyActivator, bus events.Publisher, log *logrus.Entry) *Service {
	return &Service{store: store, tenancies: tenancies, bus: bus, log: log, now: time.Now}
}

// CreateBooking files a pending request for propertyID. Amounts are copied
// from the listing so later price changes do not touch open bookings.
func (s *Service) CreateBooking(ctx context.Context, tenantID, propertyID int64, req CreateBookingRequest) (*domain.Booking, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.RoomType = strings.ToLower(strings.TrimSpace(req.RoomType))
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	moveIn, err := time.Parse("2006-01-02", req.MoveInDate)
	if err != nil {
		return nil, ErrMoveInDate
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if moveIn.Before(today) {
		return nil, ErrMoveInDate
	}

	prop, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if prop.OwnerID == tenantID {
		return nil, ErrOwnProperty
	}

	existing, err := s.store.Bookings().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, b := range existing {
		if b.PropertyID == propertyID && b.Status != domain.BookingRejected && !b.MoveInCompleted {
			return nil, ErrAlreadyBooked
		}
	}

	b := &domain.Booking{
		PropertyID:        prop.ID,
		TenantID:          tenantID,
		OwnerID:           prop.OwnerID,
		TenantName:        req.Name,
		Phone:             req.Phone,
		RoomType:          req.RoomType,
		MoveInDate:        moveIn,
		RentAmount:        domain.RoundMoney(prop.RentAmount),
		DepositAmount:     domain.RoundMoney(prop.DepositAmount),
		MaintenanceAmount: domain.RoundMoney(prop.MaintenanceAmount),
		Status:            domain.BookingPending,
		PaymentStatus:     domain.PaymentUnpaid,
	}
	if err := s.store.Bookings().Create(ctx, b); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"booking_id": b.ID, "property_id": prop.ID, "tenant_id": tenantID}).Info("booking created")
	if s.bus != nil {
		s.bus.Publish(ctx, events.Event{
			Type:       events.BookingCreated,
			BookingID:  b.ID,
			PropertyID: b.PropertyID,
			TenantID:   b.TenantID,
			OwnerID:    b.OwnerID,
		})
	}
	return b, nil
}

// GetBooking is visible to the tenant and owner of record only.
func (s *Service) GetBooking(ctx context.Context, actorID, bookingID int64) (*domain.Booking, error) {
	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(actorID) {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (s *Service) ListTenantBookings(ctx context.Context, tenantID int64) ([]domain.Booking, error) {
	return s.store.Bookings().ListByTenant(ctx, tenantID)
}

func (s *Service) ListOwnerBookings(ctx context.Context, ownerID int64, status domain.BookingStatus) ([]domain.Booking, error) {
	return s.store.Bookings().ListByOwner(ctx, ownerID, status)
}

// SaveConsent records the tenant's KYC and agreement consent.
func (s *Service) SaveConsent(ctx context.Context, tenantID, bookingID int64, req ConsentRequest) (*domain.Booking, error) {
	if !req.KYCConsent || !req.AgreementConsent {
		return nil, ErrConsentRequired
	}
	var out *domain.Booking
	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		b, err := tx.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.TenantID != tenantID {
			return domain.ErrNotFound
		}
		if b.Status != domain.BookingApproved && b.Status != domain.BookingConfirmed {
			return ErrNotApproved
		}
		if !b.KYCCompleted || !b.AgreementSigned {
			if err := tx.Bookings().Update(ctx, b.ID, map[string]interface{}{
				"kyc_completed":    true,
				"agreement_signed": true,
			}); err != nil {
				return err
			}
			b.KYCCompleted, b.AgreementSigned = true, true
		}
		out = b
		return nil
	})
	return out, err
}

// CompleteMoveIn activates the tenancy for a paid booking. Repeating it
// returns the same state.
func (s *Service) CompleteMoveIn(ctx context.Context, tenantID, bookingID int64) (*MoveInStatus, error) {
	var (
		b     *domain.Booking
		moved bool
	)
	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		var err error
		b, err = tx.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.TenantID != tenantID {
			return domain.ErrNotFound
		}
		if b.MoveInCompleted {
			return nil
		}
		if !readyForMoveIn(b) {
			return ErrMoveInNotReady
		}
		if _, _, err := s.tenancies.Activate(ctx, tx, b, "", nil); err != nil {
			return err
		}
		if err := tx.Bookings().Update(ctx, b.ID, map[string]interface{}{"move_in_completed": true}); err != nil {
			return err
		}
		b.MoveInCompleted, moved = true, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if moved {
		s.log.WithField("booking_id", bookingID).Info("move-in completed")
		if s.bus != nil {
			s.bus.Publish(ctx, events.Event{
				Type:       events.MoveInCompleted,
				BookingID:  b.ID,
				PropertyID: b.PropertyID,
				TenantID:   b.TenantID,
				OwnerID:    b.OwnerID,
			})
		}
	}
	return s.status(ctx, b)
}

func (s *Service) MoveInStatus(ctx context.Context, actorID, bookingID int64) (*MoveInStatus, error) {
	b, err := s.GetBooking(ctx, actorID, bookingID)
	if err != nil {
		return nil, err
	}
	return s.status(ctx, b)
}

func (s *Service) status(ctx context.Context, b *domain.Booking) (*MoveInStatus, error) {
	active := false
	if _, err := s.store.Tenancies().GetActive(ctx, b.TenantID, b.PropertyID); err == nil {
		active = true
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return &MoveInStatus{
		BookingID:       b.ID,
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		KYCCompleted:    b.KYCCompleted,
		AgreementSigned: b.AgreementSigned,
		MoveInCompleted: b.MoveInCompleted,
		ReadyForMoveIn:  !b.MoveInCompleted && readyForMoveIn(b),
		TenancyActive:   active,
	}, nil
}

func readyForMoveIn(b *domain.Booking) bool {
	return b.Status == domain.BookingConfirmed &&
		b.PaymentStatus == domain.PaymentPaid &&
		b.KYCCompleted && b.AgreementSigned
}
