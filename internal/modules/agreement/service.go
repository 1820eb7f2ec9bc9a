package agreement

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"pgstay/internal/cache"
	"pgstay/internal/domain"
	"pgstay/internal/events"
	"pgstay/internal/metrics"
	"pgstay/internal/repository"
	"pgstay/internal/storage"

	"github.com/sirupsen/logrus"
)

type Party string

const (
	PartyOwner  Party = "owner"
	PartyTenant Party = "tenant"
)

var (
	hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)
	codePattern = regexp.MustCompile(`^[0-9A-F]{6}$`)
)

type SignInput struct {
	SignatureRef string
	IP           string
}

type Service struct {
	store    *repository.Store
	sealer   *Sealer
	docs     storage.DocumentStore
	cache    cache.Cache
	bus      events.Publisher
	cacheTTL time.Duration
	log      *logrus.Entry
	now      func() time.Time
}

func NewService(store *repository.Store, sealer *Sealer, docs storage.DocumentStore, c cache.Cache, bus events.Publisher, cacheTTL time.Duration, log *logrus.Entry) *Service {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return &Service{
		store:    store,
		sealer:   sealer,
		docs:     docs,
		cache:    c,
		bus:      bus,
		cacheTTL: cacheTTL,
		log:      log,
		now:      time.Now,
	}
}

// Get returns the booking's agreement, creating it on first access once the
// booking is approved.
func (s *Service) Get(ctx context.Context, actorID, bookingID int64) (*domain.Agreement, error) {
	var out *domain.Agreement
	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		b, err := lockedPartyBooking(ctx, tx, actorID, bookingID)
		if err != nil {
			return err
		}
		a, _, err := s.sealer.Ensure(ctx, tx, b, "")
		out = a
		return err
	})
	return out, err
}

// GenerateDraft moves a requested agreement to draft and re-renders it.
func (s *Service) GenerateDraft(ctx context.Context, actorID, bookingID int64) (*domain.Agreement, error) {
	var out *domain.Agreement
	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		b, err := lockedPartyBooking(ctx, tx, actorID, bookingID)
		if err != nil {
			return err
		}
		if _, _, err := s.sealer.Ensure(ctx, tx, b, ""); err != nil {
			return err
		}
		a, err := tx.Agreements().GetByBookingIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := s.sealer.Redraft(ctx, tx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

func (s *Service) OwnerSign(ctx context.Context, actorID, bookingID int64, in SignInput) (*domain.Agreement, error) {
	return s.sign(ctx, PartyOwner, actorID, bookingID, in)
}

func (s *Service) TenantSign(ctx context.Context, actorID, bookingID int64, in SignInput) (*domain.Agreement, error) {
	return s.sign(ctx, PartyTenant, actorID, bookingID, in)
}

// sign records one party's e-signature. The first signature moves the
// agreement to draft; the second seals it in the same transaction. Signing
// twice as the same party is a no-op.
func (s *Service) sign(ctx context.Context, party Party, actorID, bookingID int64, in SignInput) (*domain.Agreement, error) {
	var (
		out    *domain.Agreement
		signed bool
		sealed bool
	)
	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		b, err := tx.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if (party == PartyOwner && b.OwnerID != actorID) || (party == PartyTenant && b.TenantID != actorID) {
			return domain.ErrNotFound
		}
		if _, _, err := s.sealer.Ensure(ctx, tx, b, ""); err != nil {
			return err
		}
		a, err := tx.Agreements().GetByBookingIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if a.Sealed() {
			return domain.ErrAgreementSealed
		}

		now := s.now()
		updates := map[string]interface{}{}
		switch party {
		case PartyOwner:
			if a.OwnerSigned {
				out = a
				return nil
			}
			a.OwnerSigned, a.OwnerSignedAt, a.OwnerSignature = true, &now, in.SignatureRef
			updates["owner_signed"] = true
			updates["owner_signed_at"] = now
			updates["owner_signature"] = in.SignatureRef
		case PartyTenant:
			if a.TenantSigned {
				out = a
				return nil
			}
			a.TenantSigned, a.TenantSignedAt, a.TenantSignature, a.TenantIP = true, &now, in.SignatureRef, in.IP
			updates["tenant_signed"] = true
			updates["tenant_signed_at"] = now
			updates["tenant_signature"] = in.SignatureRef
			updates["tenant_ip"] = in.IP
		}
		if a.Status == domain.AgreementRequested {
			a.Status = domain.AgreementDraft
			updates["status"] = domain.AgreementDraft
		}
		if err := tx.Agreements().Update(ctx, a.ID, updates); err != nil {
			return err
		}
		signed = true

		if a.OwnerSigned && a.TenantSigned {
			if err := s.sealer.Finalize(ctx, tx, a); err != nil {
				return err
			}
			sealed = true
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"booking_id": bookingID, "party": party, "sealed": sealed}).Info("agreement signed")
	switch {
	case sealed:
		s.afterSeal(ctx, out)
	case signed && s.bus != nil:
		s.bus.Publish(ctx, events.Event{
			Type:       events.AgreementSigned,
			BookingID:  out.BookingID,
			PropertyID: out.PropertyID,
			TenantID:   out.TenantID,
			OwnerID:    out.OwnerID,
			Reason:     string(party),
		})
	}
	return out, nil
}

// Seal finalizes an agreement whose both signatures are present.
func (s *Service) Seal(ctx context.Context, bookingID int64) (*domain.Agreement, error) {
	var out *domain.Agreement
	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		a, err := tx.Agreements().GetByBookingIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := s.sealer.Finalize(ctx, tx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterSeal(ctx, out)
	return out, nil
}

func (s *Service) afterSeal(ctx context.Context, a *domain.Agreement) {
	metrics.AgreementsSealed.Inc()
	if s.bus != nil {
		s.bus.Publish(ctx, events.Event{
			Type:       events.AgreementSealed,
			BookingID:  a.BookingID,
			PropertyID: a.PropertyID,
			TenantID:   a.TenantID,
			OwnerID:    a.OwnerID,
		})
	}
}

type StatusView struct {
	BookingID       int64                  `json:"booking_id"`
	AgreementNumber string                 `json:"agreement_number"`
	Status          domain.AgreementStatus `json:"status"`
	OwnerSigned     bool                   `json:"owner_signed"`
	TenantSigned    bool                   `json:"tenant_signed"`
	ContentHash     string                 `json:"content_hash,omitempty"`
	SignedAt        *time.Time             `json:"signed_at,omitempty"`
	ExpiresAt       time.Time              `json:"expires_at"`
}

func (s *Service) Status(ctx context.Context, actorID, bookingID int64) (*StatusView, error) {
	b, err := partyBooking(ctx, s.store, actorID, bookingID)
	if err != nil {
		return nil, err
	}
	a, err := s.store.Agreements().GetByBookingID(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	v := &StatusView{
		BookingID:       a.BookingID,
		AgreementNumber: a.AgreementNumber,
		Status:          a.Status,
		OwnerSigned:     a.OwnerSigned,
		TenantSigned:    a.TenantSigned,
		SignedAt:        a.SignedAt,
		ExpiresAt:       a.ExpiresAt,
	}
	if a.Sealed() {
		v.ContentHash = a.ContentHash
	}
	return v, nil
}

// Download returns the current document bytes and a file name.
func (s *Service) Download(ctx context.Context, actorID, bookingID int64) ([]byte, string, error) {
	b, err := partyBooking(ctx, s.store, actorID, bookingID)
	if err != nil {
		return nil, "", err
	}
	a, err := s.store.Agreements().GetByBookingID(ctx, b.ID)
	if err != nil {
		return nil, "", err
	}
	data, err := s.docs.Fetch(ctx, a.DocumentRef)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: agreement document missing", domain.ErrNotFound)
		}
		return nil, "", err
	}
	return data, a.AgreementNumber + ".pdf", nil
}

// VerifyByHash is the public lookup. Only completed agreements are valid.
func (s *Service) VerifyByHash(ctx context.Context, hash string) (*domain.AgreementVerification, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if !hashPattern.MatchString(hash) {
		return &domain.AgreementVerification{Valid: false}, nil
	}
	return s.verify(ctx, "agreement:verify:hash:"+hash, func() (*domain.Agreement, error) {
		return s.store.Agreements().GetByHash(ctx, hash)
	})
}

func (s *Service) VerifyByCode(ctx context.Context, code string) (*domain.AgreementVerification, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return &domain.AgreementVerification{Valid: false}, nil
	}
	return s.verify(ctx, "agreement:verify:code:"+code, func() (*domain.Agreement, error) {
		return s.store.Agreements().GetByCode(ctx, code)
	})
}

func (s *Service) verify(ctx context.Context, key string, load func() (*domain.Agreement, error)) (*domain.AgreementVerification, error) {
	var cached domain.AgreementVerification
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		s.log.WithError(err).Warn("verify cache read failed")
	} else if ok {
		cached.Expired = cached.ExpiresAt != nil && s.now().After(*cached.ExpiresAt)
		return &cached, nil
	}

	a, err := load()
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.AgreementVerification{Valid: false}, nil
	}
	if err != nil {
		return nil, err
	}
	if !a.Sealed() {
		return &domain.AgreementVerification{Valid: false}, nil
	}

	bookingID := a.BookingID
	expiresAt := a.ExpiresAt
	out := &domain.AgreementVerification{
		Valid:     true,
		BookingID: &bookingID,
		SignedAt:  a.SignedAt,
		ExpiresAt: &expiresAt,
	}
	if err := s.cache.SetJSON(ctx, key, out, s.cacheTTL); err != nil {
		s.log.WithError(err).Warn("verify cache write failed")
	}
	out.Expired = s.now().After(expiresAt)
	return out, nil
}

// partyBooking loads a booking visible to actorID. Anyone else gets
// not found.
func partyBooking(ctx context.Context, store *repository.Store, actorID, bookingID int64) (*domain.Booking, error) {
	b, err := store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(actorID) {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func lockedPartyBooking(ctx context.Context, tx *repository.Store, actorID, bookingID int64) (*domain.Booking, error) {
	b, err := tx.Bookings().GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(actorID) {
		return nil, domain.ErrNotFound
	}
	return b, nil
}
