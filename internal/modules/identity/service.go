package identity

import (
	"context"
	"fmt"
	"strings"

	"pgstay/internal/domain"
	"pgstay/internal/events"
	"pgstay/internal/repository"

	"github.com/sirupsen/logrus"
)

// Identity is the resolved caller attached to every authenticated request.
type Identity struct {
	UserID      int64           `json:"user_id"`
	ExternalUID string          `json:"external_uid"`
	Role        domain.UserRole `json:"role"`
	Name        string          `json:"name"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
}

type Service struct {
	store    *repository.Store
	verifier TokenVerifier
	bus      events.Publisher
	log      *logrus.Entry
}

func NewService(store *repository.Store, verifier TokenVerifier, bus events.Publisher, log *logrus.Entry) *Service {
	return &Service{store: store, verifier: verifier, bus: bus, log: log}
}

// Resolve verifies token and returns the internal user behind it, creating
// a tenant on first sight. Roles come from the database, never the token.
func (s *Service) Resolve(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
	}
	ext, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	u, created, err := s.store.Users().FirstOrCreate(ctx, &domain.User{
		ExternalUID:        ext.UID,
		Name:               ext.Name,
		Email:              ext.Email,
		Phone:              ext.Phone,
		Role:               domain.RoleTenant,
		VerificationStatus: domain.VerificationNone,
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.log.WithField("user_id", u.ID).Info("user provisioned")
	}
	return &Identity{
		UserID:      u.ID,
		ExternalUID: u.ExternalUID,
		Role:        u.Role,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
	}, nil
}

func (s *Service) PromoteToOwner(ctx context.Context, userID int64) (bool, error) {
	promoted, err := s.store.Users().PromoteToOwner(ctx, userID)
	if err != nil {
		return false, err
	}
	if promoted {
		s.log.WithField("user_id", userID).Info("user promoted to owner")
	}
	return promoted, nil
}

// SetOwnerVerification records an admin's onboarding decision for an owner.
func (s *Service) SetOwnerVerification(ctx context.Context, adminID, ownerID int64, status domain.VerificationStatus) (*domain.User, error) {
	switch status {
	case domain.VerificationPending, domain.VerificationVerified, domain.VerificationRejected:
	default:
		return nil, fmt.Errorf("%w: status must be pending, verified or rejected", domain.ErrValidation)
	}
	admin, err := s.store.Users().GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if admin.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	owner, err := s.store.Users().GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner.Role != domain.RoleOwner {
		return nil, fmt.Errorf("%w: user is not an owner", domain.ErrPreconditionFailed)
	}
	if owner.VerificationStatus == status {
		return owner, nil
	}
	if err := s.store.Users().SetVerification(ctx, ownerID, status); err != nil {
		return nil, err
	}
	owner, err = s.store.Users().GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"owner_id": ownerID, "admin_id": adminID, "status": status}).Info("owner verification updated")
	if s.bus != nil {
		s.bus.Publish(ctx, events.Event{Type: events.OwnerVerified, OwnerID: ownerID, Reason: string(status)})
	}
	return owner, nil
}

// Subscribe promotes listing creators to owners.
func (s *Service) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.PropertyCreated, func(ctx context.Context, e events.Event) error {
		if e.OwnerID == 0 {
			return nil
		}
		_, err := s.PromoteToOwner(ctx, e.OwnerID)
		return err
	})
}
