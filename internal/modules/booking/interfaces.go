package booking

import (
	"context"
	"time"

	"pgstay/internal/domain"
	"pgstay/internal/repository"
)

// TenancyActivator ensures the ACTIVE tenancy for a booking inside the
// caller's transaction. *tenancy.Service implements it.
type TenancyActivator interface {
	Activate(ctx context.Context, tx *repository.Store, b *domain.Booking, roomNo string, exitDate *time.Time) (*domain.Tenancy, bool, error)
}
