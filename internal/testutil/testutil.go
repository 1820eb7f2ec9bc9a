// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"pgstay/internal/database"
	"pgstay/internal/domain"
	"pgstay/internal/pkg/logger"
	"pgstay/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())

	db, err := database.Connect(dsn, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func NewStore(t *testing.T) *repository.Store {
	t.Helper()
	return repository.NewStore(NewDB(t))
}

func SeedUser(t *testing.T, store *repository.Store, uid string, role domain.UserRole, verification domain.VerificationStatus) *domain.User {
	t.Helper()
	u := &domain.User{
		ExternalUID:        uid,
		Name:               strings.ToUpper(uid[:1]) + uid[1:],
		Email:              uid + "@example.com",
		Phone:              "+91980000" + fmt.Sprintf("%04d", len(uid)),
		Role:               role,
		VerificationStatus: verification,
	}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func SeedProperty(t *testing.T, store *repository.Store, ownerID int64, rent, deposit, maintenance float64) *domain.Property {
	t.Helper()
	p := &domain.Property{
		OwnerID:           ownerID,
		Name:              "Sunrise PG",
		Address:           "12 MG Road",
		City:              "Bengaluru",
		RentAmount:        rent,
		DepositAmount:     deposit,
		MaintenanceAmount: maintenance,
	}
	require.NoError(t, store.Properties().Create(context.Background(), p))
	return p
}

func SeedBooking(t *testing.T, store *repository.Store, p *domain.Property, tenant *domain.User) *domain.Booking {
	t.Helper()
	b := &domain.Booking{
		PropertyID:        p.ID,
		TenantID:          tenant.ID,
		OwnerID:           p.OwnerID,
		TenantName:        tenant.Name,
		Phone:             tenant.Phone,
		RoomType:          "double",
		MoveInDate:        time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		RentAmount:        p.RentAmount,
		DepositAmount:     p.DepositAmount,
		MaintenanceAmount: p.MaintenanceAmount,
		Status:            domain.BookingPending,
		PaymentStatus:     domain.PaymentUnpaid,
	}
	require.NoError(t, store.Bookings().Create(context.Background(), b))
	return b
}

// Fixture is the usual cast: a verified owner, a tenant, one property
// (rent 5000, deposit 10000, maintenance 500) and a pending booking.
type Fixture struct {
	Store    *repository.Store
	Owner    *domain.User
	Tenant   *domain.User
	Admin    *domain.User
	Property *domain.Property
	Booking  *domain.Booking
}

func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	store := NewStore(t)
	owner := SeedUser(t, store, "owner", domain.RoleOwner, domain.VerificationVerified)
	tenant := SeedUser(t, store, "tenant", domain.RoleTenant, domain.VerificationNone)
	admin := SeedUser(t, store, "admin", domain.RoleAdmin, domain.VerificationNone)
	prop := SeedProperty(t, store, owner.ID, 5000, 10000, 500)
	booking := SeedBooking(t, store, prop, tenant)
	return &Fixture{Store: store, Owner: owner, Tenant: tenant, Admin: admin, Property: prop, Booking: booking}
}
