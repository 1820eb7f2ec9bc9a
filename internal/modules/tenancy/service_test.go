package tenancy

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"pgstay/internal/domain"
	"pgstay/internal/events"
	"pgstay/internal/modules/agreement"
	"pgstay/internal/pkg/logger"
	"pgstay/internal/repository"
	"pgstay/internal/storage"
	"pgstay/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingEnsurer struct{}

func (failingEnsurer) Ensure(context.Context, *repository.Store, *domain.Booking, string) (*domain.Agreement, bool, error) {
	return nil, false, errors.New("document store offline")
}

func newService(t *testing.T, fx *testutil.Fixture) (*Service, *[]events.Event) {
	t.Helper()
	docs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	sealer := agreement.NewSealer(docs, agreement.NewPDFRenderer(), agreement.SealerConfig{
		PublicBaseURL:  "https://pgstay.test",
		DurationMonths: 6,
		Currency:       "INR",
	})

	log := logger.Component(logger.Discard(), "tenancy")
	bus := events.NewBus(log)
	var mu sync.Mutex
	published := []events.Event{}
	record := func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, e)
		return nil
	}
	bus.Subscribe(events.BookingApproved, record)
	bus.Subscribe(events.BookingRejected, record)

	return NewService(fx.Store, sealer, bus, log), &published
}

func approve() Decision { return Decision{Status: domain.BookingApproved} }

func TestApproveBookingActivatesTenancyAndAgreement(t *testing.T) {
	fx := testutil.NewFixture(t)
	svc, published := newService(t, fx)
	ctx := context.Background()

	res, err := svc.ApproveBooking(ctx, fx.Owner.ID, fx.Booking.ID, Decision{Status: domain.BookingApproved, RoomNo: "204"})
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.True(t, res.TenancyCreated)
	assert.True(t, res.AgreementCreated)
	assert.Equal(t, domain.BookingApproved, res.Booking.Status)

	require.NotNil(t, res.Tenancy)
	assert.Equal(t, domain.TenancyActive, res.Tenancy.Status)
	require.NotNil(t, res.Tenancy.UnitRef)
	assert.Equal(t, "204", *res.Tenancy.UnitRef)

	require.NotNil(t, res.Agreement)
	assert.Equal(t, domain.AgreementRequested, res.Agreement.Status)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), res.Agreement.ContentHash)
	assert.Regexp(t, regexp.MustCompile(`^AGR-\d{4}-\d+$`), res.Agreement.AgreementNumber)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{6}$`), res.Agreement.VerificationCode)
	assert.True(t, fx.Booking.MoveInDate.AddDate(0, 6, 0).Equal(res.Agreement.ExpiresAt))

	stored, err := fx.Store.Bookings().GetByID(ctx, fx.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingApproved, stored.Status)

	require.Len(t, *published, 1)
	assert.Equal(t, events.BookingApproved, (*published)[0].Type)
	assert.Equal(t, fx.Tenant.ID, (*published)[0].TenantID)
}

func TestApproveBookingIsIdempotent(t *testing.T) {
	fx := testutil.NewFixture(t)
	svc, published := newService(t, fx)
	ctx := context.Background()

	first, err := svc.ApproveBooking(ctx, fx.Owner.ID, fx.Booking.ID, approve())
	require.NoError(t, err)
	second, err := svc.ApproveBooking(ctx, fx.Owner.ID, fx.Booking.ID, approve())
	require.NoError(t, err)

	assert.False(t, second.Changed)
	assert.False(t, second.TenancyCreated)
	assert.False(t, second.AgreementCreated)
	assert.Equal(t, first.Tenancy.ID, second.Tenancy.ID)
	assert.Equal(t, first.Agreement.ID, second.Agreement.ID)
	assert.Equal(t, first.Agreement.ContentHash, second.Agreement.ContentHash)

	tenancies, err := fx.Store.Tenancies().CountByBooking(ctx, fx.Booking.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, tenancies)
	agreements, err := fx.Store.Agreements().CountByBooking(ctx, fx.Booking.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, agreements)
	assert.Len(t, *published, 1)
}

func TestConcurrentApprovalsCreateOneTenancy(t *testing.T) {
	fx := testutil.NewFixture(t)
	svc, published := newService(t, fx)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	changed := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.ApproveBooking(ctx, fx.Owner.ID, fx.Booking.ID, approve())
			errs <- err
			if err == nil {
				changed <- res.Changed
			}
		}()
	}
	wg.Wait()
	close(errs)
	close(changed)

	for err := range errs {
		require.NoError(t, err)
	}
	changes := 0
	for c := range changed {
		if c {
			changes++
		}
	}
	assert.Equal(t, 1, changes)

	active, err := fx.Store.Tenancies().ListActiveByTenant(ctx, fx.Tenant.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	agreements, err := fx.Store.Agreements().CountByBooking(ctx, fx.Booking.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, agreements)
	assert.Len(t, *published, 1)
}

func TestActiveTenancyUniqueIndexRejectsSecondRow(t *testing.T) {
	fx := testutil.NewFixture(t)
	ctx := context.Background()

	first := &domain.Tenancy{PropertyID: fx.Property.ID, TenantID: fx.Tenant.ID, OwnerID: fx.Owner.ID, BookingID: fx.Booking.ID, JoinDate: fx.Booking.MoveInDate}
	inserted, err := fx.Store.Tenancies().InsertActive(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	second := &domain.Tenancy{PropertyID: fx.Property.ID, TenantID: fx.Tenant.ID, OwnerID: fx.Owner.ID, BookingID: fx.Booking.ID, JoinDate: fx.Booking.MoveInDate}
	inserted, err = fx.Store.Tenancies().InsertActive(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted)

	err = fx.Store.DB().Create(&domain.Tenancy{
		PropertyID: fx.Property.ID, TenantID: fx.Tenant.ID, OwnerID: fx.Owner.ID,
		BookingID: fx.Booking.ID, JoinDate: fx.Booking.MoveInDate, Status: domain.TenancyActive,
	}).Error
	assert.True(t, repository.IsUniqueViolation(err))
}

func TestApproveRequiresVerifiedOwner(t *testing.T) {
	fx := testutil.NewFixture(t)
	svc, published := newService(t, fx)
	ctx := context.Background()
	require.NoError(t, fx.Store.Users().SetVerification(ctx, fx.Owner.ID, domain.VerificationPending))

	_, err := svc.ApproveBooking(ctx, fx.Owner.ID, fx.Booking.ID, approve())
	require.ErrorIs(t, err, domain.ErrOnboardingPending)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	b, err := fx.Store.Bookings().GetByID(ctx, fx.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, b.Status)
	n, err := fx.Store.Tenancies().CountByBooking(ctx, fx.Booking.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, *published)
}

func TestApproveByOtherOwnerIsNotFound(t *testing.T) {
	fx := testutil.NewFixture(t)
	svc, _ := newService(t, fx)
	other := testutil.SeedUser(t, fx.Store, "other-owner", domain.RoleOwner, domain.VerificationVerified)

	_, err := svc.ApproveBooking(context.Background(), other.ID, fx.Booking.ID, approve())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApproveRollsBackWhenAgreementFails(t *testing.T) {
	fx := testutil.NewFixture(t)
	log := logger.Component(logger.Discard(), "tenancy")
	svc := NewService(fx.Store, failingEnsurer{}, nil, log)
	ctx := context.Background()

	_, err := svc.ApproveBooking(ctx, fx.Owner.ID, fx.Booking.ID, approve())
	require.Error(t, err)

	b, err := fx.Store.Bookings().GetByID(ctx, fx.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, b.Status)
	n, err := fx.Store.Tenancies().CountByBooking(ctx, fx.Booking.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRejectTransitions(t *testing.T) {
	fx := testutil.NewFixture(t)
	svc, published := newService(t, fx)
	ctx := context.Background()

	res, err := svc.ApproveBooking(ctx, fx.Owner.ID, fx.Booking.ID, Decision{Status: domain.BookingRejected, RejectReason: "room taken"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	require.NotNil(t, res.Booking.RejectReason)
	assert.Equal(t, "room taken", *res.Booking.RejectReason)

	res, err = svc.ApproveBooking(ctx, fx.Owner.ID, fx.Booking.ID, Decision{Status: domain.BookingRejected})
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = svc.ApproveBooking(ctx, fx.Owner.ID, fx.Booking.ID, approve())
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.ApproveBooking(ctx, fx.Owner.ID, fx.Booking.ID, Decision{Status: domain.BookingConfirmed})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.Len(t, *published, 1)
	assert.Equal(t, events.BookingRejected, (*published)[0].Type)
	assert.Equal(t, "room taken", (*published)[0].Reason)
}

func TestEndTenancyFreesSlot(t *testing.T) {
	fx := testutil.NewFixture(t)
	svc, _ := newService(t, fx)
	ctx := context.Background()

	res, err := svc.ApproveBooking(ctx, fx.Owner.ID, fx.Booking.ID, approve())
	require.NoError(t, err)

	_, err = svc.EndTenancy(ctx, fx.Tenant.ID, res.Tenancy.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ended, err := svc.EndTenancy(ctx, fx.Owner.ID, res.Tenancy.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TenancyEnded, ended.Status)
	require.NotNil(t, ended.ExitDate)

	again, err := svc.EndTenancy(ctx, fx.Owner.ID, res.Tenancy.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TenancyEnded, again.Status)

	active, err := svc.ListActiveTenants(ctx, fx.Owner.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	next := &domain.Tenancy{PropertyID: fx.Property.ID, TenantID: fx.Tenant.ID, OwnerID: fx.Owner.ID, BookingID: fx.Booking.ID, JoinDate: fx.Booking.MoveInDate}
	inserted, err := fx.Store.Tenancies().InsertActive(ctx, next)
	require.NoError(t, err)
	assert.True(t, inserted)
}
