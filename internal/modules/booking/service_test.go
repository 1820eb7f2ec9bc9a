package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"pgstay/internal/domain"
	"pgstay/internal/events"
	"pgstay/internal/modules/tenancy"
	"pgstay/internal/pkg/logger"
	"pgstay/internal/pkg/validator"
	"pgstay/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *testutil.Fixture, *[]events.Event) {
	t.Helper()
	fx := testutil.NewFixture(t)
	log := logger.Component(logger.Discard(), "booking")
	bus := events.NewBus(log)
	emitted := []events.Event{}
	record := func(_ context.Context, e events.Event) error {
		emitted = append(emitted, e)
		return nil
	}
	bus.Subscribe(events.BookingCreated, record)
	bus.Subscribe(events.MoveInCompleted, record)

	svc := NewService(fx.Store, tenancy.NewService(fx.Store, nil, nil, log), bus, log)
	svc.now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }
	return svc, fx, &emitted
}

func request() CreateBookingRequest {
	return CreateBookingRequest{Name: "Asha", Phone: "+919800001111", MoveInDate: "2026-12-01", RoomType: "Single"}
}

// readyBooking moves the fixture booking to approved, consented and paid.
func readyBooking(t *testing.T, svc *Service, fx *testutil.Fixture) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, fx.Store.Bookings().Update(ctx, fx.Booking.ID, map[string]interface{}{"status": domain.BookingApproved}))
	_, err := svc.SaveConsent(ctx, fx.Tenant.ID, fx.Booking.ID, ConsentRequest{KYCConsent: true, AgreementConsent: true})
	require.NoError(t, err)
	changed, err := fx.Store.Bookings().ConfirmPayment(ctx, fx.Booking.ID, fx.Booking.PayableTotal())
	require.NoError(t, err)
	require.True(t, changed)
}

func TestCreateBookingCopiesListingAmounts(t *testing.T) {
	svc, fx, emitted := newService(t)
	other := testutil.SeedUser(t, fx.Store, "second", domain.RoleTenant, domain.VerificationNone)

	b, err := svc.CreateBooking(context.Background(), other.ID, fx.Property.ID, request())
	require.NoError(t, err)

	assert.NotZero(t, b.ID)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, domain.PaymentUnpaid, b.PaymentStatus)
	assert.Equal(t, fx.Owner.ID, b.OwnerID)
	assert.Equal(t, "single", b.RoomType)
	assert.Equal(t, 15500.0, b.PayableTotal())
	assert.True(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC).Equal(b.MoveInDate))

	require.Len(t, *emitted, 1)
	assert.Equal(t, events.BookingCreated, (*emitted)[0].Type)
	assert.Equal(t, b.ID, (*emitted)[0].BookingID)
}

func TestCreateBookingRejections(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, fx.Tenant.ID, fx.Property.ID, request())
	assert.ErrorIs(t, err, ErrAlreadyBooked)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.CreateBooking(ctx, fx.Owner.ID, fx.Property.ID, request())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.CreateBooking(ctx, fx.Tenant.ID, 9999, request())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	past := request()
	past.MoveInDate = "2026-10-16"
	_, err = svc.CreateBooking(ctx, fx.Tenant.ID, fx.Property.ID, past)
	assert.ErrorIs(t, err, ErrMoveInDate)

	bad := request()
	bad.RoomType = "penthouse"
	_, err = svc.CreateBooking(ctx, fx.Tenant.ID, fx.Property.ID, bad)
	var fe *validator.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Fields, "RoomType")
}

func TestCreateBookingAllowedAfterRejection(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, fx.Store.Bookings().Update(ctx, fx.Booking.ID, map[string]interface{}{"status": domain.BookingRejected}))

	b, err := svc.CreateBooking(ctx, fx.Tenant.ID, fx.Property.ID, request())
	require.NoError(t, err)
	assert.NotEqual(t, fx.Booking.ID, b.ID)
}

func TestGetBookingIsLimitedToParties(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := context.Background()

	b, err := svc.GetBooking(ctx, fx.Owner.ID, fx.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, fx.Booking.ID, b.ID)

	_, err = svc.GetBooking(ctx, fx.Admin.ID, fx.Booking.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.ListOwnerBookings(ctx, fx.Owner.ID, domain.BookingPending)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = svc.ListOwnerBookings(ctx, fx.Owner.ID, domain.BookingApproved)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSaveConsentRules(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := context.Background()
	both := ConsentRequest{KYCConsent: true, AgreementConsent: true}

	_, err := svc.SaveConsent(ctx, fx.Tenant.ID, fx.Booking.ID, ConsentRequest{KYCConsent: true})
	assert.ErrorIs(t, err, ErrConsentRequired)

	_, err = svc.SaveConsent(ctx, fx.Tenant.ID, fx.Booking.ID, both)
	assert.ErrorIs(t, err, ErrNotApproved)

	require.NoError(t, fx.Store.Bookings().Update(ctx, fx.Booking.ID, map[string]interface{}{"status": domain.BookingApproved}))

	_, err = svc.SaveConsent(ctx, fx.Owner.ID, fx.Booking.ID, both)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	b, err := svc.SaveConsent(ctx, fx.Tenant.ID, fx.Booking.ID, both)
	require.NoError(t, err)
	assert.True(t, b.KYCCompleted)
	assert.True(t, b.AgreementSigned)
}

func TestCompleteMoveInRequiresPayment(t *testing.T) {
	svc, fx, emitted := newService(t)
	ctx := context.Background()
	require.NoError(t, fx.Store.Bookings().Update(ctx, fx.Booking.ID, map[string]interface{}{"status": domain.BookingApproved}))
	_, err := svc.SaveConsent(ctx, fx.Tenant.ID, fx.Booking.ID, ConsentRequest{KYCConsent: true, AgreementConsent: true})
	require.NoError(t, err)

	_, err = svc.CompleteMoveIn(ctx, fx.Tenant.ID, fx.Booking.ID)
	assert.ErrorIs(t, err, ErrMoveInNotReady)
	assert.Empty(t, *emitted)

	st, err := svc.MoveInStatus(ctx, fx.Owner.ID, fx.Booking.ID)
	require.NoError(t, err)
	assert.False(t, st.ReadyForMoveIn)
	assert.False(t, st.TenancyActive)
}

func TestCompleteMoveInActivatesTenancyOnce(t *testing.T) {
	svc, fx, emitted := newService(t)
	ctx := context.Background()
	readyBooking(t, svc, fx)

	before, err := svc.MoveInStatus(ctx, fx.Tenant.ID, fx.Booking.ID)
	require.NoError(t, err)
	assert.True(t, before.ReadyForMoveIn)

	st, err := svc.CompleteMoveIn(ctx, fx.Tenant.ID, fx.Booking.ID)
	require.NoError(t, err)
	assert.True(t, st.MoveInCompleted)
	assert.True(t, st.TenancyActive)
	assert.False(t, st.ReadyForMoveIn)
	assert.Equal(t, string(domain.BookingConfirmed), st.Status)

	again, err := svc.CompleteMoveIn(ctx, fx.Tenant.ID, fx.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, st, again)

	stays, err := fx.Store.Tenancies().ListActiveByTenant(ctx, fx.Tenant.ID)
	require.NoError(t, err)
	assert.Len(t, stays, 1)

	require.Len(t, *emitted, 1)
	assert.Equal(t, events.MoveInCompleted, (*emitted)[0].Type)
	assert.Equal(t, fx.Owner.ID, (*emitted)[0].OwnerID)
}

func TestCompleteMoveInByOtherUserIsNotFound(t *testing.T) {
	svc, fx, _ := newService(t)
	readyBooking(t, svc, fx)

	_, err := svc.CompleteMoveIn(context.Background(), fx.Owner.ID, fx.Booking.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
