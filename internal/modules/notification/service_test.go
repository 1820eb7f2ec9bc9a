package notification

import (
	"context"
	"testing"

	"pgstay/internal/domain"
	"pgstay/internal/events"
	"pgstay/internal/pkg/logger"
	"pgstay/internal/realtime"
	"pgstay/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPusher struct {
	mock.Mock
}

func (m *mockPusher) SendToUser(userID int64, msg realtime.Message) bool {
	return m.Called(userID, msg).Bool(0)
}

func (m *mockPusher) SendToPair(a, b int64, msg realtime.Message) int {
	return m.Called(a, b, msg).Int(0)
}

func newService(t *testing.T) (*Service, *testutil.Fixture, *mockPusher, *events.Bus) {
	t.Helper()
	fx := testutil.NewFixture(t)
	push := &mockPusher{}
	log := logger.Component(logger.Discard(), "notification")
	bus := events.NewBus(log)
	svc := NewService(fx.Store, push, log)
	svc.Subscribe(bus)
	return svc, fx, push, bus
}

func TestNotifyStoresAndPushes(t *testing.T) {
	svc, fx, push, _ := newService(t)
	ctx := context.Background()
	push.On("SendToUser", fx.Tenant.ID, mock.MatchedBy(func(m realtime.Message) bool {
		return m.Type == "notification"
	})).Return(false)

	svc.Notify(ctx, fx.Tenant.ID, "Hello", "World", domain.NotifBookingApproved)
	svc.Notify(ctx, 0, "Nobody", "skipped", domain.NotifBookingApproved)

	list, unread, err := svc.List(ctx, fx.Tenant.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), unread)
	assert.Equal(t, "Hello", list[0].Title)
	push.AssertNumberOfCalls(t, "SendToUser", 1)
}

func TestMarkReadIsScopedToOwner(t *testing.T) {
	svc, fx, push, _ := newService(t)
	ctx := context.Background()
	push.On("SendToUser", mock.Anything, mock.Anything).Return(true)

	svc.Notify(ctx, fx.Tenant.ID, "Hi", "there", domain.NotifBookingCreated)
	list, _, err := svc.List(ctx, fx.Tenant.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.ErrorIs(t, svc.MarkRead(ctx, fx.Owner.ID, list[0].ID), domain.ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, fx.Tenant.ID, list[0].ID))

	_, unread, err := svc.List(ctx, fx.Tenant.ID, 10)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestEventsNotifyTheRightParty(t *testing.T) {
	svc, fx, push, bus := newService(t)
	ctx := context.Background()
	push.On("SendToUser", mock.Anything, mock.Anything).Return(true)
	push.On("SendToPair", fx.Tenant.ID, fx.Owner.ID, mock.Anything).Return(2)

	base := events.Event{BookingID: fx.Booking.ID, TenantID: fx.Tenant.ID, OwnerID: fx.Owner.ID}
	publish := func(typ, reason string) {
		e := base
		e.Type, e.Reason = typ, reason
		bus.Publish(ctx, e)
	}

	publish(events.BookingCreated, "")
	publish(events.BookingApproved, "")
	publish(events.AgreementSigned, "tenant")
	publish(events.AgreementSealed, "")
	publish(events.MoveInCompleted, "")

	tenantList, _, err := svc.List(ctx, fx.Tenant.ID, 50)
	require.NoError(t, err)
	ownerList, _, err := svc.List(ctx, fx.Owner.ID, 50)
	require.NoError(t, err)

	types := func(list []domain.Notification) []domain.NotificationType {
		out := make([]domain.NotificationType, 0, len(list))
		for _, n := range list {
			out = append(out, n.Type)
		}
		return out
	}
	assert.ElementsMatch(t, []domain.NotificationType{
		domain.NotifBookingApproved, domain.NotifAgreementSealed,
	}, types(tenantList))
	assert.ElementsMatch(t, []domain.NotificationType{
		domain.NotifBookingCreated, domain.NotifAgreementSigned, domain.NotifAgreementSealed, domain.NotifMoveInCompleted,
	}, types(ownerList))
	push.AssertNumberOfCalls(t, "SendToPair", 2)
}
