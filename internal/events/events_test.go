package events

import (
	"context"
	"errors"
	"testing"

	"pgstay/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

type recordingForwarder struct {
	events []Event
	err    error
}

func (r *recordingForwarder) Forward(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestBusDispatchesAndForwards(t *testing.T) {
	bus := NewBus(logger.Component(logger.Discard(), "events"))
	fwd := &recordingForwarder{}
	bus.SetForwarder(fwd)

	var got []int64
	bus.Subscribe(BookingApproved, func(_ context.Context, e Event) error {
		got = append(got, e.BookingID)
		return nil
	})
	bus.Subscribe(BookingApproved, func(context.Context, Event) error {
		return errors.New("handler failure does not stop others")
	})

	bus.Publish(context.Background(), Event{Type: BookingApproved, BookingID: 7})
	bus.Publish(context.Background(), Event{Type: BookingRejected, BookingID: 8})

	assert.Equal(t, []int64{7}, got)
	assert.Len(t, fwd.events, 2)
	assert.False(t, fwd.events[0].Timestamp.IsZero())
}

func TestDeliverDoesNotForward(t *testing.T) {
	bus := NewBus(logger.Component(logger.Discard(), "events"))
	fwd := &recordingForwarder{err: errors.New("offline")}
	bus.SetForwarder(fwd)

	calls := 0
	bus.Subscribe(PropertyCreated, func(context.Context, Event) error {
		calls++
		return nil
	})

	bus.Deliver(context.Background(), Event{Type: PropertyCreated, OwnerID: 3})
	assert.Equal(t, 1, calls)
	assert.Empty(t, fwd.events)
}
