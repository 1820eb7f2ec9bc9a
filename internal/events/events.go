package events

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	BookingCreated   = "booking.created"
	BookingApproved  = "booking.approved"
	BookingRejected  = "booking.rejected"
	PaymentConfirmed = "payment.confirmed"
	PaymentFailed    = "payment.failed"
	AgreementSigned  = "agreement.signed"
	AgreementSealed  = "agreement.sealed"
	MoveInCompleted  = "booking.moved_in"
	TenancyEnded     = "tenancy.ended"
	SettlementDone   = "settlement.done"
	OwnerVerified    = "owner.verification"

	// PropertyCreated is published by the listing service.
	PropertyCreated = "property.created"
)

type Event struct {
	Type       string    `json:"event_type"`
	BookingID  int64     `json:"booking_id,omitempty"`
	PropertyID int64     `json:"property_id,omitempty"`
	TenantID   int64     `json:"tenant_id,omitempty"`
	OwnerID    int64     `json:"owner_id,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Forwarder ships events to another process. *NATSBridge implements it.
type Forwarder interface {
	Forward(ctx context.Context, e Event) error
}

// Bus dispatches events to in-process handlers and, when a forwarder is
// attached, to the outside world. Delivery is at-least-once at best: handler
// and forwarder failures are logged, never returned.
type Bus struct {
	mu        sync.RWMutex
	handlers  map[string][]Handler
	forwarder Forwarder
	log       *logrus.Entry
}

func NewBus(log *logrus.Entry) *Bus {
	return &Bus{handlers: make(map[string][]Handler), log: log}
}

func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

func (b *Bus) SetForwarder(f Forwarder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwarder = f
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	b.dispatch(ctx, e)

	b.mu.RLock()
	fwd := b.forwarder
	b.mu.RUnlock()
	if fwd == nil {
		return
	}
	if err := fwd.Forward(ctx, e); err != nil {
		b.log.WithError(err).WithField("event", e.Type).Warn("event forward failed")
	}
}

// Deliver runs local handlers only. Inbound events from other services come
// through here so they are not echoed back out.
func (b *Bus) Deliver(ctx context.Context, e Event) {
	b.dispatch(ctx, e)
}

func (b *Bus) dispatch(ctx context.Context, e Event) {
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[e.Type]...)
	b.mu.RUnlock()

	for _, h := range hs {
		if err := h(ctx, e); err != nil {
			b.log.WithError(err).WithFields(logrus.Fields{
				"event":      e.Type,
				"booking_id": e.BookingID,
			}).Error("event handler failed")
		}
	}
}
