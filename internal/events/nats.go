package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const subjectPrefix = "pgstay."

// NATSBridge forwards bus events to NATS subjects pgstay.<event_type> and
// feeds selected inbound subjects back into the bus.
type NATSBridge struct {
	conn *nats.Conn
	log  *logrus.Entry
	subs []*nats.Subscription
}

func ConnectNATS(url string, log *logrus.Entry) (*NATSBridge, error) {
	opts := []nats.Option{
		nats.Name("pgstay"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.WithField("url", url).Info("NATS event bridge connected")
	return &NATSBridge{conn: conn, log: log}, nil
}

func (n *NATSBridge) Forward(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return n.conn.Publish(subjectPrefix+e.Type, data)
}

// Listen subscribes to inbound event types and delivers them to bus.
func (n *NATSBridge) Listen(bus *Bus, eventTypes ...string) error {
	for _, et := range eventTypes {
		sub, err := n.conn.Subscribe(subjectPrefix+et, func(msg *nats.Msg) {
			var e Event
			if err := json.Unmarshal(msg.Data, &e); err != nil {
				n.log.WithError(err).WithField("subject", msg.Subject).Warn("dropping malformed event")
				return
			}
			if e.Type == "" {
				e.Type = et
			}
			bus.Deliver(context.Background(), e)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", et, err)
		}
		n.subs = append(n.subs, sub)
	}
	return nil
}

func (n *NATSBridge) Close() {
	for _, s := range n.subs {
		_ = s.Unsubscribe()
	}
	n.conn.Close()
}
