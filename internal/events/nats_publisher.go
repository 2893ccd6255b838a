package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// PublishFunc is the callback signature for publishing raw payloads.
type PublishFunc func(subject string, data []byte) error

// NATSPublisher forwards lifecycle events to a NATS subject tree so other
// services can react to ticket changes.
type NATSPublisher struct {
	publish PublishFunc
	prefix  string
	logger  *zap.Logger
}

// NewNATSPublisher wires a publisher around an existing connection.
func NewNATSPublisher(nc *nats.Conn, prefix string, logger *zap.Logger) *NATSPublisher {
	return NewPublisherFunc(nc.Publish, prefix, logger)
}

// NewPublisherFunc builds a publisher from a raw publish callback.
func NewPublisherFunc(publish PublishFunc, prefix string, logger *zap.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = "complaints.events"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{publish: publish, prefix: strings.TrimSuffix(prefix, "."), logger: logger}
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType EventType) string {
	return p.prefix + "." + string(eventType)
}

// Handle publishes the event; it satisfies EventHandler.
func (p *NATSPublisher) Handle(_ context.Context, event Event) error {
	payload, err := json.Marshal(struct {
		Event
		TicketID string `json:"ticket_id"`
	}{Event: event, TicketID: event.TicketID})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.publish(p.Subject(event.Type), payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", event.Type, err)
	}
	p.logger.Debug("event published", zap.String("subject", p.Subject(event.Type)), zap.String("ticket_id", event.TicketID))
	return nil
}

// Register subscribes the publisher to every lifecycle event type.
func (p *NATSPublisher) Register(d Dispatcher) {
	for _, t := range []EventType{EventNewTicket, EventStatusUpdate, EventAssignmentUpdate} {
		d.Subscribe(t, p.Handle)
	}
}
