package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// SubjectPrefix namespaces every forwarded event
const SubjectPrefix = "casino.events"

// MessagePublisher is the subset of a NATS connection the forwarder needs
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// Envelope wraps an event for the wire
type Envelope struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NATSForwarder relays committed bus events to NATS subjects
type NATSForwarder struct {
	publisher MessagePublisher
	now       func() time.Time
}

// NewNATSForwarder creates a forwarder on top of a publisher
func NewNATSForwarder(publisher MessagePublisher) *NATSForwarder {
	return &NATSForwarder{publisher: publisher, now: time.Now}
}

// Subject maps an event type to its NATS subject
func Subject(eventType EventType) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, eventType)
}

// Attach subscribes the forwarder to every event type on the bus
func (f *NATSForwarder) Attach(bus *Bus) {
	for _, eventType := range AllEventTypes {
		bus.Subscribe(eventType, f.Handle)
	}
}

// Handle is a bus Handler that forwards one event; failures are logged
func (f *NATSForwarder) Handle(_ context.Context, event Event) {
	if err := f.Forward(event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to forward event to NATS")
	}
}

// Forward encodes an event in an envelope and publishes it
func (f *NATSForwarder) Forward(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := Envelope{
		ID:        uuid.New().String(),
		Type:      event.Type(),
		Timestamp: f.now().UTC(),
		Payload:   payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := Subject(event.Type())
	if err := f.publisher.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.WithFields(log.Fields{
		"subject": subject,
		"eventId": envelope.ID,
	}).Debug("Forwarded event to NATS")
	return nil
}

// ConnectNATS dials a NATS server with reconnect handling and logging
func ConnectNATS(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("casino"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			fields := log.Fields{"error": err}
			if sub != nil {
				fields["subject"] = sub.Subject
			}
			log.WithFields(fields).Error("NATS async error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.WithField("url", url).Info("Connected to NATS")
	return nc, nil
}
