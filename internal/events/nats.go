package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/segyhp/lending-engine/internal/domain"
)

const (
	// StreamName is the JetStream stream carrying lending domain events
	StreamName    = "LENDING_EVENTS"
	subjectPrefix = "lending.events"
)

// JetStreamPublisher is the subset of jetstream.JetStream used for publishing
type JetStreamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes domain events as JSON to lending.events.{type}
type NATSPublisher struct {
	js     JetStreamPublisher
	logger zerolog.Logger
}

func NewNATSPublisher(js JetStreamPublisher, logger zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{js: js, logger: logger}
}

// Subject returns the subject an event type is published on
func Subject(eventType string) string {
	return fmt.Sprintf("%s.%s", subjectPrefix, eventType)
}

func (p *NATSPublisher) Publish(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// the event id doubles as the JetStream dedup id
	ack, err := p.js.Publish(ctx, Subject(event.Type), data, jetstream.WithMsgID(event.ID.String()))
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.logger.Debug().
		Str("event_type", event.Type).
		Str("event_id", event.ID.String()).
		Uint64("stream_seq", ack.Sequence).
		Msg("event published")
	return nil
}

// EnsureStream creates or updates the outbound events stream
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{subjectPrefix + ".>"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     72 * time.Hour,
		Duplicates: 2 * time.Minute,
		Replicas:   1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	return nil
}

// ForwardToNATS connects to url, ensures the stream and subscribes a JetStream
// publisher to every event on bus. The caller drains the returned connection.
func ForwardToNATS(ctx context.Context, url, clientName string, bus *Bus, logger zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name(clientName))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := EnsureStream(ctx, js); err != nil {
		nc.Close()
		return nil, err
	}

	bus.Subscribe("nats", NewNATSPublisher(js, logger).Publish)
	return nc, nil
}
