package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/observability"
)

// Bus fans events out to in-process subscribers in subscription order.
// A failing subscriber does not stop delivery to the others.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// anyType subscribes a handler to every event type
const anyType = "*"

func NewBus(metrics *observability.Metrics, logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]namedHandler),
		metrics:  metrics,
		logger:   logger,
	}
}

// Subscribe registers handler for the given event types, or for all of them when none are given
func (b *Bus) Subscribe(name string, handler Handler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = []string{anyType}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, eventType := range eventTypes {
		b.handlers[eventType] = append(b.handlers[eventType], namedHandler{name: name, handler: handler})
	}
}

func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	b.mu.RLock()
	targets := make([]namedHandler, 0, len(b.handlers[event.Type])+len(b.handlers[anyType]))
	targets = append(targets, b.handlers[event.Type]...)
	targets = append(targets, b.handlers[anyType]...)
	b.mu.RUnlock()

	var errs []error
	for _, target := range targets {
		if err := target.handler(ctx, event); err != nil {
			b.logger.Warn().
				Err(err).
				Str("subscriber", target.name).
				Str("event_type", event.Type).
				Str("event_id", event.ID.String()).
				Msg("event handler failed")
			b.observe(event.Type, "error")
			errs = append(errs, fmt.Errorf("%s: %w", target.name, err))
			continue
		}
		b.observe(event.Type, "ok")
	}
	return errors.Join(errs...)
}

func (b *Bus) observe(eventType, outcome string) {
	if b.metrics != nil {
		b.metrics.EventsPublished.WithLabelValues(eventType, outcome).Inc()
	}
}
