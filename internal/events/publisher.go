package events

import (
	"context"

	"github.com/segyhp/lending-engine/internal/domain"
)

// Publisher hands a domain event to whatever transports are configured
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Handler consumes one domain event
type Handler func(ctx context.Context, event domain.Event) error

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.Event) error { return nil }
