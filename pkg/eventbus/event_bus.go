// Package eventbus publishes engine lifecycle events for external
// subscribers (notification services, analytics). The engine only ever
// publishes; it never consumes its own events.
package eventbus

import (
	"context"

	"github.com/betoarts/masszap/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler)
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
