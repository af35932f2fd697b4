// Package events provides the in-process event bus used to decouple pipeline
// transitions from their downstream consumers (notifications, escalation).
// This is part of the platform layer and contains no business logic.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the occurrence time shared by all events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

// NewBaseEventAt stamps an event with the given time.
func NewBaseEventAt(at time.Time) BaseEvent {
	return BaseEvent{Timestamp: at.UTC()}
}

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc is an adapter to allow ordinary functions to be used as handlers.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events and fans them out to subscribers.
type Bus interface {
	// Publish dispatches asynchronously; failures are logged, not returned.
	Publish(ctx context.Context, event Event)
	// PublishSync dispatches and waits for every handler.
	PublishSync(ctx context.Context, event Event) error
	// Subscribe registers a handler for the value returned by Event.EventName().
	Subscribe(eventName string, handler Handler)
}
