// Package events is the in-process publish/subscribe layer shared by the
// quotation, bidding and notification modules. It holds no domain types.
package events

import (
	"context"
	"time"
)

// Event is anything published on the bus. EventName is the routing key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the time the state change was committed.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// BaseAt stamps an event with the caller's clock so tests stay deterministic.
func BaseAt(at time.Time) BaseEvent {
	return BaseEvent{Timestamp: at.UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events by name. Publish is fire-and-forget; PublishSync
// returns the joined handler errors.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}

// Drainer is implemented by buses that run handlers asynchronously.
type Drainer interface {
	Wait()
}

var _ Drainer = (*InMemoryBus)(nil)
