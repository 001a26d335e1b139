// Package pubsub fans typed events out to subscribers and feeds them into
// the Bubble Tea update loop.
package pubsub

import (
	"context"
	"time"
)

// EventType names what happened.
type EventType string

// Form store events.
const (
	ValuesChanged   EventType = "values_changed"
	TouchedChanged  EventType = "touched_changed"
	ErrorsChanged   EventType = "errors_changed"
	ServerResponded EventType = "server_responded"
	DraftReplaced   EventType = "draft_replaced"
)

// Event is one published event. Seq increases by one per Publish call on a
// broker, so a gap tells a subscriber it missed deliveries.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Seq       uint64
	Timestamp time.Time
}

// Subscriber hands out subscriptions. With no types every event is
// delivered.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context, types ...EventType) <-chan Event[T]
}

// Publisher publishes events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
