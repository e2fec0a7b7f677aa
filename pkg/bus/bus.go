// Package bus decouples the transport channel from the interaction handlers:
// the channel publishes inbound events, the run loop consumes them and
// dispatches each one as an independent unit of work.
package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBusClosed is returned when publishing to a closed EventBus.
var ErrBusClosed = errors.New("event bus closed")

// Event is one inbound user interaction: either a message (Text set) or an
// inline button press (CallbackID/CallbackData set).
type Event struct {
	ChatID       int64
	SenderID     int64
	Username     string
	MessageID    int
	Text         string
	CallbackID   string
	CallbackData string
}

// IsCallback reports whether the event is an inline button press.
func (e Event) IsCallback() bool {
	return e.CallbackID != ""
}

type EventBus struct {
	events chan Event
	done   chan struct{}
	closed atomic.Bool
}

func NewEventBus() *EventBus {
	return &EventBus{
		events: make(chan Event, 100),
		done:   make(chan struct{}),
	}
}

func (b *EventBus) Publish(ctx context.Context, e Event) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	select {
	case b.events <- e:
		return nil
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *EventBus) Consume(ctx context.Context) (Event, bool) {
	select {
	case e, ok := <-b.events:
		return e, ok
	case <-b.done:
		return Event{}, false
	case <-ctx.Done():
		return Event{}, false
	}
}

func (b *EventBus) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.done)
	}
}
