// Package bus decouples the Telegram transport from the gateway workers:
// the transport publishes inbound events, the workers consume them.
package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBusClosed is returned when publishing to a closed EventBus.
var ErrBusClosed = errors.New("event bus closed")

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

func (b *EventBus) Publish(ctx context.Context, ev Event) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	select {
	case b.events <- ev:
		return nil
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *EventBus) Consume(ctx context.Context) (Event, bool) {
	select {
	case ev, ok := <-b.events:
		return ev, ok
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
