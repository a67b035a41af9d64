// Package memory provides an in-memory implementation of the event bus.
// It offers a lightweight, non-persistent broker suitable for testing and
// development environments where durability is not required.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/events"
)

var _ events.EventBus = (*EventBus)(nil)

// EventBus is an in-memory events.EventBus. Published events are delivered
// synchronously to every subscriber registered for the event's type, which
// makes pipeline behavior deterministic in tests.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[events.EventType][]events.HandlerFunc
	closed   bool
}

// NewEventBus creates an empty in-memory event bus.
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[events.EventType][]events.HandlerFunc)}
}

// Publish delivers the event to all handlers subscribed to its type. Handler
// errors are joined and returned to the caller.
func (b *EventBus) Publish(ctx context.Context, event events.EventEnvelope, opts ...events.PublishOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var pParams events.PublishParams
	for _, opt := range opts {
		opt(&pParams)
	}
	if pParams.Key != "" {
		event.Key = pParams.Key
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return errors.New("event bus is closed")
	}
	handlersCopy := make([]events.HandlerFunc, len(b.handlers[event.Type]))
	copy(handlersCopy, b.handlers[event.Type])
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlersCopy {
		ack := func(err error) {
			if err != nil {
				errs = append(errs, err)
			}
		}
		if err := handler(ctx, event, ack); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(ctx context.Context, eventTypes []events.EventType, handler events.HandlerFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("event bus is closed")
	}
	for _, et := range eventTypes {
		b.handlers[et] = append(b.handlers[et], handler)
	}
	return nil
}

// Close marks the bus closed. Subsequent publishes and subscriptions fail.
func (b *EventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[events.EventType][]events.HandlerFunc)
	return nil
}
