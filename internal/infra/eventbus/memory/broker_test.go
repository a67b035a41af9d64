package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/events"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
)

func TestPublishAndSubscribe(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	ctx := context.Background()

	created := scanning.NewTaskCreatedEvent(uuid.New(), "https://example.com", false)

	var received events.EventEnvelope
	err := bus.Subscribe(ctx, []events.EventType{scanning.EventTypeTaskCreated},
		func(_ context.Context, evt events.EventEnvelope, ack events.AckFunc) error {
			received = evt
			ack(nil)
			return nil
		})
	require.NoError(t, err)

	err = bus.Publish(ctx, events.EventEnvelope{
		Type:    scanning.EventTypeTaskCreated,
		Payload: created,
	}, events.WithKey(created.TaskID.String()))
	require.NoError(t, err)

	assert.Equal(t, scanning.EventTypeTaskCreated, received.Type)
	assert.Equal(t, created.TaskID.String(), received.Key)
	assert.Equal(t, created, received.Payload)
	assert.False(t, received.Timestamp.IsZero())
}

func TestMultipleSubscribers(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	ctx := context.Background()

	var mu sync.Mutex
	delivered := 0
	for i := 0; i < 3; i++ {
		err := bus.Subscribe(ctx, []events.EventType{scanning.EventTypeTaskCreated},
			func(_ context.Context, _ events.EventEnvelope, ack events.AckFunc) error {
				mu.Lock()
				delivered++
				mu.Unlock()
				ack(nil)
				return nil
			})
		require.NoError(t, err)
	}

	err := bus.Publish(ctx, events.EventEnvelope{Type: scanning.EventTypeTaskCreated})
	require.NoError(t, err)
	assert.Equal(t, 3, delivered)
}

func TestPublishReturnsHandlerError(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	ctx := context.Background()
	handlerErr := errors.New("handler failed")

	err := bus.Subscribe(ctx, []events.EventType{scanning.EventTypeTaskCreated},
		func(_ context.Context, _ events.EventEnvelope, ack events.AckFunc) error {
			ack(handlerErr)
			return nil
		})
	require.NoError(t, err)

	err = bus.Publish(ctx, events.EventEnvelope{Type: scanning.EventTypeTaskCreated})
	assert.ErrorIs(t, err, handlerErr)
}

func TestPublishSkipsUnrelatedEventTypes(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	ctx := context.Background()

	calls := 0
	err := bus.Subscribe(ctx, []events.EventType{scanning.EventTypeTaskCreated},
		func(_ context.Context, _ events.EventEnvelope, ack events.AckFunc) error {
			calls++
			ack(nil)
			return nil
		})
	require.NoError(t, err)

	err = bus.Publish(ctx, events.EventEnvelope{Type: scanning.EventTypeTaskFailed})
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestClosedBusRejectsOperations(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	ctx := context.Background()
	require.NoError(t, bus.Close())

	err := bus.Publish(ctx, events.EventEnvelope{Type: scanning.EventTypeTaskCreated})
	assert.Error(t, err)

	err = bus.Subscribe(ctx, []events.EventType{scanning.EventTypeTaskCreated},
		func(context.Context, events.EventEnvelope, events.AckFunc) error { return nil })
	assert.Error(t, err)
}

func TestSubscribeRejectsNilHandler(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	err := bus.Subscribe(context.Background(), []events.EventType{scanning.EventTypeTaskCreated}, nil)
	assert.Error(t, err)
}
