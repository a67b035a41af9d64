package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/events"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	kafkabus "github.com/SaTyAbHr2005/sentrix/internal/infra/eventbus/kafka"
	"github.com/SaTyAbHr2005/sentrix/internal/infra/eventbus/memory"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

// wireCoordinator assembles a coordinator on the in-memory bus. The bus
// delivers synchronously, so a published TaskCreatedEvent drives the full
// stage chain before Publish returns.
func wireCoordinator(
	t *testing.T,
	tasks *fakeTaskRepo,
	runners map[scanning.Stage]StageRunner,
) (*memory.EventBus, events.DomainEventPublisher, *fakeLogRepo) {
	t.Helper()

	bus := memory.NewEventBus()
	publisher := kafkabus.NewDomainEventPublisher(bus)
	logs := &fakeLogRepo{}
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	tracer := noop.NewTracerProvider().Tracer("test")

	coord := NewCoordinator(tasks, logs, publisher, runners, nil, &fakeMetrics{}, log, tracer)
	require.NoError(t, coord.Subscribe(context.Background(), bus))
	return bus, publisher, logs
}

func allStageRunners() map[scanning.Stage]StageRunner {
	runners := make(map[scanning.Stage]StageRunner, len(scanning.Stages()))
	for _, stage := range scanning.Stages() {
		runners[stage] = &stubRunner{result: json.RawMessage(`{"items":1}`)}
	}
	return runners
}

func TestPipeline_TaskCreatedRunsAllStages(t *testing.T) {
	t.Parallel()

	task := scanning.NewTask("https://example.com", false, 0)
	tasks := newFakeTaskRepo(task)
	runners := allStageRunners()
	_, publisher, logs := wireCoordinator(t, tasks, runners)

	created := scanning.NewTaskCreatedEvent(task.ID(), task.SeedURL(), task.EnumerateSubdomains())
	err := publisher.PublishDomainEvent(context.Background(), created, events.WithKey(task.ID().String()))
	require.NoError(t, err)

	stored, err := tasks.GetTask(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, scanning.TaskStatusFinished, stored.Status())

	for _, stage := range scanning.Stages() {
		result, ok := stored.StageResult(stage)
		require.True(t, ok, "missing result for stage %s", stage)
		assert.JSONEq(t, `{"items":1}`, string(result))
		assert.Equal(t, 1, runners[stage].(*stubRunner).calls)
	}

	entries, err := logs.ListLogsByTask(context.Background(), task.ID())
	require.NoError(t, err)
	// Started and completed entry per stage.
	assert.Len(t, entries, 2*len(scanning.Stages()))
}

func TestPipeline_FailedStageHaltsChain(t *testing.T) {
	t.Parallel()

	task := scanning.NewTask("https://example.com", false, 0)
	tasks := newFakeTaskRepo(task)
	runners := allStageRunners()
	runners[scanning.StageValidation] = &stubRunner{err: assert.AnError}
	_, publisher, _ := wireCoordinator(t, tasks, runners)

	created := scanning.NewTaskCreatedEvent(task.ID(), task.SeedURL(), task.EnumerateSubdomains())
	err := publisher.PublishDomainEvent(context.Background(), created, events.WithKey(task.ID().String()))
	require.NoError(t, err)

	stored, err := tasks.GetTask(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, scanning.TaskStatusFailed, stored.Status())

	assert.Equal(t, 1, runners[scanning.StageDetection].(*stubRunner).calls)
	assert.Zero(t, runners[scanning.StageCorrelation].(*stubRunner).calls)
	assert.Zero(t, runners[scanning.StageRisk].(*stubRunner).calls)
}

func TestPipeline_CancellationStopsBetweenStages(t *testing.T) {
	t.Parallel()

	task := scanning.NewTask("https://example.com", false, 0)
	tasks := newFakeTaskRepo(task)
	runners := allStageRunners()

	// Flag cancellation while detection runs so the next stage observes it.
	runners[scanning.StageDetection] = &cancelDuringRun{repo: tasks}
	_, publisher, _ := wireCoordinator(t, tasks, runners)

	created := scanning.NewTaskCreatedEvent(task.ID(), task.SeedURL(), task.EnumerateSubdomains())
	err := publisher.PublishDomainEvent(context.Background(), created, events.WithKey(task.ID().String()))
	require.NoError(t, err)

	stored, err := tasks.GetTask(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, scanning.TaskStatusStopped, stored.Status())
	assert.Zero(t, runners[scanning.StageValidation].(*stubRunner).calls)
}

type cancelDuringRun struct {
	repo *fakeTaskRepo
}

func (r *cancelDuringRun) Run(ctx context.Context, task *scanning.Task) (json.RawMessage, error) {
	stored, err := r.repo.GetTask(ctx, task.ID())
	if err != nil {
		return nil, err
	}
	stored.RequestCancel()
	if err := r.repo.UpdateTask(ctx, stored); err != nil {
		return nil, err
	}
	return json.RawMessage(`{"items":1}`), nil
}
