package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/events"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*scanning.Task
}

func newFakeTaskRepo(tasks ...*scanning.Task) *fakeTaskRepo {
	repo := &fakeTaskRepo{tasks: make(map[uuid.UUID]*scanning.Task)}
	for _, t := range tasks {
		repo.tasks[t.ID()] = t
	}
	return repo
}

func (r *fakeTaskRepo) CreateTask(_ context.Context, task *scanning.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID()] = task
	return nil
}

func (r *fakeTaskRepo) GetTask(_ context.Context, id uuid.UUID) (*scanning.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, scanning.ErrTaskNotFound
	}
	return task, nil
}

func (r *fakeTaskRepo) UpdateTask(_ context.Context, task *scanning.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID()] = task
	return nil
}

func (r *fakeTaskRepo) ListTasks(_ context.Context, _, _ int) ([]*scanning.Task, error) {
	return nil, nil
}
func (r *fakeTaskRepo) DeleteTask(_ context.Context, _ uuid.UUID) error  { return nil }
func (r *fakeTaskRepo) DeleteAllTasks(_ context.Context) (int64, error) { return 0, nil }

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []*scanning.TaskLog
}

func (r *fakeLogRepo) AppendLog(_ context.Context, entry *scanning.TaskLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeLogRepo) ListLogsByTask(_ context.Context, taskID uuid.UUID) ([]*scanning.TaskLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*scanning.TaskLog
	for _, e := range r.entries {
		if e.TaskID() == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *fakePublisher) PublishDomainEvent(_ context.Context, evt events.DomainEvent, _ ...events.PublishOption) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *fakePublisher) published() []events.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.DomainEvent(nil), p.events...)
}

type stubRunner struct {
	result json.RawMessage
	err    error
	block  bool
	calls  int
}

func (r *stubRunner) Run(ctx context.Context, _ *scanning.Task) (json.RawMessage, error) {
	r.calls++
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return r.result, r.err
}

func testCoordinator(
	t *testing.T,
	tasks *fakeTaskRepo,
	runners map[scanning.Stage]StageRunner,
	budgets StageBudgets,
) (*Coordinator, *fakeLogRepo, *fakePublisher) {
	t.Helper()
	logs := &fakeLogRepo{}
	publisher := &fakePublisher{}
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewCoordinator(tasks, logs, publisher, runners, budgets, &fakeMetrics{}, log, tracer), logs, publisher
}

type fakeMetrics struct {
	mu              sync.Mutex
	started         int
	stopped         int
	stagesCompleted int
	stagesFailed    int
}

func (m *fakeMetrics) IncMessagePublished(context.Context, string) {}
func (m *fakeMetrics) IncMessageConsumed(context.Context, string)  {}
func (m *fakeMetrics) IncPublishError(context.Context, string)     {}
func (m *fakeMetrics) IncConsumeError(context.Context, string)     {}

func (m *fakeMetrics) IncTasksStarted(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *fakeMetrics) IncTasksStopped(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped++
}

func (m *fakeMetrics) IncStageCompleted(_ context.Context, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stagesCompleted++
}

func (m *fakeMetrics) IncStageFailed(_ context.Context, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stagesFailed++
}

func (m *fakeMetrics) ObserveStageDuration(context.Context, string, time.Duration) {}

func runningTask(t *testing.T, status scanning.TaskStatus) *scanning.Task {
	t.Helper()
	task := scanning.NewTask("https://example.com", false, 0)
	if status != scanning.TaskStatusQueued {
		require.NoError(t, task.UpdateStatus(status))
	}
	return task
}

func TestExecuteStage_CommitsResultAndPublishesCompletion(t *testing.T) {
	t.Parallel()

	task := runningTask(t, scanning.TaskStatusRunning)
	tasks := newFakeTaskRepo(task)
	runner := &stubRunner{result: json.RawMessage(`{"pages_scanned":1}`)}
	coord, logs, publisher := testCoordinator(t, tasks,
		map[scanning.Stage]StageRunner{scanning.StageDiscovery: runner}, nil)

	require.NoError(t, coord.ExecuteStage(context.Background(), task.ID(), scanning.StageDiscovery))

	stored, err := tasks.GetTask(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, scanning.TaskStatusDiscoveryDone, stored.Status())

	result, ok := stored.StageResult(scanning.StageDiscovery)
	require.True(t, ok)
	assert.JSONEq(t, `{"pages_scanned":1}`, string(result))

	published := publisher.published()
	require.Len(t, published, 1)
	completed, ok := published[0].(scanning.StageCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, task.ID(), completed.TaskID)
	assert.Equal(t, scanning.StageDiscovery, completed.Stage)

	entries, err := logs.ListLogsByTask(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestExecuteStage_RunnerErrorFailsTask(t *testing.T) {
	t.Parallel()

	task := runningTask(t, scanning.TaskStatusDiscoveryDone)
	tasks := newFakeTaskRepo(task)
	runner := &stubRunner{err: errors.New("rule cache unavailable")}
	coord, _, publisher := testCoordinator(t, tasks,
		map[scanning.Stage]StageRunner{scanning.StageDetection: runner}, nil)

	require.NoError(t, coord.ExecuteStage(context.Background(), task.ID(), scanning.StageDetection))

	stored, err := tasks.GetTask(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, scanning.TaskStatusFailed, stored.Status())

	published := publisher.published()
	require.Len(t, published, 1)
	failed, ok := published[0].(scanning.TaskFailedEvent)
	require.True(t, ok)
	assert.Contains(t, failed.Reason, "rule cache unavailable")
}

func TestExecuteStage_BudgetExhaustionFailsTask(t *testing.T) {
	t.Parallel()

	task := runningTask(t, scanning.TaskStatusRunning)
	tasks := newFakeTaskRepo(task)
	runner := &stubRunner{block: true}
	budgets := StageBudgets{
		scanning.StageDiscovery: {Soft: 5 * time.Millisecond, Hard: 20 * time.Millisecond},
	}
	coord, _, publisher := testCoordinator(t, tasks,
		map[scanning.Stage]StageRunner{scanning.StageDiscovery: runner}, budgets)

	require.NoError(t, coord.ExecuteStage(context.Background(), task.ID(), scanning.StageDiscovery))

	stored, err := tasks.GetTask(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, scanning.TaskStatusFailed, stored.Status())

	published := publisher.published()
	require.Len(t, published, 1)
	failed, ok := published[0].(scanning.TaskFailedEvent)
	require.True(t, ok)
	assert.Contains(t, failed.Reason, "budget")
}

func TestExecuteStage_CancellationStopsTask(t *testing.T) {
	t.Parallel()

	task := runningTask(t, scanning.TaskStatusDetectionDone)
	task.RequestCancel()
	tasks := newFakeTaskRepo(task)
	runner := &stubRunner{result: json.RawMessage(`{}`)}
	coord, _, publisher := testCoordinator(t, tasks,
		map[scanning.Stage]StageRunner{scanning.StageValidation: runner}, nil)

	require.NoError(t, coord.ExecuteStage(context.Background(), task.ID(), scanning.StageValidation))

	stored, err := tasks.GetTask(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, scanning.TaskStatusStopped, stored.Status())
	assert.Zero(t, runner.calls)

	published := publisher.published()
	require.Len(t, published, 1)
	_, ok := published[0].(scanning.TaskCancelledEvent)
	assert.True(t, ok)
}

func TestExecuteStage_SkipsTerminalTask(t *testing.T) {
	t.Parallel()

	task := runningTask(t, scanning.TaskStatusFailed)
	tasks := newFakeTaskRepo(task)
	runner := &stubRunner{result: json.RawMessage(`{}`)}
	coord, _, publisher := testCoordinator(t, tasks,
		map[scanning.Stage]StageRunner{scanning.StageDetection: runner}, nil)

	require.NoError(t, coord.ExecuteStage(context.Background(), task.ID(), scanning.StageDetection))
	assert.Zero(t, runner.calls)
	assert.Empty(t, publisher.published())
}

func TestExecuteStage_RedeliveryOverwritesStageResult(t *testing.T) {
	t.Parallel()

	task := runningTask(t, scanning.TaskStatusRunning)
	task.SetStageResult(scanning.StageDiscovery, json.RawMessage(`{"pages_scanned":99}`))
	tasks := newFakeTaskRepo(task)
	runner := &stubRunner{result: json.RawMessage(`{"pages_scanned":1}`)}
	coord, _, _ := testCoordinator(t, tasks,
		map[scanning.Stage]StageRunner{scanning.StageDiscovery: runner}, nil)

	require.NoError(t, coord.ExecuteStage(context.Background(), task.ID(), scanning.StageDiscovery))

	stored, err := tasks.GetTask(context.Background(), task.ID())
	require.NoError(t, err)
	result, ok := stored.StageResult(scanning.StageDiscovery)
	require.True(t, ok)
	assert.JSONEq(t, `{"pages_scanned":1}`, string(result))
}

func TestHandleEvent_TaskCreatedRunsDiscovery(t *testing.T) {
	t.Parallel()

	task := runningTask(t, scanning.TaskStatusQueued)
	tasks := newFakeTaskRepo(task)
	runner := &stubRunner{result: json.RawMessage(`{}`)}
	coord, _, _ := testCoordinator(t, tasks,
		map[scanning.Stage]StageRunner{scanning.StageDiscovery: runner}, nil)

	var acked bool
	evt := events.EventEnvelope{
		Type:    scanning.EventTypeTaskCreated,
		Payload: scanning.NewTaskCreatedEvent(task.ID(), task.SeedURL(), false),
	}
	require.NoError(t, coord.handleEvent(context.Background(), evt, func(error) { acked = true }))
	assert.True(t, acked)
	assert.Equal(t, 1, runner.calls)

	stored, err := tasks.GetTask(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, scanning.TaskStatusDiscoveryDone, stored.Status())
}

func TestHandleEvent_StageCompletedTriggersNextStage(t *testing.T) {
	t.Parallel()

	task := runningTask(t, scanning.TaskStatusDiscoveryDone)
	tasks := newFakeTaskRepo(task)
	runner := &stubRunner{result: json.RawMessage(`{}`)}
	coord, _, _ := testCoordinator(t, tasks,
		map[scanning.Stage]StageRunner{scanning.StageDetection: runner}, nil)

	evt := events.EventEnvelope{
		Type:    scanning.EventTypeDiscoveryCompleted,
		Payload: scanning.NewStageCompletedEvent(task.ID(), scanning.StageDiscovery),
	}
	require.NoError(t, coord.handleEvent(context.Background(), evt, func(error) {}))
	assert.Equal(t, 1, runner.calls)
}

func TestHandleEvent_LastStageHasNoSuccessor(t *testing.T) {
	t.Parallel()

	tasks := newFakeTaskRepo()
	coord, _, _ := testCoordinator(t, tasks, nil, nil)

	evt := events.EventEnvelope{
		Type:    scanning.EventTypeRiskCompleted,
		Payload: scanning.NewStageCompletedEvent(uuid.New(), scanning.StageRisk),
	}
	require.NoError(t, coord.handleEvent(context.Background(), evt, func(error) {}))
}
