package tasks

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func (r *fakeTaskRepo) ListTasks(_ context.Context, limit, offset int) ([]*scanning.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*scanning.Task
	for _, t := range r.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeTaskRepo) DeleteTask(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return scanning.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) DeleteAllTasks(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.tasks))
	r.tasks = make(map[uuid.UUID]*scanning.Task)
	return n, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
	err    error
}

func (p *fakePublisher) PublishDomainEvent(_ context.Context, evt events.DomainEvent, _ ...events.PublishOption) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func testService(repo *fakeTaskRepo, pub *fakePublisher) *Service {
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	return NewService(log, pub, repo, nil, nil, nil, nil, nil)
}

func TestSubmitTask_PersistsAndPublishes(t *testing.T) {
	t.Parallel()

	repo := newFakeTaskRepo()
	pub := &fakePublisher{}
	svc := testService(repo, pub)

	task, err := svc.SubmitTask(context.Background(), "https://example.com", true, 100)
	require.NoError(t, err)

	assert.Equal(t, scanning.TaskStatusQueued, task.Status())
	assert.Equal(t, "https://example.com", task.SeedURL())
	assert.Equal(t, 100, task.AssetCap())

	stored, err := repo.GetTask(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, task.ID(), stored.ID())

	require.Len(t, pub.events, 1)
	created, ok := pub.events[0].(scanning.TaskCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, task.ID(), created.TaskID)
	assert.True(t, created.EnumerateSubdomains)
}

func TestSubmitTask_DefaultsAssetCap(t *testing.T) {
	t.Parallel()

	svc := testService(newFakeTaskRepo(), &fakePublisher{})

	task, err := svc.SubmitTask(context.Background(), "https://example.com", false, 0)
	require.NoError(t, err)
	assert.Equal(t, scanning.DefaultAssetCap, task.AssetCap())
}

func TestStopTask_FlagsCancellation(t *testing.T) {
	t.Parallel()

	task := scanning.NewTask("https://example.com", false, 0)
	require.NoError(t, task.UpdateStatus(scanning.TaskStatusRunning))

	repo := newFakeTaskRepo(task)
	svc := testService(repo, &fakePublisher{})

	stopped, err := svc.StopTask(context.Background(), task.ID())
	require.NoError(t, err)
	assert.True(t, stopped.CancelRequested())

	stored, err := repo.GetTask(context.Background(), task.ID())
	require.NoError(t, err)
	assert.True(t, stored.CancelRequested())
}

func TestStopTask_RejectsTerminalTask(t *testing.T) {
	t.Parallel()

	task := scanning.NewTask("https://example.com", false, 0)
	require.NoError(t, task.UpdateStatus(scanning.TaskStatusFailed))

	svc := testService(newFakeTaskRepo(task), &fakePublisher{})

	_, err := svc.StopTask(context.Background(), task.ID())
	assert.ErrorIs(t, err, ErrTaskFinished)
}

func TestStopTask_UnknownTask(t *testing.T) {
	t.Parallel()

	svc := testService(newFakeTaskRepo(), &fakePublisher{})

	_, err := svc.StopTask(context.Background(), uuid.New())
	assert.ErrorIs(t, err, scanning.ErrTaskNotFound)
}

func TestDeleteAllTasks_ReportsCount(t *testing.T) {
	t.Parallel()

	repo := newFakeTaskRepo(
		scanning.NewTask("https://a.example.com", false, 0),
		scanning.NewTask("https://b.example.com", false, 0),
	)
	svc := testService(repo, &fakePublisher{})

	deleted, err := svc.DeleteAllTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}
