// Package pipeline chains the five scan stages over the task state machine.
// Stages are event-driven: each completion publishes the next stage's event,
// keyed by task ID so one task's chain stays ordered. Stage handlers are
// stateless and re-read prior-stage output from the store, which makes every
// stage an independently retryable unit of work.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/events"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

// StageRunner executes one pipeline stage for a task and returns the result
// subtree to commit under the stage's key. Runners swallow per-item failures;
// a returned error fails the whole task.
type StageRunner interface {
	Run(ctx context.Context, task *scanning.Task) (json.RawMessage, error)
}

// Coordinator drives tasks through the stage chain. It consumes pipeline
// events, executes the matching stage under its budget, commits the stage
// result and publishes the completion event that triggers the next stage.
type Coordinator struct {
	tasks     scanning.TaskRepository
	taskLogs  scanning.TaskLogRepository
	publisher events.DomainEventPublisher
	runners   map[scanning.Stage]StageRunner
	budgets   StageBudgets

	metrics PipelineMetrics
	logger  *logger.Logger
	tracer  trace.Tracer
}

// NewCoordinator assembles a Coordinator. Budgets may be nil to use the
// defaults.
func NewCoordinator(
	tasks scanning.TaskRepository,
	taskLogs scanning.TaskLogRepository,
	publisher events.DomainEventPublisher,
	runners map[scanning.Stage]StageRunner,
	budgets StageBudgets,
	metrics PipelineMetrics,
	log *logger.Logger,
	tracer trace.Tracer,
) *Coordinator {
	if budgets == nil {
		budgets = DefaultStageBudgets()
	}
	return &Coordinator{
		tasks:     tasks,
		taskLogs:  taskLogs,
		publisher: publisher,
		runners:   runners,
		budgets:   budgets,
		metrics:   metrics,
		logger:    log.With("component", "pipeline_coordinator"),
		tracer:    tracer,
	}
}

// Subscribe registers the coordinator on the pipeline event stream. It reacts
// to task creation and to every stage completion that has a successor.
func (c *Coordinator) Subscribe(ctx context.Context, bus events.EventBus) error {
	eventTypes := []events.EventType{scanning.EventTypeTaskCreated}
	for _, stage := range scanning.Stages() {
		if _, ok := stage.Next(); ok {
			eventTypes = append(eventTypes, scanning.StageEventType(stage))
		}
	}
	return bus.Subscribe(ctx, eventTypes, c.handleEvent)
}

func (c *Coordinator) handleEvent(ctx context.Context, evt events.EventEnvelope, ack events.AckFunc) error {
	var err error
	switch payload := evt.Payload.(type) {
	case scanning.TaskCreatedEvent:
		err = c.startTask(ctx, payload.TaskID)
	case scanning.StageCompletedEvent:
		next, ok := payload.Stage.Next()
		if ok {
			err = c.ExecuteStage(ctx, payload.TaskID, next)
		}
	default:
		err = fmt.Errorf("unexpected pipeline event payload %T", evt.Payload)
	}
	ack(err)
	return err
}

// startTask moves a freshly created task to running and executes the first
// stage.
func (c *Coordinator) startTask(ctx context.Context, taskID uuid.UUID) error {
	task, err := c.tasks.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	if err := c.transition(ctx, task, scanning.TaskStatusRunning); err != nil {
		return err
	}
	c.metrics.IncTasksStarted(ctx)
	return c.ExecuteStage(ctx, taskID, scanning.StageDiscovery)
}

// ExecuteStage runs one stage for a task: cancellation check, status
// transition, budgeted execution, result commit and completion event. Budget
// exhaustion and runner errors mark the task failed.
func (c *Coordinator) ExecuteStage(ctx context.Context, taskID uuid.UUID, stage scanning.Stage) error {
	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("pipeline.%s", stage),
		trace.WithAttributes(attribute.String("task_id", taskID.String())))
	defer span.End()

	task, err := c.tasks.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task.Status().IsTerminal() {
		c.logger.Info(ctx, "Skipping stage for terminal task",
			"task_id", taskID, "stage", stage, "status", task.Status())
		return nil
	}
	if task.CancelRequested() {
		return c.stopTask(ctx, task, stage)
	}

	runner, ok := c.runners[stage]
	if !ok {
		return c.failTask(ctx, task, stage, fmt.Errorf("no runner registered for stage %s", stage))
	}

	if stage == scanning.StageDiscovery && task.EnumerateSubdomains() {
		if err := c.transition(ctx, task, scanning.TaskStatusEnumeratingSubdomains); err != nil {
			return err
		}
	}
	if err := c.transition(ctx, task, stage.RunningStatus()); err != nil {
		return err
	}
	c.appendLog(ctx, taskID, stage, scanning.LogLevelInfo, fmt.Sprintf("Stage %s started", stage))

	budget := c.budgets.budget(stage)
	stageCtx, cancel := context.WithTimeout(ctx, budget.Hard)
	started := time.Now()
	result, runErr := runner.Run(stageCtx, task)
	elapsed := time.Since(started)
	cancel()

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "stage failed")
		if errors.Is(runErr, context.DeadlineExceeded) {
			runErr = fmt.Errorf("stage %s exceeded its %s budget: %w", stage, budget.Hard, runErr)
		}
		return c.failTask(ctx, task, stage, runErr)
	}
	if elapsed > budget.Soft {
		c.logger.Warn(ctx, "Stage exceeded soft budget",
			"task_id", taskID, "stage", stage, "elapsed", elapsed, "soft_budget", budget.Soft)
	}

	task.SetStageResult(stage, result)
	if err := c.transition(ctx, task, stage.CompletedStatus()); err != nil {
		return err
	}
	c.metrics.IncStageCompleted(ctx, string(stage))
	c.metrics.ObserveStageDuration(ctx, string(stage), elapsed)
	c.appendLog(ctx, taskID, stage, scanning.LogLevelInfo,
		fmt.Sprintf("Stage %s completed in %s", stage, elapsed.Round(time.Millisecond)))

	evt := scanning.NewStageCompletedEvent(taskID, stage)
	if err := c.publisher.PublishDomainEvent(ctx, evt, events.WithKey(taskID.String())); err != nil {
		return fmt.Errorf("publish %s completion for task %s: %w", stage, taskID, err)
	}
	c.logger.Info(ctx, "Stage completed",
		"task_id", taskID, "stage", stage, "elapsed", elapsed)
	return nil
}

// transition advances the task status and persists it. A backward or
// same-state transition is tolerated so redelivered stage events stay
// idempotent.
func (c *Coordinator) transition(ctx context.Context, task *scanning.Task, target scanning.TaskStatus) error {
	if err := task.UpdateStatus(target); err != nil {
		c.logger.Warn(ctx, "Skipping status transition",
			"task_id", task.ID(), "from", task.Status(), "to", target, "error", err)
	}
	if err := c.tasks.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("persist task %s: %w", task.ID(), err)
	}
	return nil
}

func (c *Coordinator) stopTask(ctx context.Context, task *scanning.Task, stage scanning.Stage) error {
	if err := task.UpdateStatus(scanning.TaskStatusStopped); err != nil {
		return fmt.Errorf("stop task %s: %w", task.ID(), err)
	}
	if err := c.tasks.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("persist task %s: %w", task.ID(), err)
	}
	c.metrics.IncTasksStopped(ctx)
	c.appendLog(ctx, task.ID(), stage, scanning.LogLevelWarn,
		fmt.Sprintf("Cancellation honored before stage %s", stage))

	evt := scanning.NewTaskCancelledEvent(task.ID(), stage)
	if err := c.publisher.PublishDomainEvent(ctx, evt, events.WithKey(task.ID().String())); err != nil {
		c.logger.Error(ctx, "Failed to publish cancellation", "task_id", task.ID(), "error", err)
	}
	c.logger.Info(ctx, "Task stopped", "task_id", task.ID(), "stage", stage)
	return nil
}

func (c *Coordinator) failTask(ctx context.Context, task *scanning.Task, stage scanning.Stage, cause error) error {
	if err := task.UpdateStatus(scanning.TaskStatusFailed); err != nil {
		return fmt.Errorf("fail task %s: %w", task.ID(), err)
	}
	if err := c.tasks.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("persist task %s: %w", task.ID(), err)
	}
	c.metrics.IncStageFailed(ctx, string(stage))
	c.appendLog(ctx, task.ID(), stage, scanning.LogLevelError,
		fmt.Sprintf("Stage %s failed: %v", stage, cause))

	evt := scanning.NewTaskFailedEvent(task.ID(), stage, cause.Error())
	if err := c.publisher.PublishDomainEvent(ctx, evt, events.WithKey(task.ID().String())); err != nil {
		c.logger.Error(ctx, "Failed to publish task failure", "task_id", task.ID(), "error", err)
	}
	c.logger.Error(ctx, "Stage failed",
		"task_id", task.ID(), "stage", stage, "error", cause)
	return nil
}

// appendLog records a task progress entry. Log persistence is best-effort and
// never interrupts the pipeline.
func (c *Coordinator) appendLog(ctx context.Context, taskID uuid.UUID, stage scanning.Stage, level scanning.LogLevel, msg string) {
	entry := scanning.NewTaskLog(taskID, stage, level, msg)
	if err := c.taskLogs.AppendLog(ctx, entry); err != nil {
		c.logger.Warn(ctx, "Failed to append task log", "task_id", taskID, "error", err)
	}
}
