package scanning

import (
	"time"

	"github.com/google/uuid"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/events"
)

// Event types for the task lifecycle and the stage chain:
const (
	EventTypeTaskCreated   events.EventType = "TaskCreated"
	EventTypeTaskFailed    events.EventType = "TaskFailed"
	EventTypeTaskCancelled events.EventType = "TaskCancelled"

	EventTypeDiscoveryCompleted   events.EventType = "DiscoveryCompleted"
	EventTypeDetectionCompleted   events.EventType = "DetectionCompleted"
	EventTypeValidationCompleted  events.EventType = "ValidationCompleted"
	EventTypeCorrelationCompleted events.EventType = "CorrelationCompleted"
	EventTypeRiskCompleted        events.EventType = "RiskCompleted"
)

// StageEventType returns the completion event type for a stage.
func StageEventType(stage Stage) events.EventType {
	switch stage {
	case StageDiscovery:
		return EventTypeDiscoveryCompleted
	case StageDetection:
		return EventTypeDetectionCompleted
	case StageValidation:
		return EventTypeValidationCompleted
	case StageCorrelation:
		return EventTypeCorrelationCompleted
	case StageRisk:
		return EventTypeRiskCompleted
	default:
		return ""
	}
}

// TaskCreatedEvent signals that a new scan task was accepted and queued.
type TaskCreatedEvent struct {
	occurredAt          time.Time
	TaskID              uuid.UUID
	SeedURL             string
	EnumerateSubdomains bool
}

// NewTaskCreatedEvent creates a new task created event.
func NewTaskCreatedEvent(taskID uuid.UUID, seedURL string, enumerateSubdomains bool) TaskCreatedEvent {
	return TaskCreatedEvent{
		occurredAt:          time.Now(),
		TaskID:              taskID,
		SeedURL:             seedURL,
		EnumerateSubdomains: enumerateSubdomains,
	}
}

func (e TaskCreatedEvent) EventType() events.EventType { return EventTypeTaskCreated }
func (e TaskCreatedEvent) OccurredAt() time.Time       { return e.occurredAt }

// StageCompletedEvent signals that one pipeline stage finished for a task and
// the next stage may begin.
type StageCompletedEvent struct {
	occurredAt time.Time
	TaskID     uuid.UUID
	Stage      Stage
}

// NewStageCompletedEvent creates a stage completion event for a task.
func NewStageCompletedEvent(taskID uuid.UUID, stage Stage) StageCompletedEvent {
	return StageCompletedEvent{occurredAt: time.Now(), TaskID: taskID, Stage: stage}
}

func (e StageCompletedEvent) EventType() events.EventType { return StageEventType(e.Stage) }
func (e StageCompletedEvent) OccurredAt() time.Time       { return e.occurredAt }

// TaskFailedEvent means a stage encountered an unrecoverable error and the
// task chain stops.
type TaskFailedEvent struct {
	occurredAt time.Time
	TaskID     uuid.UUID
	Stage      Stage
	Reason     string
}

// NewTaskFailedEvent creates a new task failed event.
func NewTaskFailedEvent(taskID uuid.UUID, stage Stage, reason string) TaskFailedEvent {
	return TaskFailedEvent{occurredAt: time.Now(), TaskID: taskID, Stage: stage, Reason: reason}
}

func (e TaskFailedEvent) EventType() events.EventType { return EventTypeTaskFailed }
func (e TaskFailedEvent) OccurredAt() time.Time       { return e.occurredAt }

// TaskCancelledEvent signals that a stop request was honored between stages.
type TaskCancelledEvent struct {
	occurredAt time.Time
	TaskID     uuid.UUID
	Stage      Stage
}

// NewTaskCancelledEvent creates a new task cancelled event.
func NewTaskCancelledEvent(taskID uuid.UUID, stage Stage) TaskCancelledEvent {
	return TaskCancelledEvent{occurredAt: time.Now(), TaskID: taskID, Stage: stage}
}

func (e TaskCancelledEvent) EventType() events.EventType { return EventTypeTaskCancelled }
func (e TaskCancelledEvent) OccurredAt() time.Time       { return e.occurredAt }
