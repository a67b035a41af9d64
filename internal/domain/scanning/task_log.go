package scanning

import (
	"time"

	"github.com/google/uuid"
)

// LogLevel is the severity of a task progress entry.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// TaskLog is a timestamped progress entry recorded while a task moves through
// the pipeline. Entries are append-only.
type TaskLog struct {
	id        uuid.UUID
	taskID    uuid.UUID
	stage     Stage
	level     LogLevel
	message   string
	createdAt time.Time
}

// NewTaskLog creates a progress entry for the given task and stage.
func NewTaskLog(taskID uuid.UUID, stage Stage, level LogLevel, message string) *TaskLog {
	return &TaskLog{
		id:        uuid.New(),
		taskID:    taskID,
		stage:     stage,
		level:     level,
		message:   message,
		createdAt: time.Now(),
	}
}

// ReconstructTaskLog rebuilds a TaskLog from persistent storage.
func ReconstructTaskLog(id, taskID uuid.UUID, stage Stage, level LogLevel, message string, createdAt time.Time) *TaskLog {
	return &TaskLog{id: id, taskID: taskID, stage: stage, level: level, message: message, createdAt: createdAt}
}

func (l *TaskLog) ID() uuid.UUID        { return l.id }
func (l *TaskLog) TaskID() uuid.UUID    { return l.taskID }
func (l *TaskLog) Stage() Stage         { return l.stage }
func (l *TaskLog) Level() LogLevel      { return l.level }
func (l *TaskLog) Message() string      { return l.message }
func (l *TaskLog) CreatedAt() time.Time { return l.createdAt }
