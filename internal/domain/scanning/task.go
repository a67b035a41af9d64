package scanning

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultAssetCap bounds how many unique script assets one task may discover.
const DefaultAssetCap = 200

// ErrTaskNotFound is returned by repositories when no task exists for the
// requested ID.
var ErrTaskNotFound = errors.New("task not found")

// Task is the aggregate root for one scan of a web target. It is created on
// scan submission and mutated only by the pipeline as stages complete. All
// cross-stage state lives here; stages themselves are stateless.
type Task struct {
	id                  uuid.UUID
	seedURL             string
	status              TaskStatus
	enumerateSubdomains bool
	assetCap            int
	cancelRequested     bool
	stageResults        map[Stage]json.RawMessage
	createdAt           time.Time
	updatedAt           time.Time
}

// NewTask creates a queued task for the given seed URL.
func NewTask(seedURL string, enumerateSubdomains bool, assetCap int) *Task {
	if assetCap <= 0 {
		assetCap = DefaultAssetCap
	}
	now := time.Now().UTC()
	return &Task{
		id:                  uuid.New(),
		seedURL:             seedURL,
		status:              TaskStatusQueued,
		enumerateSubdomains: enumerateSubdomains,
		assetCap:            assetCap,
		stageResults:        make(map[Stage]json.RawMessage),
		createdAt:           now,
		updatedAt:           now,
	}
}

// ReconstructTask materializes a Task from persistent storage without
// enforcing invariants. Only repositories should use this.
func ReconstructTask(
	id uuid.UUID,
	seedURL string,
	status TaskStatus,
	enumerateSubdomains bool,
	assetCap int,
	cancelRequested bool,
	stageResults map[Stage]json.RawMessage,
	createdAt, updatedAt time.Time,
) *Task {
	if stageResults == nil {
		stageResults = make(map[Stage]json.RawMessage)
	}
	return &Task{
		id:                  id,
		seedURL:             seedURL,
		status:              status,
		enumerateSubdomains: enumerateSubdomains,
		assetCap:            assetCap,
		cancelRequested:     cancelRequested,
		stageResults:        stageResults,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
	}
}

// ID returns the task identifier.
func (t *Task) ID() uuid.UUID { return t.id }

// SeedURL returns the URL the scan was submitted with.
func (t *Task) SeedURL() string { return t.seedURL }

// Status returns the current lifecycle status.
func (t *Task) Status() TaskStatus { return t.status }

// EnumerateSubdomains reports whether subdomain enumeration was requested.
func (t *Task) EnumerateSubdomains() bool { return t.enumerateSubdomains }

// AssetCap returns the maximum number of assets this task may discover.
func (t *Task) AssetCap() int { return t.assetCap }

// CancelRequested reports whether an operator asked to stop this task.
func (t *Task) CancelRequested() bool { return t.cancelRequested }

// CreatedAt returns when the task was submitted.
func (t *Task) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns when the task was last mutated.
func (t *Task) UpdatedAt() time.Time { return t.updatedAt }

// StageResults returns the per-stage result subtrees.
func (t *Task) StageResults() map[Stage]json.RawMessage { return t.stageResults }

// StageResult returns the committed result subtree for one stage, if any.
func (t *Task) StageResult(stage Stage) (json.RawMessage, bool) {
	res, ok := t.stageResults[stage]
	return res, ok
}

// UpdateStatus advances the task's lifecycle status, enforcing the pipeline
// transition rules.
func (t *Task) UpdateStatus(target TaskStatus) error {
	if err := t.status.validateTransition(target); err != nil {
		return err
	}
	t.status = target
	t.updatedAt = time.Now().UTC()
	return nil
}

// RequestCancel flags the task for cancellation. The pipeline checks the flag
// before starting each stage; results already committed are retained.
func (t *Task) RequestCancel() {
	t.cancelRequested = true
	t.updatedAt = time.Now().UTC()
}

// SetStageResult overwrites exactly one stage's result subtree. Overwriting
// rather than appending keeps at-least-once stage delivery idempotent.
func (t *Task) SetStageResult(stage Stage, result json.RawMessage) {
	t.stageResults[stage] = result
	t.updatedAt = time.Now().UTC()
}
