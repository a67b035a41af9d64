package scanning

import (
	"errors"
	"fmt"
)

// TaskStatus represents the lifecycle state of a scan task as it moves through
// the detection pipeline. Statuses advance monotonically along the stage order;
// only the terminal interrupts (failed, stopped) are reachable out of order.
type TaskStatus string

// ErrTaskStatusUnknown is returned when a task status is unknown.
var ErrTaskStatusUnknown = errors.New("task status unknown")

const (
	// TaskStatusQueued indicates a task has been accepted but no stage has started.
	TaskStatusQueued TaskStatus = "QUEUED"

	// TaskStatusRunning indicates the first stage has been picked up by a worker.
	TaskStatusRunning TaskStatus = "RUNNING"

	// TaskStatusEnumeratingSubdomains indicates certificate-transparency subdomain
	// lookup is in progress.
	TaskStatusEnumeratingSubdomains TaskStatus = "ENUMERATING_SUBDOMAINS"

	// TaskStatusScanning indicates pages and scripts are being fetched.
	TaskStatusScanning TaskStatus = "SCANNING"

	// TaskStatusDiscoveryDone indicates asset discovery has committed its results.
	TaskStatusDiscoveryDone TaskStatus = "DISCOVERY_DONE"

	// TaskStatusDetectingLeaks indicates rule matching is in progress.
	TaskStatusDetectingLeaks TaskStatus = "DETECTING_LEAKS"

	// TaskStatusDetectionDone indicates leak detection has committed its results.
	TaskStatusDetectionDone TaskStatus = "DETECTION_DONE"

	// TaskStatusValidating indicates offline secret validation is in progress.
	TaskStatusValidating TaskStatus = "VALIDATING"

	// TaskStatusValidationDone indicates validation has committed its results.
	TaskStatusValidationDone TaskStatus = "VALIDATION_DONE"

	// TaskStatusCorrelating indicates OSINT exposure correlation is in progress.
	TaskStatusCorrelating TaskStatus = "CORRELATING"

	// TaskStatusCorrelationDone indicates correlation has committed its results.
	TaskStatusCorrelationDone TaskStatus = "CORRELATION_DONE"

	// TaskStatusFinished indicates risk fusion completed and the task is done.
	TaskStatusFinished TaskStatus = "FINISHED"

	// TaskStatusFailed indicates a stage exceeded its budget or hit a fatal error.
	TaskStatusFailed TaskStatus = "FAILED"

	// TaskStatusStopped indicates the task was cancelled by an operator.
	TaskStatusStopped TaskStatus = "STOPPED"

	// TaskStatusUnspecified is used when a task status is unknown.
	TaskStatusUnspecified TaskStatus = "UNSPECIFIED"
)

// String returns the string representation of the TaskStatus.
func (s TaskStatus) String() string { return string(s) }

// IsTerminal reports whether no further transitions are allowed from this status.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusFinished || s == TaskStatusFailed || s == TaskStatusStopped
}

// ParseTaskStatus converts a string to a TaskStatus.
func ParseTaskStatus(s string) TaskStatus {
	switch TaskStatus(s) {
	case TaskStatusQueued, TaskStatusRunning, TaskStatusEnumeratingSubdomains,
		TaskStatusScanning, TaskStatusDiscoveryDone, TaskStatusDetectingLeaks,
		TaskStatusDetectionDone, TaskStatusValidating, TaskStatusValidationDone,
		TaskStatusCorrelating, TaskStatusCorrelationDone, TaskStatusFinished,
		TaskStatusFailed, TaskStatusStopped:
		return TaskStatus(s)
	default:
		return TaskStatusUnspecified
	}
}

// statusRank orders the non-terminal statuses along the pipeline. Higher ranks
// are further along; transitions may only move forward.
var statusRank = map[TaskStatus]int{
	TaskStatusQueued:                0,
	TaskStatusRunning:               1,
	TaskStatusEnumeratingSubdomains: 2,
	TaskStatusScanning:              3,
	TaskStatusDiscoveryDone:         4,
	TaskStatusDetectingLeaks:        5,
	TaskStatusDetectionDone:         6,
	TaskStatusValidating:            7,
	TaskStatusValidationDone:        8,
	TaskStatusCorrelating:           9,
	TaskStatusCorrelationDone:       10,
	TaskStatusFinished:              11,
}

// validateTransition checks if a status transition is valid and returns an error if not.
func (s TaskStatus) validateTransition(target TaskStatus) error {
	if !s.isValidTransition(target) {
		return fmt.Errorf("invalid task status transition from %s to %s", s, target)
	}
	return nil
}

// isValidTransition enforces the pipeline lifecycle rules: forward-only movement
// along the stage order, with failed/stopped reachable from any non-terminal state.
func (s TaskStatus) isValidTransition(target TaskStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if target == TaskStatusFailed || target == TaskStatusStopped {
		return true
	}

	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[target]
	if !ok {
		return false
	}
	return to > from
}
