package scanning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition_ValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current TaskStatus
		target  TaskStatus
	}{
		{
			name:    "Queued to Running is valid",
			current: TaskStatusQueued,
			target:  TaskStatusRunning,
		},
		{
			name:    "Running to EnumeratingSubdomains is valid",
			current: TaskStatusRunning,
			target:  TaskStatusEnumeratingSubdomains,
		},
		{
			name:    "Running to Scanning skips enumeration",
			current: TaskStatusRunning,
			target:  TaskStatusScanning,
		},
		{
			name:    "Scanning to DiscoveryDone is valid",
			current: TaskStatusScanning,
			target:  TaskStatusDiscoveryDone,
		},
		{
			name:    "DiscoveryDone to DetectingLeaks is valid",
			current: TaskStatusDiscoveryDone,
			target:  TaskStatusDetectingLeaks,
		},
		{
			name:    "CorrelationDone to Finished is valid",
			current: TaskStatusCorrelationDone,
			target:  TaskStatusFinished,
		},
		{
			name:    "Queued to Failed is valid",
			current: TaskStatusQueued,
			target:  TaskStatusFailed,
		},
		{
			name:    "Validating to Stopped is valid",
			current: TaskStatusValidating,
			target:  TaskStatusStopped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.current.validateTransition(tt.target)
			assert.NoError(t, err, "expected valid transition from %s to %s", tt.current, tt.target)
		})
	}
}

func TestValidateTransition_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current TaskStatus
		target  TaskStatus
	}{
		{
			name:    "Scanning back to Running is invalid",
			current: TaskStatusScanning,
			target:  TaskStatusRunning,
		},
		{
			name:    "DetectionDone back to DiscoveryDone is invalid",
			current: TaskStatusDetectionDone,
			target:  TaskStatusDiscoveryDone,
		},
		{
			name:    "Queued to Queued is invalid",
			current: TaskStatusQueued,
			target:  TaskStatusQueued,
		},
		{
			name:    "Finished to Running is invalid",
			current: TaskStatusFinished,
			target:  TaskStatusRunning,
		},
		{
			name:    "Failed to Stopped is invalid",
			current: TaskStatusFailed,
			target:  TaskStatusStopped,
		},
		{
			name:    "Stopped to Finished is invalid",
			current: TaskStatusStopped,
			target:  TaskStatusFinished,
		},
		{
			name:    "Unspecified to Running is invalid",
			current: TaskStatusUnspecified,
			target:  TaskStatusRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.current.validateTransition(tt.target)
			assert.Error(t, err, "expected invalid transition from %s to %s", tt.current, tt.target)
		})
	}
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		terminal bool
	}{
		{TaskStatusFinished, true},
		{TaskStatusFailed, true},
		{TaskStatusStopped, true},
		{TaskStatusQueued, false},
		{TaskStatusScanning, false},
		{TaskStatusCorrelationDone, false},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestParseTaskStatus(t *testing.T) {
	assert.Equal(t, TaskStatusScanning, ParseTaskStatus("SCANNING"))
	assert.Equal(t, TaskStatusFinished, ParseTaskStatus("FINISHED"))
	assert.Equal(t, TaskStatusUnspecified, ParseTaskStatus("bogus"))
}
