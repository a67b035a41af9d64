package scanning

// Stage identifies one phase of the detection pipeline. Each stage executes as a
// retryable unit of work and owns exactly one subtree of the task's stage results.
type Stage string

const (
	StageDiscovery   Stage = "discovery"
	StageDetection   Stage = "detection"
	StageValidation  Stage = "validation"
	StageCorrelation Stage = "correlation"
	StageRisk        Stage = "risk"
)

// String returns the string representation of the Stage.
func (s Stage) String() string { return string(s) }

// stageOrder is the fixed execution order of the pipeline.
var stageOrder = []Stage{
	StageDiscovery,
	StageDetection,
	StageValidation,
	StageCorrelation,
	StageRisk,
}

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Next returns the stage that follows s, or false if s is the last stage or unknown.
func (s Stage) Next() (Stage, bool) {
	for i, stage := range stageOrder {
		if stage == s && i+1 < len(stageOrder) {
			return stageOrder[i+1], true
		}
	}
	return "", false
}

// RunningStatus returns the task status that marks this stage as in progress.
func (s Stage) RunningStatus() TaskStatus {
	switch s {
	case StageDiscovery:
		return TaskStatusScanning
	case StageDetection:
		return TaskStatusDetectingLeaks
	case StageValidation:
		return TaskStatusValidating
	case StageCorrelation:
		return TaskStatusCorrelating
	case StageRisk:
		return TaskStatusCorrelationDone
	default:
		return TaskStatusUnspecified
	}
}

// CompletedStatus returns the task status that marks this stage as committed.
func (s Stage) CompletedStatus() TaskStatus {
	switch s {
	case StageDiscovery:
		return TaskStatusDiscoveryDone
	case StageDetection:
		return TaskStatusDetectionDone
	case StageValidation:
		return TaskStatusValidationDone
	case StageCorrelation:
		return TaskStatusCorrelationDone
	case StageRisk:
		return TaskStatusFinished
	default:
		return TaskStatusUnspecified
	}
}
