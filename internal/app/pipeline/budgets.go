package pipeline

import (
	"time"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
)

// StageBudget bounds one stage's execution time. The hard budget cancels the
// stage context; the soft budget only produces a warning log when exceeded.
type StageBudget struct {
	Soft time.Duration
	Hard time.Duration
}

// StageBudgets maps every pipeline stage to its execution budget.
type StageBudgets map[scanning.Stage]StageBudget

// DefaultStageBudgets returns the built-in per-stage budgets. Discovery gets
// the largest share since it is the only network-bound stage.
func DefaultStageBudgets() StageBudgets {
	return StageBudgets{
		scanning.StageDiscovery:   {Soft: 5 * time.Minute, Hard: 10 * time.Minute},
		scanning.StageDetection:   {Soft: 2 * time.Minute, Hard: 5 * time.Minute},
		scanning.StageValidation:  {Soft: 2 * time.Minute, Hard: 5 * time.Minute},
		scanning.StageCorrelation: {Soft: time.Minute, Hard: 3 * time.Minute},
		scanning.StageRisk:        {Soft: time.Minute, Hard: 3 * time.Minute},
	}
}

func (b StageBudgets) budget(stage scanning.Stage) StageBudget {
	if budget, ok := b[stage]; ok {
		return budget
	}
	return StageBudget{Soft: 2 * time.Minute, Hard: 5 * time.Minute}
}
