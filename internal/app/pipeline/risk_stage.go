package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SaTyAbHr2005/sentrix/internal/app/risk"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

// RiskSummary is the risk stage's persisted result: the task-level severity
// rollup plus score aggregates.
type RiskSummary struct {
	scanning.RiskSummary
	MaxScore int `json:"max_score"`
	AvgScore int `json:"avg_score"`
}

// RiskStage fuses rule and classifier scores into each finding's final risk
// verdict and rolls them up per task.
type RiskStage struct {
	engine   *risk.Engine
	findings scanning.FindingRepository
	logger   *logger.Logger
}

func NewRiskStage(engine *risk.Engine, findings scanning.FindingRepository, log *logger.Logger) *RiskStage {
	return &RiskStage{
		engine:   engine,
		findings: findings,
		logger:   log.With("component", "risk_stage"),
	}
}

func (s *RiskStage) Run(ctx context.Context, task *scanning.Task) (json.RawMessage, error) {
	findings, err := s.findings.ListFindingsByTask(ctx, task.ID())
	if err != nil {
		return nil, fmt.Errorf("risk: list findings: %w", err)
	}

	var summary RiskSummary
	scoreSum := 0

	for _, f := range findings {
		assessment := s.engine.Assess(f)
		f.ApplyRisk(assessment)
		if err := s.findings.UpdateEnrichment(ctx, f); err != nil {
			return nil, fmt.Errorf("risk: persist finding %s: %w", f.ID(), err)
		}

		summary.Add(assessment.Severity)
		scoreSum += assessment.FinalScore
		if assessment.FinalScore > summary.MaxScore {
			summary.MaxScore = assessment.FinalScore
		}
	}
	if summary.Total > 0 {
		summary.AvgScore = scoreSum / summary.Total
	}

	s.logger.Info(ctx, "Risk fusion completed",
		"task_id", task.ID(),
		"findings", summary.Total,
		"high", summary.High,
		"medium", summary.Medium,
		"low", summary.Low,
		"max_score", summary.MaxScore)
	return json.Marshal(summary)
}
