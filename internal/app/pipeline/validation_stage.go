package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SaTyAbHr2005/sentrix/internal/app/validation"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

// ValidationSummary is the validation stage's persisted result.
type ValidationSummary struct {
	FindingsValidated int      `json:"findings_validated"`
	Valid             int      `json:"valid"`
	Likely            int      `json:"likely"`
	Invalid           int      `json:"invalid"`
	AssetWarnings     []string `json:"asset_warnings,omitempty"`
}

// ValidationStage annotates every finding with an offline validation verdict.
type ValidationStage struct {
	analyzer *validation.Analyzer
	findings scanning.FindingRepository
	assets   scanning.AssetRepository
	logger   *logger.Logger
}

func NewValidationStage(
	analyzer *validation.Analyzer,
	findings scanning.FindingRepository,
	assets scanning.AssetRepository,
	log *logger.Logger,
) *ValidationStage {
	return &ValidationStage{
		analyzer: analyzer,
		findings: findings,
		assets:   assets,
		logger:   log.With("component", "validation_stage"),
	}
}

func (s *ValidationStage) Run(ctx context.Context, task *scanning.Task) (json.RawMessage, error) {
	findings, err := s.findings.ListFindingsByTask(ctx, task.ID())
	if err != nil {
		return nil, fmt.Errorf("validation: list findings: %w", err)
	}

	summary := ValidationSummary{AssetWarnings: s.assetWarnings(ctx, task)}

	for _, f := range findings {
		verdict := s.analyzer.Analyze(ctx, f.Match(), strings.ToLower(f.Category()))
		f.ApplyValidation(verdict)
		if err := s.findings.UpdateEnrichment(ctx, f); err != nil {
			return nil, fmt.Errorf("validation: persist finding %s: %w", f.ID(), err)
		}

		summary.FindingsValidated++
		switch verdict.Label {
		case scanning.ValidationLabelValid:
			summary.Valid++
		case scanning.ValidationLabelLikely:
			summary.Likely++
		case scanning.ValidationLabelInvalid:
			summary.Invalid++
		}
	}

	s.logger.Info(ctx, "Validation completed",
		"task_id", task.ID(),
		"validated", summary.FindingsValidated,
		"valid", summary.Valid,
		"likely", summary.Likely,
		"invalid", summary.Invalid)
	return json.Marshal(summary)
}

// assetWarnings flags empty and oversized assets. Warnings are informational
// and never fail the stage.
func (s *ValidationStage) assetWarnings(ctx context.Context, task *scanning.Task) []string {
	assets, err := s.assets.ListAssetsByTask(ctx, task.ID())
	if err != nil {
		s.logger.Warn(ctx, "Asset sanity check skipped", "task_id", task.ID(), "error", err)
		return nil
	}

	var warnings []string
	for _, a := range assets {
		switch {
		case len(a.Content()) == 0:
			warnings = append(warnings, fmt.Sprintf("empty asset %s", a.SourcePath()))
		case a.Origin() == scanning.AssetOriginInline && len(a.Content()) >= scanning.MaxInlineContentBytes:
			warnings = append(warnings, fmt.Sprintf("inline asset at cap %s", a.SourcePath()))
		case a.Origin() == scanning.AssetOriginExternal && len(a.Content()) >= scanning.MaxExternalContentBytes:
			warnings = append(warnings, fmt.Sprintf("external asset at cap %s", a.SourcePath()))
		}
	}
	return warnings
}
