package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SaTyAbHr2005/sentrix/internal/app/crawler"
	"github.com/SaTyAbHr2005/sentrix/internal/app/osint"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

// CorrelationSummary is the correlation stage's persisted result.
type CorrelationSummary struct {
	FindingsCorrelated int            `json:"findings_correlated"`
	Labels             map[string]int `json:"labels"`
	CloudProviders     []string       `json:"cloud_providers,omitempty"`
}

// CorrelationStage annotates findings with exposure context derived from the
// crawl surface and the OSINT datasets.
type CorrelationStage struct {
	correlator *osint.Correlator
	findings   scanning.FindingRepository
	assets     scanning.AssetRepository
	logger     *logger.Logger
}

func NewCorrelationStage(
	correlator *osint.Correlator,
	findings scanning.FindingRepository,
	assets scanning.AssetRepository,
	log *logger.Logger,
) *CorrelationStage {
	return &CorrelationStage{
		correlator: correlator,
		findings:   findings,
		assets:     assets,
		logger:     log.With("component", "correlation_stage"),
	}
}

func (s *CorrelationStage) Run(ctx context.Context, task *scanning.Task) (json.RawMessage, error) {
	findings, err := s.findings.ListFindingsByTask(ctx, task.ID())
	if err != nil {
		return nil, fmt.Errorf("correlation: list findings: %w", err)
	}

	crawlCtx, err := s.crawlContext(ctx, task)
	if err != nil {
		return nil, err
	}
	providers := s.correlator.GlobalProviders(crawlCtx)

	reusedMatches, err := s.findings.ListValidatedMatchesExcludingTask(ctx, task.ID())
	if err != nil {
		s.logger.Warn(ctx, "Secret reuse lookup failed, skipping reuse signal",
			"task_id", task.ID(), "error", err)
		reusedMatches = nil
	}

	summary := CorrelationSummary{Labels: make(map[string]int), CloudProviders: providers}

	for _, f := range findings {
		_, reused := reusedMatches[f.Match()]
		osintCtx := s.correlator.Correlate(f, providers, reused)
		f.ApplyOsint(osintCtx)
		if err := s.findings.UpdateEnrichment(ctx, f); err != nil {
			return nil, fmt.Errorf("correlation: persist finding %s: %w", f.ID(), err)
		}

		summary.FindingsCorrelated++
		for _, label := range osintCtx.Labels {
			summary.Labels[label.String()]++
		}
	}

	s.logger.Info(ctx, "Correlation completed",
		"task_id", task.ID(),
		"correlated", summary.FindingsCorrelated,
		"providers", providers)
	return json.Marshal(summary)
}

// crawlContext reconstructs the task's exposure surface from the discovery
// stage result and the persisted assets.
func (s *CorrelationStage) crawlContext(ctx context.Context, task *scanning.Task) (osint.CrawlContext, error) {
	crawlCtx := osint.CrawlContext{}

	if raw, ok := task.StageResult(scanning.StageDiscovery); ok {
		var discovery crawler.Summary
		if err := json.Unmarshal(raw, &discovery); err != nil {
			return crawlCtx, fmt.Errorf("correlation: decode discovery result: %w", err)
		}
		crawlCtx.Headers = discovery.SeedHeaders
	}

	assets, err := s.assets.ListAssetsByTask(ctx, task.ID())
	if err != nil {
		return crawlCtx, fmt.Errorf("correlation: list assets: %w", err)
	}

	crawlCtx.URLs = append(crawlCtx.URLs, task.SeedURL())
	for _, a := range assets {
		crawlCtx.URLs = append(crawlCtx.URLs, a.PageURL())
		if a.SourceURL() != "" {
			crawlCtx.URLs = append(crawlCtx.URLs, a.SourceURL())
			crawlCtx.ScriptURLs = append(crawlCtx.ScriptURLs, a.SourceURL())
		}
	}
	return crawlCtx, nil
}
