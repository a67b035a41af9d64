// Package detector implements the leak-detection stage: compiled rule
// matching and an AST literal scan over discovered assets, plus endpoint
// extraction from the same content.
package detector

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SaTyAbHr2005/sentrix/internal/app/rules"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

// contextRadius is how many characters around a match are captured before
// the snippet cap applies.
const contextRadius = 80

// AST pass constants. AST findings carry a fixed synthetic rule since no
// stored pattern produced them.
const (
	astRuleID    = "ast_literal"
	astRuleLabel = "AST Suspicious Literal"
)

// Summary is the detection stage's persisted result.
type Summary struct {
	AssetsScanned  int `json:"assets_scanned"`
	Findings       int `json:"findings"`
	HighSeverity   int `json:"high_severity"`
	MediumSeverity int `json:"medium_severity"`
	LowSeverity    int `json:"low_severity"`
	Endpoints      int `json:"endpoints"`
	AstSkipped     int `json:"ast_skipped,omitempty"`
}

// Detector runs leak detection for a scan task.
type Detector struct {
	ruleCache *rules.Cache
	assets    scanning.AssetRepository
	findings  scanning.FindingRepository
	endpoints scanning.EndpointRepository
	logger    *logger.Logger
	tracer    trace.Tracer
}

// NewDetector assembles a Detector from its collaborators.
func NewDetector(
	ruleCache *rules.Cache,
	assets scanning.AssetRepository,
	findings scanning.FindingRepository,
	endpoints scanning.EndpointRepository,
	log *logger.Logger,
	tracer trace.Tracer,
) *Detector {
	return &Detector{
		ruleCache: ruleCache,
		assets:    assets,
		findings:  findings,
		endpoints: endpoints,
		logger:    log.With("component", "detector"),
		tracer:    tracer,
	}
}

// Detect scans every asset of the task with the current rule snapshot and
// the AST literal pass, persisting deduplicated findings and extracted
// endpoints. Per-asset AST parse failures skip that pass only.
func (d *Detector) Detect(ctx context.Context, task *scanning.Task) (*Summary, error) {
	ctx, span := d.tracer.Start(ctx, "detector.detect",
		trace.WithAttributes(attribute.String("task_id", task.ID().String())))
	defer span.End()

	ruleSet := d.ruleCache.Rules(ctx)
	assets, err := d.assets.ListAssetsByTask(ctx, task.ID())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing assets failed")
		return nil, err
	}

	summary := &Summary{}
	var allFindings []*scanning.Finding
	var allEndpoints []*scanning.Endpoint

	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary.AssetsScanned++

		matches, astSkipped := scanAsset(asset.Content(), ruleSet)
		if astSkipped {
			summary.AstSkipped++
			d.logger.Debug(ctx, "AST parse failed, literal pass skipped",
				"task_id", task.ID(), "asset_id", asset.ID())
		}

		for _, m := range matches {
			f := scanning.NewFinding(
				task.ID(), asset.ID(),
				m.RuleID, m.RuleLabel, m.Category,
				m.Severity, m.Method,
				m.Match, m.Snippet, asset.SourcePath(),
			)
			allFindings = append(allFindings, f)
			switch m.Severity {
			case scanning.RuleSeverityHigh, scanning.RuleSeverityCritical:
				summary.HighSeverity++
			case scanning.RuleSeverityMedium:
				summary.MediumSeverity++
			default:
				summary.LowSeverity++
			}
		}

		if len(allEndpoints) < scanning.MaxEndpointsPersisted {
			for _, ep := range ExtractEndpoints(asset.Content(), nil, true) {
				if len(allEndpoints) >= scanning.MaxEndpointsPersisted {
					break
				}
				allEndpoints = append(allEndpoints, scanning.NewEndpoint(task.ID(), asset.ID(), ep.Link, ep.Context))
			}
		}
	}

	if err := d.findings.CreateFindings(ctx, allFindings); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persisting findings failed")
		return nil, err
	}
	if err := d.endpoints.CreateEndpoints(ctx, allEndpoints); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persisting endpoints failed")
		return nil, err
	}

	summary.Findings = len(allFindings)
	summary.Endpoints = len(allEndpoints)
	span.SetAttributes(
		attribute.Int("findings", summary.Findings),
		attribute.Int("endpoints", summary.Endpoints),
	)
	d.logger.Info(ctx, "Detection completed",
		"task_id", task.ID(),
		"assets", summary.AssetsScanned,
		"findings", summary.Findings,
		"endpoints", summary.Endpoints)
	return summary, nil
}

// Match is one deduplicated detection within a single asset.
type Match struct {
	RuleID    string
	RuleLabel string
	Category  string
	Severity  scanning.RuleSeverity
	Method    scanning.DetectionMethod
	Match     string
	Snippet   string
}

// scanAsset runs the regex and AST passes over one asset's content,
// returning matches deduplicated by (rule id, matched value). astSkipped
// reports whether the AST pass failed to parse the content.
func scanAsset(content string, ruleSet []rules.CompiledRule) (matches []Match, astSkipped bool) {
	seen := make(map[[2]string]struct{})
	keep := func(m Match) {
		key := [2]string{m.RuleID, m.Match}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		matches = append(matches, m)
	}

	for _, rule := range ruleSet {
		if !rule.Enabled {
			continue
		}
		for _, loc := range rule.Regex.FindAllStringSubmatchIndex(content, -1) {
			matched := firstNonEmptyGroup(content, loc)
			snippet := snippetAround(content, loc[0], loc[1])
			if isFalsePositive(matched, snippet, rule.RuleID, rule.Category) {
				continue
			}
			keep(Match{
				RuleID:    rule.RuleID,
				RuleLabel: rule.Label,
				Category:  rule.Category,
				Severity:  scanning.RuleSeverity(rule.Severity),
				Method:    scanning.DetectionMethodRegex,
				Match:     matched,
				Snippet:   snippet,
			})
		}
	}

	literals, err := extractStringLiterals(content)
	if err != nil {
		return matches, true
	}
	for _, lit := range literals {
		if len(lit) < minLiteralLen {
			continue
		}
		if !secretKeywordPattern.MatchString(lit) {
			continue
		}
		if isFalsePositive(lit, lit, astRuleID, rules.CategoryAST) {
			continue
		}
		keep(Match{
			RuleID:    astRuleID,
			RuleLabel: astRuleLabel,
			Category:  rules.CategoryAST,
			Severity:  scanning.RuleSeverityLow,
			Method:    scanning.DetectionMethodAST,
			Match:     lit,
			Snippet:   lit,
		})
	}
	return matches, false
}

// firstNonEmptyGroup picks the matched value: the first capture group that
// matched text, else the whole match.
func firstNonEmptyGroup(content string, loc []int) string {
	for i := 2; i+1 < len(loc); i += 2 {
		if loc[i] >= 0 && loc[i+1] > loc[i] {
			return content[loc[i]:loc[i+1]]
		}
	}
	return content[loc[0]:loc[1]]
}

// snippetAround captures the context window surrounding a match.
func snippetAround(content string, start, end int) string {
	s := start - contextRadius
	if s < 0 {
		s = 0
	}
	e := end + contextRadius
	if e > len(content) {
		e = len(content)
	}
	return content[s:e]
}
