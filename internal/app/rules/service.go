package rules

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/events"
	domain "github.com/SaTyAbHr2005/sentrix/internal/domain/rules"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

// Service manages the lifecycle of leak detection rules: persisting rule
// updates, seeding the store from the embedded gitleaks ruleset, and importing
// operator-supplied pattern files.
type Service struct {
	repo      domain.RuleRepository
	publisher events.DomainEventPublisher
	logger    *logger.Logger
	tracer    trace.Tracer
}

// NewService creates a rule service over the given repository. publisher may
// be nil when rule updates should not be broadcast to other workers.
func NewService(repo domain.RuleRepository, publisher events.DomainEventPublisher, log *logger.Logger, tracer trace.Tracer) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    log.With("component", "rule_service"),
		tracer:    tracer,
	}
}

// SaveRule validates and persists a rule, deriving category and severity when
// the caller left them empty.
func (s *Service) SaveRule(ctx context.Context, r domain.Rule) error {
	if r.RuleID == "" {
		return fmt.Errorf("rule id is required")
	}
	if r.Pattern == "" {
		return fmt.Errorf("rule %s: pattern is required", r.RuleID)
	}
	if r.Category == "" {
		r.Category = CategoryForRuleID(r.RuleID)
	}
	if r.Severity == "" {
		r.Severity = SeverityForCategory(r.Category)
	}
	return s.repo.SaveRule(ctx, r)
}

// SeedDefaultRules translates the embedded gitleaks default configuration into
// pattern-store rules. Existing rules with the same ID are overwritten, so
// reseeding is idempotent.
func (s *Service) SeedDefaultRules(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "rule_service.seed_default_rules",
		trace.WithAttributes(attribute.String("component", "rule_service")))
	defer span.End()

	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewBufferString(config.DefaultConfig)); err != nil {
		return 0, fmt.Errorf("failed to read embedded config: %w", err)
	}

	var vc config.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return 0, fmt.Errorf("failed to unmarshal embedded config: %w", err)
	}

	cfg, err := vc.Translate()
	if err != nil {
		return 0, fmt.Errorf("failed to translate gitleaks config: %w", err)
	}

	var count int
	for _, gr := range cfg.Rules {
		if gr.Regex == nil {
			continue
		}
		category := CategoryForRuleID(gr.RuleID)
		rule := domain.Rule{
			RuleID:   gr.RuleID,
			Label:    gr.Description,
			Pattern:  gr.Regex.String(),
			Severity: SeverityForCategory(category),
			Category: category,
			Source:   "gitleaks",
			Enabled:  true,
		}
		if err := s.repo.SaveRule(ctx, rule); err != nil {
			span.RecordError(err)
			return count, fmt.Errorf("save rule %s: %w", gr.RuleID, err)
		}
		count++
	}

	span.SetAttributes(attribute.Int("rules_seeded", count))
	s.logger.Info(ctx, "Seeded default ruleset", "count", count)
	return count, nil
}

// patternFile is the YAML shape operators upload to extend the ruleset.
type patternFile struct {
	Patterns []struct {
		Pattern struct {
			Name       string `yaml:"name"`
			Regex      string `yaml:"regex"`
			Confidence string `yaml:"confidence"`
		} `yaml:"pattern"`
	} `yaml:"patterns"`
}

// ImportPatternFile upserts rules from a YAML pattern file on disk.
func (s *Service) ImportPatternFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pattern file: %w", err)
	}
	defer f.Close()
	return s.ImportPatterns(ctx, path, f)
}

// ImportPatterns upserts rules from a YAML pattern stream. source labels where
// the patterns came from and is recorded on each rule. Every imported rule is
// broadcast so workers refresh their caches.
func (s *Service) ImportPatterns(ctx context.Context, source string, r io.Reader) (int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read patterns: %w", err)
	}

	var pf patternFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return 0, fmt.Errorf("parse patterns from %s: %w", source, err)
	}

	var count int
	for _, entry := range pf.Patterns {
		p := entry.Pattern
		if p.Name == "" || p.Regex == "" {
			s.logger.Warn(ctx, "Skipping pattern with missing name or regex", "source", source)
			continue
		}
		category := CategoryForRuleID(p.Name)
		rule := domain.Rule{
			RuleID:   p.Name,
			Label:    p.Name,
			Pattern:  p.Regex,
			Severity: severityFromConfidence(p.Confidence, category),
			Category: category,
			Source:   source,
			Enabled:  true,
		}
		if err := s.repo.SaveRule(ctx, rule); err != nil {
			return count, fmt.Errorf("save rule %s: %w", p.Name, err)
		}
		count++

		if s.publisher != nil {
			msg := domain.RuleMessage{Rule: rule, Hash: rule.GenerateHash()}
			evt := domain.NewRuleUpdatedEvent(msg)
			if err := s.publisher.PublishDomainEvent(ctx, evt); err != nil {
				s.logger.Error(ctx, "Failed to broadcast rule update", "rule_id", rule.RuleID, "error", err)
			}
		}
	}

	s.logger.Info(ctx, "Imported patterns", "source", source, "count", count)
	return count, nil
}

func severityFromConfidence(confidence, category string) string {
	switch confidence {
	case "critical", "high", "medium", "low":
		return confidence
	default:
		return SeverityForCategory(category)
	}
}
