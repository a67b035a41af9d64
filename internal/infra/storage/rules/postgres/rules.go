// Package postgres provides the PostgreSQL-backed implementation of the rules
// domain repository.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/rules"
	"github.com/SaTyAbHr2005/sentrix/internal/infra/storage"
)

// defaultDBAttributes defines standard OpenTelemetry attributes for PostgreSQL operations.
var defaultDBAttributes = []attribute.KeyValue{
	attribute.String("db.system", "postgresql"),
}

var _ rules.RuleRepository = (*ruleStore)(nil)

// ruleStore implements rules.RuleRepository using Postgres. Rules are keyed by
// rule ID; saving an existing rule overwrites its pattern and metadata.
type ruleStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewRuleStore creates a RuleRepository backed by PostgreSQL.
func NewRuleStore(pool *pgxpool.Pool, tracer trace.Tracer) *ruleStore {
	return &ruleStore{pool: pool, tracer: tracer}
}

// SaveRule persists a single rule, inserting or updating by rule ID.
func (s *ruleStore) SaveRule(ctx context.Context, rule rules.Rule) error {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("rule_id", rule.RuleID),
		attribute.String("category", rule.Category),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.save_rule", dbAttrs, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO leak_patterns (rule_id, label, pattern, severity, category, source, enabled, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (rule_id) DO UPDATE SET
				label = EXCLUDED.label,
				pattern = EXCLUDED.pattern,
				severity = EXCLUDED.severity,
				category = EXCLUDED.category,
				source = EXCLUDED.source,
				enabled = EXCLUDED.enabled,
				updated_at = EXCLUDED.updated_at`,
			rule.RuleID, rule.Label, rule.Pattern, rule.Severity,
			rule.Category, rule.Source, rule.Enabled, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("SaveRule upsert error: %w", err)
		}
		return nil
	})
}

// ListEnabledRules retrieves every enabled rule.
func (s *ruleStore) ListEnabledRules(ctx context.Context) ([]rules.Rule, error) {
	return s.listRules(ctx, true)
}

// ListRules retrieves every rule regardless of enabled state.
func (s *ruleStore) ListRules(ctx context.Context) ([]rules.Rule, error) {
	return s.listRules(ctx, false)
}

func (s *ruleStore) listRules(ctx context.Context, enabledOnly bool) ([]rules.Rule, error) {
	dbAttrs := append(defaultDBAttributes, attribute.Bool("enabled_only", enabledOnly))

	var out []rules.Rule

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_rules", dbAttrs, func(ctx context.Context) error {
		query := `SELECT rule_id, label, pattern, severity, category, source, enabled FROM leak_patterns`
		if enabledOnly {
			query += ` WHERE enabled`
		}
		query += ` ORDER BY rule_id`

		rows, err := s.pool.Query(ctx, query)
		if err != nil {
			return fmt.Errorf("listRules query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var r rules.Rule
			if err := rows.Scan(&r.RuleID, &r.Label, &r.Pattern, &r.Severity,
				&r.Category, &r.Source, &r.Enabled); err != nil {
				return fmt.Errorf("listRules scan error: %w", err)
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
