package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/internal/infra/storage"
)

var _ scanning.FindingRepository = (*findingStore)(nil)

// findingStore implements scanning.FindingRepository using Postgres. The
// unique constraint on (task_id, rule_id, match, source_path) backs the
// detector's dedupe semantics, so retried detection runs cannot double-insert.
type findingStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewFindingStore creates a FindingRepository backed by PostgreSQL.
func NewFindingStore(pool *pgxpool.Pool, tracer trace.Tracer) *findingStore {
	return &findingStore{pool: pool, tracer: tracer}
}

// CreateFindings persists a batch of detection-stage findings. Duplicates of
// already stored findings are skipped.
func (s *findingStore) CreateFindings(ctx context.Context, findings []*scanning.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("task_id", findings[0].TaskID().String()),
		attribute.Int("count", len(findings)),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.create_findings", dbAttrs, func(ctx context.Context) error {
		batch := new(pgx.Batch)
		for _, f := range findings {
			batch.Queue(`
				INSERT INTO findings (id, task_id, asset_id, rule_id, rule_label, category, rule_severity,
					method, match, context, source_path, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
				ON CONFLICT (task_id, rule_id, match, source_path) DO NOTHING`,
				f.ID(), f.TaskID(), f.AssetID(), f.RuleID(), f.RuleLabel(), f.Category(),
				string(f.RuleSeverity()), string(f.Method()), f.Match(), f.Context(),
				f.SourcePath(), f.CreatedAt(), f.UpdatedAt(),
			)
		}

		results := s.pool.SendBatch(ctx, batch)
		defer results.Close()

		for range findings {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("CreateFindings batch insert error: %w", err)
			}
		}
		return nil
	})
}

// ListFindingsByTask retrieves all findings for a task, including any stage
// enrichments already committed.
func (s *findingStore) ListFindingsByTask(ctx context.Context, taskID uuid.UUID) ([]*scanning.Finding, error) {
	dbAttrs := append(defaultDBAttributes, attribute.String("task_id", taskID.String()))

	var findings []*scanning.Finding

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_findings_by_task", dbAttrs, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT id, task_id, asset_id, rule_id, rule_label, category, rule_severity,
				method, match, context, source_path, validation, osint, risk, created_at, updated_at
			FROM findings WHERE task_id = $1 ORDER BY created_at`, taskID)
		if err != nil {
			return fmt.Errorf("ListFindingsByTask query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			f, err := scanFindingRow(rows)
			if err != nil {
				return fmt.Errorf("ListFindingsByTask scan error: %w", err)
			}
			findings = append(findings, f)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}

// UpdateEnrichment overwrites a finding's validation, osint and risk columns
// wholesale with its current in-memory state.
func (s *findingStore) UpdateEnrichment(ctx context.Context, finding *scanning.Finding) error {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("finding_id", finding.ID().String()),
		attribute.String("task_id", finding.TaskID().String()),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.update_finding_enrichment", dbAttrs, func(ctx context.Context) error {
		validation, err := marshalNullable(finding.Validation())
		if err != nil {
			return fmt.Errorf("marshal validation: %w", err)
		}
		osint, err := marshalNullable(finding.Osint())
		if err != nil {
			return fmt.Errorf("marshal osint: %w", err)
		}
		risk, err := marshalNullable(finding.Risk())
		if err != nil {
			return fmt.Errorf("marshal risk: %w", err)
		}

		tag, err := s.pool.Exec(ctx, `
			UPDATE findings SET validation = $2, osint = $3, risk = $4, updated_at = $5
			WHERE id = $1`,
			finding.ID(), validation, osint, risk, finding.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("UpdateEnrichment update error: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("UpdateEnrichment: finding %s not found", finding.ID())
		}
		return nil
	})
}

// ListValidatedMatchesExcludingTask returns the matched values of findings
// validated as real secrets in other tasks.
func (s *findingStore) ListValidatedMatchesExcludingTask(ctx context.Context, taskID uuid.UUID) (map[string]struct{}, error) {
	dbAttrs := append(defaultDBAttributes, attribute.String("task_id", taskID.String()))

	matches := make(map[string]struct{})

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_validated_matches", dbAttrs, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT DISTINCT match FROM findings
			WHERE task_id <> $1 AND validation->>'label' = 'valid'`, taskID)
		if err != nil {
			return fmt.Errorf("ListValidatedMatches query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var m string
			if err := rows.Scan(&m); err != nil {
				return fmt.Errorf("ListValidatedMatches scan error: %w", err)
			}
			matches[m] = struct{}{}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func marshalNullable(v any) ([]byte, error) {
	switch val := v.(type) {
	case *scanning.ValidationResult:
		if val == nil {
			return nil, nil
		}
	case *scanning.OsintContext:
		if val == nil {
			return nil, nil
		}
	case *scanning.RiskAssessment:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func scanFindingRow(row pgx.Row) (*scanning.Finding, error) {
	var (
		id, taskID, assetID         uuid.UUID
		ruleID, ruleLabel, category string
		severity, method            string
		match, contextSnippet, src  string
		validationRaw               []byte
		osintRaw                    []byte
		riskRaw                     []byte
		createdAt, updatedAt        time.Time
	)
	if err := row.Scan(&id, &taskID, &assetID, &ruleID, &ruleLabel, &category,
		&severity, &method, &match, &contextSnippet, &src,
		&validationRaw, &osintRaw, &riskRaw, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var validation *scanning.ValidationResult
	if len(validationRaw) > 0 {
		validation = new(scanning.ValidationResult)
		if err := json.Unmarshal(validationRaw, validation); err != nil {
			return nil, fmt.Errorf("unmarshal validation: %w", err)
		}
	}
	var osint *scanning.OsintContext
	if len(osintRaw) > 0 {
		osint = new(scanning.OsintContext)
		if err := json.Unmarshal(osintRaw, osint); err != nil {
			return nil, fmt.Errorf("unmarshal osint: %w", err)
		}
	}
	var risk *scanning.RiskAssessment
	if len(riskRaw) > 0 {
		risk = new(scanning.RiskAssessment)
		if err := json.Unmarshal(riskRaw, risk); err != nil {
			return nil, fmt.Errorf("unmarshal risk: %w", err)
		}
	}

	return scanning.ReconstructFinding(
		id, taskID, assetID, ruleID, ruleLabel, category,
		scanning.RuleSeverity(severity), scanning.DetectionMethod(method),
		match, contextSnippet, src,
		validation, osint, risk,
		createdAt, updatedAt,
	), nil
}
