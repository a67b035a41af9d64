package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/internal/infra/storage"
)

var _ scanning.StatsRepository = (*statsStore)(nil)

// statsStore implements scanning.StatsRepository with aggregate queries over
// the tasks and findings tables.
type statsStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewStatsStore creates a StatsRepository backed by PostgreSQL.
func NewStatsStore(pool *pgxpool.Pool, tracer trace.Tracer) *statsStore {
	return &statsStore{pool: pool, tracer: tracer}
}

// CountTasksByStatus returns the number of tasks per lifecycle status.
func (s *statsStore) CountTasksByStatus(ctx context.Context) (map[scanning.TaskStatus]int64, error) {
	counts := make(map[scanning.TaskStatus]int64)

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.count_tasks_by_status", defaultDBAttributes, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT status, COUNT(*) FROM tasks GROUP BY status`)
		if err != nil {
			return fmt.Errorf("CountTasksByStatus query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var status string
			var count int64
			if err := rows.Scan(&status, &count); err != nil {
				return fmt.Errorf("CountTasksByStatus scan error: %w", err)
			}
			counts[scanning.ParseTaskStatus(status)] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// CountFindingsBySeverity returns the number of findings per fused severity.
// Findings without a risk assessment yet are excluded.
func (s *statsStore) CountFindingsBySeverity(ctx context.Context) (map[scanning.RiskSeverity]int64, error) {
	counts := make(map[scanning.RiskSeverity]int64)

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.count_findings_by_severity", defaultDBAttributes, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT risk->>'severity', COUNT(*)
			FROM findings
			WHERE risk IS NOT NULL
			GROUP BY risk->>'severity'`)
		if err != nil {
			return fmt.Errorf("CountFindingsBySeverity query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var severity string
			var count int64
			if err := rows.Scan(&severity, &count); err != nil {
				return fmt.Errorf("CountFindingsBySeverity scan error: %w", err)
			}
			counts[scanning.RiskSeverity(severity)] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// CountFindingsByCategory returns the number of findings per category.
func (s *statsStore) CountFindingsByCategory(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.count_findings_by_category", defaultDBAttributes, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT category, COUNT(*) FROM findings GROUP BY category`)
		if err != nil {
			return fmt.Errorf("CountFindingsByCategory query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var category string
			var count int64
			if err := rows.Scan(&category, &count); err != nil {
				return fmt.Errorf("CountFindingsByCategory scan error: %w", err)
			}
			counts[category] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// CategorySeverityHeatmap returns finding counts bucketed by category and
// fused severity, highest counts first.
func (s *statsStore) CategorySeverityHeatmap(ctx context.Context) ([]scanning.HeatmapCell, error) {
	var cells []scanning.HeatmapCell

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.category_severity_heatmap", defaultDBAttributes, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT category, risk->>'severity', COUNT(*)
			FROM findings
			WHERE risk IS NOT NULL
			GROUP BY category, risk->>'severity'
			ORDER BY COUNT(*) DESC, category`)
		if err != nil {
			return fmt.Errorf("CategorySeverityHeatmap query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var cell scanning.HeatmapCell
			var severity string
			if err := rows.Scan(&cell.Category, &severity, &cell.Count); err != nil {
				return fmt.Errorf("CategorySeverityHeatmap scan error: %w", err)
			}
			cell.Severity = scanning.RiskSeverity(severity)
			cells = append(cells, cell)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return cells, nil
}
