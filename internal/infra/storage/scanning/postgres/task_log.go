package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/internal/infra/storage"
)

var _ scanning.TaskLogRepository = (*taskLogStore)(nil)

// taskLogStore implements scanning.TaskLogRepository using Postgres.
// Progress entries are append-only.
type taskLogStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewTaskLogStore creates a TaskLogRepository backed by PostgreSQL.
func NewTaskLogStore(pool *pgxpool.Pool, tracer trace.Tracer) *taskLogStore {
	return &taskLogStore{pool: pool, tracer: tracer}
}

// AppendLog persists one progress entry.
func (s *taskLogStore) AppendLog(ctx context.Context, entry *scanning.TaskLog) error {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("task_id", entry.TaskID().String()),
		attribute.String("stage", entry.Stage().String()),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.append_task_log", dbAttrs, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO task_logs (id, task_id, stage, level, message, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			entry.ID(), entry.TaskID(), string(entry.Stage()), string(entry.Level()),
			entry.Message(), entry.CreatedAt(),
		)
		if err != nil {
			return fmt.Errorf("AppendLog insert error: %w", err)
		}
		return nil
	})
}

// ListLogsByTask retrieves a task's progress entries in creation order.
func (s *taskLogStore) ListLogsByTask(ctx context.Context, taskID uuid.UUID) ([]*scanning.TaskLog, error) {
	dbAttrs := append(defaultDBAttributes, attribute.String("task_id", taskID.String()))

	var logs []*scanning.TaskLog

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_task_logs", dbAttrs, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT id, task_id, stage, level, message, created_at
			FROM task_logs WHERE task_id = $1 ORDER BY created_at`, taskID)
		if err != nil {
			return fmt.Errorf("ListLogsByTask query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id, tID               uuid.UUID
				stage, level, message string
				createdAt             time.Time
			)
			if err := rows.Scan(&id, &tID, &stage, &level, &message, &createdAt); err != nil {
				return fmt.Errorf("ListLogsByTask scan error: %w", err)
			}
			logs = append(logs, scanning.ReconstructTaskLog(id, tID,
				scanning.Stage(stage), scanning.LogLevel(level), message, createdAt))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}
