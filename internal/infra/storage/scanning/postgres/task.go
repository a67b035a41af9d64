// Package postgres provides PostgreSQL-backed implementations of the scanning
// domain repositories.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
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

// defaultDBAttributes defines standard OpenTelemetry attributes for PostgreSQL operations.
var defaultDBAttributes = []attribute.KeyValue{
	attribute.String("db.system", "postgresql"),
}

// Ensure taskStore implements scanning.TaskRepository at compile time.
var _ scanning.TaskRepository = (*taskStore)(nil)

// taskStore implements scanning.TaskRepository using Postgres. It provides
// persistent storage and retrieval of scan task state, including the per-stage
// result subtrees the pipeline commits as it advances.
type taskStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewTaskStore creates a TaskRepository backed by PostgreSQL. It encapsulates
// database operations and telemetry for scan task management.
func NewTaskStore(pool *pgxpool.Pool, tracer trace.Tracer) *taskStore {
	return &taskStore{pool: pool, tracer: tracer}
}

// CreateTask persists a new task's initial state in the database.
func (s *taskStore) CreateTask(ctx context.Context, task *scanning.Task) error {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("task_id", task.ID().String()),
		attribute.String("seed_url", task.SeedURL()),
		attribute.String("status", string(task.Status())),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.create_task", dbAttrs, func(ctx context.Context) error {
		stageResults, err := json.Marshal(task.StageResults())
		if err != nil {
			return fmt.Errorf("marshal stage results: %w", err)
		}

		_, err = s.pool.Exec(ctx, `
			INSERT INTO tasks (id, seed_url, status, enumerate_subdomains, asset_cap, cancel_requested, stage_results, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			task.ID(), task.SeedURL(), string(task.Status()), task.EnumerateSubdomains(),
			task.AssetCap(), task.CancelRequested(), stageResults, task.CreatedAt(), task.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("CreateTask insert error: %w", err)
		}
		return nil
	})
}

// GetTask retrieves a task's current state, reconstructing the domain Task
// from stored data including committed stage results.
func (s *taskStore) GetTask(ctx context.Context, id uuid.UUID) (*scanning.Task, error) {
	dbAttrs := append(defaultDBAttributes, attribute.String("task_id", id.String()))

	var domainTask *scanning.Task

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.get_task", dbAttrs, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT id, seed_url, status, enumerate_subdomains, asset_cap, cancel_requested, stage_results, created_at, updated_at
			FROM tasks WHERE id = $1`, id)

		task, err := scanTaskRow(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("GetTask query error: %w", err)
		}
		domainTask = task
		return nil
	})

	if err != nil {
		return nil, err
	}
	if domainTask == nil {
		return nil, scanning.ErrTaskNotFound
	}
	return domainTask, nil
}

// UpdateTask persists changes to an existing task's status, cancel flag and
// stage results.
func (s *taskStore) UpdateTask(ctx context.Context, task *scanning.Task) error {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("task_id", task.ID().String()),
		attribute.String("status", string(task.Status())),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.update_task", dbAttrs, func(ctx context.Context) error {
		stageResults, err := json.Marshal(task.StageResults())
		if err != nil {
			return fmt.Errorf("marshal stage results: %w", err)
		}

		tag, err := s.pool.Exec(ctx, `
			UPDATE tasks
			SET status = $2, cancel_requested = $3, stage_results = $4, updated_at = $5
			WHERE id = $1`,
			task.ID(), string(task.Status()), task.CancelRequested(), stageResults, task.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("UpdateTask update error: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("UpdateTask: task %s not found", task.ID())
		}
		return nil
	})
}

// ListTasks retrieves a paginated list of tasks ordered newest first.
func (s *taskStore) ListTasks(ctx context.Context, limit, offset int) ([]*scanning.Task, error) {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	var tasks []*scanning.Task

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_tasks", dbAttrs, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT id, seed_url, status, enumerate_subdomains, asset_cap, cancel_requested, stage_results, created_at, updated_at
			FROM tasks ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
		if err != nil {
			return fmt.Errorf("ListTasks query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			task, err := scanTaskRow(rows)
			if err != nil {
				return fmt.Errorf("ListTasks scan error: %w", err)
			}
			tasks = append(tasks, task)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// DeleteTask removes a task; dependent rows cascade.
func (s *taskStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	dbAttrs := append(defaultDBAttributes, attribute.String("task_id", id.String()))

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.delete_task", dbAttrs, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("DeleteTask delete error: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return scanning.ErrTaskNotFound
		}
		return nil
	})
}

// DeleteAllTasks removes every task, returning how many were deleted.
func (s *taskStore) DeleteAllTasks(ctx context.Context) (int64, error) {
	var deleted int64

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.delete_all_tasks", defaultDBAttributes, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM tasks`)
		if err != nil {
			return fmt.Errorf("DeleteAllTasks delete error: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// scanTaskRow maps one tasks row onto the domain Task.
func scanTaskRow(row pgx.Row) (*scanning.Task, error) {
	var (
		id                  uuid.UUID
		seedURL             string
		status              string
		enumerateSubdomains bool
		assetCap            int
		cancelRequested     bool
		stageResultsRaw     []byte
		createdAt, updated  time.Time
	)

	if err := row.Scan(&id, &seedURL, &status, &enumerateSubdomains, &assetCap,
		&cancelRequested, &stageResultsRaw, &createdAt, &updated); err != nil {
		return nil, err
	}

	stageResults := make(map[scanning.Stage]json.RawMessage)
	if len(stageResultsRaw) > 0 {
		if err := json.Unmarshal(stageResultsRaw, &stageResults); err != nil {
			return nil, fmt.Errorf("unmarshal stage results: %w", err)
		}
	}

	return scanning.ReconstructTask(
		id, seedURL,
		scanning.ParseTaskStatus(status),
		enumerateSubdomains, assetCap, cancelRequested,
		stageResults,
		createdAt, updated,
	), nil
}
