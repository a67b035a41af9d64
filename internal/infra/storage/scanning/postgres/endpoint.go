package postgres

import (
	"context"
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

var _ scanning.EndpointRepository = (*endpointStore)(nil)

// endpointStore implements scanning.EndpointRepository using Postgres.
type endpointStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewEndpointStore creates an EndpointRepository backed by PostgreSQL.
func NewEndpointStore(pool *pgxpool.Pool, tracer trace.Tracer) *endpointStore {
	return &endpointStore{pool: pool, tracer: tracer}
}

// CreateEndpoints persists a batch of extracted endpoints.
func (s *endpointStore) CreateEndpoints(ctx context.Context, endpoints []*scanning.Endpoint) error {
	if len(endpoints) == 0 {
		return nil
	}

	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("task_id", endpoints[0].TaskID().String()),
		attribute.Int("count", len(endpoints)),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.create_endpoints", dbAttrs, func(ctx context.Context) error {
		batch := new(pgx.Batch)
		for _, e := range endpoints {
			batch.Queue(`
				INSERT INTO endpoints (id, task_id, asset_id, value, context, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				e.ID(), e.TaskID(), e.AssetID(), e.Value(), e.Context(), e.CreatedAt(),
			)
		}

		results := s.pool.SendBatch(ctx, batch)
		defer results.Close()

		for range endpoints {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("CreateEndpoints batch insert error: %w", err)
			}
		}
		return nil
	})
}

// ListEndpointsByTask retrieves all endpoints extracted for a task.
func (s *endpointStore) ListEndpointsByTask(ctx context.Context, taskID uuid.UUID) ([]*scanning.Endpoint, error) {
	dbAttrs := append(defaultDBAttributes, attribute.String("task_id", taskID.String()))

	var endpoints []*scanning.Endpoint

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_endpoints_by_task", dbAttrs, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT id, task_id, asset_id, value, context, created_at
			FROM endpoints WHERE task_id = $1 ORDER BY created_at`, taskID)
		if err != nil {
			return fmt.Errorf("ListEndpointsByTask query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id, tID, assetID uuid.UUID
				value, context   string
				createdAt        time.Time
			)
			if err := rows.Scan(&id, &tID, &assetID, &value, &context, &createdAt); err != nil {
				return fmt.Errorf("ListEndpointsByTask scan error: %w", err)
			}
			endpoints = append(endpoints, scanning.ReconstructEndpoint(id, tID, assetID, value, context, createdAt))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return endpoints, nil
}
