package postgres

import (
	"context"
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

var _ scanning.AssetRepository = (*assetStore)(nil)

// assetStore implements scanning.AssetRepository using Postgres. Assets are
// deduplicated per task by content hash; inserting a duplicate is a no-op.
type assetStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewAssetStore creates an AssetRepository backed by PostgreSQL.
func NewAssetStore(pool *pgxpool.Pool, tracer trace.Tracer) *assetStore {
	return &assetStore{pool: pool, tracer: tracer}
}

// CreateAsset persists a discovered asset. Duplicate content within the same
// task is ignored.
func (s *assetStore) CreateAsset(ctx context.Context, asset *scanning.Asset) error {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("asset_id", asset.ID().String()),
		attribute.String("task_id", asset.TaskID().String()),
		attribute.String("origin", string(asset.Origin())),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.create_asset", dbAttrs, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO assets (id, task_id, page_url, source_url, origin, content, content_hash, discovered_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (task_id, content_hash) DO NOTHING`,
			asset.ID(), asset.TaskID(), asset.PageURL(), asset.SourceURL(),
			string(asset.Origin()), asset.Content(), asset.ContentHash(), asset.DiscoveredAt(),
		)
		if err != nil {
			return fmt.Errorf("CreateAsset insert error: %w", err)
		}
		return nil
	})
}

// GetAsset retrieves a single asset including its content.
func (s *assetStore) GetAsset(ctx context.Context, id uuid.UUID) (*scanning.Asset, error) {
	dbAttrs := append(defaultDBAttributes, attribute.String("asset_id", id.String()))

	var asset *scanning.Asset

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.get_asset", dbAttrs, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT id, task_id, page_url, source_url, origin, content, content_hash, discovered_at
			FROM assets WHERE id = $1`, id)

		a, err := scanAssetRow(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("GetAsset query error: %w", err)
		}
		asset = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, pgx.ErrNoRows
	}
	return asset, nil
}

// ListAssetsByTask retrieves all assets discovered for a task in discovery order.
func (s *assetStore) ListAssetsByTask(ctx context.Context, taskID uuid.UUID) ([]*scanning.Asset, error) {
	dbAttrs := append(defaultDBAttributes, attribute.String("task_id", taskID.String()))

	var assets []*scanning.Asset

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_assets_by_task", dbAttrs, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT id, task_id, page_url, source_url, origin, content, content_hash, discovered_at
			FROM assets WHERE task_id = $1 ORDER BY discovered_at`, taskID)
		if err != nil {
			return fmt.Errorf("ListAssetsByTask query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			a, err := scanAssetRow(rows)
			if err != nil {
				return fmt.Errorf("ListAssetsByTask scan error: %w", err)
			}
			assets = append(assets, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// CountAssetsByTask returns the number of assets stored for a task.
func (s *assetStore) CountAssetsByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	dbAttrs := append(defaultDBAttributes, attribute.String("task_id", taskID.String()))

	var count int64

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.count_assets_by_task", dbAttrs, func(ctx context.Context) error {
		if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM assets WHERE task_id = $1`, taskID).Scan(&count); err != nil {
			return fmt.Errorf("CountAssetsByTask query error: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func scanAssetRow(row pgx.Row) (*scanning.Asset, error) {
	var (
		id, taskID            uuid.UUID
		pageURL, sourceURL    string
		origin, content, hash string
		discoveredAt          time.Time
	)
	if err := row.Scan(&id, &taskID, &pageURL, &sourceURL, &origin, &content, &hash, &discoveredAt); err != nil {
		return nil, err
	}
	return scanning.ReconstructAsset(id, taskID, pageURL, sourceURL,
		scanning.AssetOrigin(origin), content, hash, discoveredAt), nil
}
