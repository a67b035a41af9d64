// Package scanning provides the domain types for web secret scan tasks: the
// task state machine, discovered assets, detected findings and their
// enrichment through validation, exposure correlation and risk fusion.
package scanning

import (
	"context"

	"github.com/google/uuid"
)

// TaskRepository defines the persistence operations for scan tasks.
// It provides an abstraction layer over the storage mechanism used to maintain
// task state and stage results.
type TaskRepository interface {
	// CreateTask persists a task's initial state.
	CreateTask(ctx context.Context, task *Task) error

	// GetTask retrieves a task's current state.
	GetTask(ctx context.Context, id uuid.UUID) (*Task, error)

	// UpdateTask persists changes to an existing task's status, cancel flag
	// and stage results.
	UpdateTask(ctx context.Context, task *Task) error

	// ListTasks retrieves a paginated list of tasks, newest first.
	ListTasks(ctx context.Context, limit, offset int) ([]*Task, error)

	// DeleteTask removes a task and all of its dependent records.
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// DeleteAllTasks removes every task and all dependent records, returning
	// the number of tasks removed.
	DeleteAllTasks(ctx context.Context) (int64, error)
}

// AssetRepository defines the persistence operations for discovered assets.
type AssetRepository interface {
	// CreateAsset persists a discovered asset and its content.
	CreateAsset(ctx context.Context, asset *Asset) error

	// GetAsset retrieves a single asset including its content.
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)

	// ListAssetsByTask retrieves all assets discovered for a task.
	ListAssetsByTask(ctx context.Context, taskID uuid.UUID) ([]*Asset, error)

	// CountAssetsByTask returns the number of assets stored for a task.
	CountAssetsByTask(ctx context.Context, taskID uuid.UUID) (int64, error)
}

// FindingRepository defines the persistence operations for findings and their
// stage enrichments.
type FindingRepository interface {
	// CreateFindings persists a batch of detection-stage findings.
	CreateFindings(ctx context.Context, findings []*Finding) error

	// ListFindingsByTask retrieves all findings for a task.
	ListFindingsByTask(ctx context.Context, taskID uuid.UUID) ([]*Finding, error)

	// UpdateEnrichment overwrites a finding's validation, osint and risk
	// columns with the finding's current in-memory state.
	UpdateEnrichment(ctx context.Context, finding *Finding) error

	// ListValidatedMatchesExcludingTask returns the matched values of
	// findings validated as real secrets in other tasks. Used for secret
	// reuse correlation.
	ListValidatedMatchesExcludingTask(ctx context.Context, taskID uuid.UUID) (map[string]struct{}, error)
}

// EndpointRepository defines the persistence operations for extracted endpoints.
type EndpointRepository interface {
	// CreateEndpoints persists a batch of extracted endpoints.
	CreateEndpoints(ctx context.Context, endpoints []*Endpoint) error

	// ListEndpointsByTask retrieves all endpoints extracted for a task.
	ListEndpointsByTask(ctx context.Context, taskID uuid.UUID) ([]*Endpoint, error)
}

// HeatmapCell is one category and severity bucket in the findings heatmap.
type HeatmapCell struct {
	Category string       `json:"category"`
	Severity RiskSeverity `json:"severity"`
	Count    int64        `json:"count"`
}

// StatsRepository provides the aggregate rollups served by the stats API.
type StatsRepository interface {
	// CountTasksByStatus returns the number of tasks per lifecycle status.
	CountTasksByStatus(ctx context.Context) (map[TaskStatus]int64, error)

	// CountFindingsBySeverity returns the number of findings per fused risk
	// severity. Findings not yet through risk fusion are excluded.
	CountFindingsBySeverity(ctx context.Context) (map[RiskSeverity]int64, error)

	// CountFindingsByCategory returns the number of findings per category.
	CountFindingsByCategory(ctx context.Context) (map[string]int64, error)

	// CategorySeverityHeatmap returns finding counts bucketed by category and
	// fused severity.
	CategorySeverityHeatmap(ctx context.Context) ([]HeatmapCell, error)
}

// TaskLogRepository defines the persistence operations for task progress logs.
type TaskLogRepository interface {
	// AppendLog persists a progress entry.
	AppendLog(ctx context.Context, entry *TaskLog) error

	// ListLogsByTask retrieves a task's progress entries in creation order.
	ListLogsByTask(ctx context.Context, taskID uuid.UUID) ([]*TaskLog, error)
}
