// Package tasks provides API services for scan task operations.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/events"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

// ErrTaskFinished is returned when a stop is requested for a task that has
// already reached a terminal status.
var ErrTaskFinished = errors.New("task already in a terminal status")

// Service coordinates task operations from the API layer. Writes go through
// the repositories and the pipeline is triggered by publishing domain events.
type Service struct {
	log      *logger.Logger
	eventBus events.DomainEventPublisher

	tasks     scanning.TaskRepository
	assets    scanning.AssetRepository
	findings  scanning.FindingRepository
	endpoints scanning.EndpointRepository
	taskLogs  scanning.TaskLogRepository
	stats     scanning.StatsRepository
}

// NewService creates a new task coordination service.
func NewService(
	log *logger.Logger,
	eventBus events.DomainEventPublisher,
	tasks scanning.TaskRepository,
	assets scanning.AssetRepository,
	findings scanning.FindingRepository,
	endpoints scanning.EndpointRepository,
	taskLogs scanning.TaskLogRepository,
	stats scanning.StatsRepository,
) *Service {
	return &Service{
		log:       log,
		eventBus:  eventBus,
		tasks:     tasks,
		assets:    assets,
		findings:  findings,
		endpoints: endpoints,
		taskLogs:  taskLogs,
		stats:     stats,
	}
}

// SubmitTask accepts a new scan, persists it as queued and publishes the
// event that starts the pipeline.
func (s *Service) SubmitTask(ctx context.Context, seedURL string, enumerateSubdomains bool, assetCap int) (*scanning.Task, error) {
	task := scanning.NewTask(seedURL, enumerateSubdomains, assetCap)

	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to persist task: %w", err)
	}

	evt := scanning.NewTaskCreatedEvent(task.ID(), task.SeedURL(), task.EnumerateSubdomains())
	if err := s.eventBus.PublishDomainEvent(ctx, evt, events.WithKey(task.ID().String())); err != nil {
		return nil, fmt.Errorf("failed to publish task created event: %w", err)
	}

	s.log.Info(ctx, "task submitted", "task_id", task.ID(), "seed_url", task.SeedURL())
	return task, nil
}

// GetTask retrieves one task with its stage results.
func (s *Service) GetTask(ctx context.Context, id uuid.UUID) (*scanning.Task, error) {
	return s.tasks.GetTask(ctx, id)
}

// ListTasks retrieves tasks newest first.
func (s *Service) ListTasks(ctx context.Context, limit, offset int) ([]*scanning.Task, error) {
	return s.tasks.ListTasks(ctx, limit, offset)
}

// StopTask flags a task for cancellation. The pipeline observes the flag
// before starting its next stage; a task that already reached a terminal
// status cannot be stopped.
func (s *Service) StopTask(ctx context.Context, id uuid.UUID) (*scanning.Task, error) {
	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if task.Status().IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrTaskFinished, task.Status())
	}

	task.RequestCancel()
	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to persist cancel request: %w", err)
	}

	s.log.Info(ctx, "task stop requested", "task_id", id, "status", task.Status())
	return task, nil
}

// DeleteTask removes a task and all of its dependent records.
func (s *Service) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return s.tasks.DeleteTask(ctx, id)
}

// DeleteAllTasks removes every task, returning how many were deleted.
func (s *Service) DeleteAllTasks(ctx context.Context) (int64, error) {
	return s.tasks.DeleteAllTasks(ctx)
}

// ListFindings retrieves a task's findings with their enrichments.
func (s *Service) ListFindings(ctx context.Context, taskID uuid.UUID) ([]*scanning.Finding, error) {
	if _, err := s.tasks.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.findings.ListFindingsByTask(ctx, taskID)
}

// ListAssets retrieves a task's discovered assets.
func (s *Service) ListAssets(ctx context.Context, taskID uuid.UUID) ([]*scanning.Asset, error) {
	if _, err := s.tasks.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.assets.ListAssetsByTask(ctx, taskID)
}

// ListEndpoints retrieves a task's extracted endpoints.
func (s *Service) ListEndpoints(ctx context.Context, taskID uuid.UUID) ([]*scanning.Endpoint, error) {
	if _, err := s.tasks.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.endpoints.ListEndpointsByTask(ctx, taskID)
}

// ListLogs retrieves a task's progress log in creation order.
func (s *Service) ListLogs(ctx context.Context, taskID uuid.UUID) ([]*scanning.TaskLog, error) {
	if _, err := s.tasks.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.taskLogs.ListLogsByTask(ctx, taskID)
}

// Overview holds the aggregate rollups served by the stats endpoint.
type Overview struct {
	TasksByStatus      map[scanning.TaskStatus]int64
	FindingsBySeverity map[scanning.RiskSeverity]int64
	FindingsByCategory map[string]int64
}

// Stats assembles the status, severity and category rollups.
func (s *Service) Stats(ctx context.Context) (Overview, error) {
	byStatus, err := s.stats.CountTasksByStatus(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("failed to count tasks by status: %w", err)
	}

	bySeverity, err := s.stats.CountFindingsBySeverity(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("failed to count findings by severity: %w", err)
	}

	byCategory, err := s.stats.CountFindingsByCategory(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("failed to count findings by category: %w", err)
	}

	return Overview{
		TasksByStatus:      byStatus,
		FindingsBySeverity: bySeverity,
		FindingsByCategory: byCategory,
	}, nil
}

// Heatmap retrieves finding counts bucketed by category and fused severity.
func (s *Service) Heatmap(ctx context.Context) ([]scanning.HeatmapCell, error) {
	return s.stats.CategorySeverityHeatmap(ctx)
}
