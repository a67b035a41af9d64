package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/SaTyAbHr2005/sentrix/internal/infra/eventbus/kafka"
)

const namespace = "sentrix_worker"

// PipelineMetrics defines metrics operations needed by the pipeline worker.
type PipelineMetrics interface {
	// EventBus metrics.
	kafka.EventBusMetrics

	// Pipeline metrics.
	IncTasksStarted(ctx context.Context)
	IncTasksStopped(ctx context.Context)
	IncStageCompleted(ctx context.Context, stage string)
	IncStageFailed(ctx context.Context, stage string)
	ObserveStageDuration(ctx context.Context, stage string, duration time.Duration)
}

type pipelineMetrics struct {
	// Broker metrics.
	messagesPublished metric.Int64Counter
	messagesConsumed  metric.Int64Counter
	publishErrors     metric.Int64Counter
	consumeErrors     metric.Int64Counter

	// Pipeline metrics.
	tasksStarted    metric.Int64Counter
	tasksStopped    metric.Int64Counter
	stagesCompleted metric.Int64Counter
	stagesFailed    metric.Int64Counter
	stageDuration   metric.Float64Histogram
}

// NewPipelineMetrics creates the metric instruments used by the worker.
func NewPipelineMetrics(mp metric.MeterProvider) (*pipelineMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(pipelineMetrics)
	var err error

	if m.messagesPublished, err = meter.Int64Counter(
		"messages_published_total",
		metric.WithDescription("Total number of messages published"),
	); err != nil {
		return nil, err
	}

	if m.messagesConsumed, err = meter.Int64Counter(
		"messages_consumed_total",
		metric.WithDescription("Total number of messages consumed"),
	); err != nil {
		return nil, err
	}

	if m.publishErrors, err = meter.Int64Counter(
		"publish_errors_total",
		metric.WithDescription("Total number of publish errors"),
	); err != nil {
		return nil, err
	}

	if m.consumeErrors, err = meter.Int64Counter(
		"consume_errors_total",
		metric.WithDescription("Total number of consume errors"),
	); err != nil {
		return nil, err
	}

	if m.tasksStarted, err = meter.Int64Counter(
		"tasks_started_total",
		metric.WithDescription("Total number of scan tasks started"),
	); err != nil {
		return nil, err
	}

	if m.tasksStopped, err = meter.Int64Counter(
		"tasks_stopped_total",
		metric.WithDescription("Total number of scan tasks stopped by cancellation"),
	); err != nil {
		return nil, err
	}

	if m.stagesCompleted, err = meter.Int64Counter(
		"stages_completed_total",
		metric.WithDescription("Total number of completed pipeline stages"),
	); err != nil {
		return nil, err
	}

	if m.stagesFailed, err = meter.Int64Counter(
		"stages_failed_total",
		metric.WithDescription("Total number of failed pipeline stages"),
	); err != nil {
		return nil, err
	}

	if m.stageDuration, err = meter.Float64Histogram(
		"stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// EventBusMetrics implementation
func (m *pipelineMetrics) IncMessagePublished(ctx context.Context, topic string) {
	m.messagesPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *pipelineMetrics) IncMessageConsumed(ctx context.Context, topic string) {
	m.messagesConsumed.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *pipelineMetrics) IncPublishError(ctx context.Context, topic string) {
	m.publishErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *pipelineMetrics) IncConsumeError(ctx context.Context, topic string) {
	m.consumeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

// Pipeline metrics implementation
func (m *pipelineMetrics) IncTasksStarted(ctx context.Context) {
	m.tasksStarted.Add(ctx, 1)
}

func (m *pipelineMetrics) IncTasksStopped(ctx context.Context) {
	m.tasksStopped.Add(ctx, 1)
}

func (m *pipelineMetrics) IncStageCompleted(ctx context.Context, stage string) {
	m.stagesCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *pipelineMetrics) IncStageFailed(ctx context.Context, stage string) {
	m.stagesFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *pipelineMetrics) ObserveStageDuration(ctx context.Context, stage string, duration time.Duration) {
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}
