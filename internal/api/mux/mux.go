// Package mux provides support to bind domain level routes to the application
// mux.
package mux

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/SaTyAbHr2005/sentrix/internal/api/mid"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/events"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/rules"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
	"github.com/SaTyAbHr2005/sentrix/pkg/web"
)

// Options represent optional parameters.
type Options struct {
	corsOrigin []string
}

// WithCORS provides configuration options for CORS.
func WithCORS(origins []string) func(opts *Options) {
	return func(opts *Options) {
		opts.corsOrigin = origins
	}
}

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Build    string
	Log      *logger.Logger
	Tracer   trace.Tracer
	EventBus events.DomainEventPublisher

	Tasks     scanning.TaskRepository
	Assets    scanning.AssetRepository
	Findings  scanning.FindingRepository
	Endpoints scanning.EndpointRepository
	TaskLogs  scanning.TaskLogRepository
	Stats     scanning.StatsRepository
	Rules     rules.RuleRepository
}

// RouteAdder defines behavior that sets the routes to bind for an instance
// of the service.
type RouteAdder interface {
	Add(app *web.App, cfg Config)
}

// WebAPI constructs a http.Handler with all application routes bound.
func WebAPI(cfg Config, routeAdder RouteAdder, options ...func(opts *Options)) http.Handler {
	logger := func(ctx context.Context, msg string, args ...any) {
		cfg.Log.Info(ctx, msg, args...)
	}

	app := web.NewApp(
		logger,
		cfg.Tracer,
		mid.Otel(cfg.Tracer),
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Panics(),
	)

	var opts Options
	for _, option := range options {
		option(&opts)
	}

	if len(opts.corsOrigin) > 0 {
		app.EnableCORS(opts.corsOrigin)
	}

	routeAdder.Add(app, cfg)

	return app
}
