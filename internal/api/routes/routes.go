// Package routes binds the full set of API routes to the application mux.
package routes

import (
	"github.com/SaTyAbHr2005/sentrix/internal/api/health"
	"github.com/SaTyAbHr2005/sentrix/internal/api/mux"
	"github.com/SaTyAbHr2005/sentrix/internal/api/patterns"
	"github.com/SaTyAbHr2005/sentrix/internal/api/tasks"
	"github.com/SaTyAbHr2005/sentrix/internal/app/rules"
	"github.com/SaTyAbHr2005/sentrix/pkg/web"
)

// Routes constructs an add value which provides the implementation of
// RouteAdder for specifying what routes to bind to this instance.
func Routes() add {
	return add{}
}

type add struct{}

// Add implements the RouteAdder interface.
func (add) Add(app *web.App, cfg mux.Config) {
	health.Routes(app, health.Config{
		Build: cfg.Build,
		Log:   cfg.Log,
	})

	taskService := tasks.NewService(
		cfg.Log,
		cfg.EventBus,
		cfg.Tasks,
		cfg.Assets,
		cfg.Findings,
		cfg.Endpoints,
		cfg.TaskLogs,
		cfg.Stats,
	)

	tasks.Routes(app, tasks.Config{
		Log:         cfg.Log,
		TaskService: taskService,
	})

	ruleService := rules.NewService(cfg.Rules, cfg.EventBus, cfg.Log, cfg.Tracer)

	patterns.Routes(app, patterns.Config{
		Log:         cfg.Log,
		RuleService: ruleService,
		Rules:       cfg.Rules,
	})
}
