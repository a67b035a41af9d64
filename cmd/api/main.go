package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/SaTyAbHr2005/sentrix/internal/api"
	"github.com/SaTyAbHr2005/sentrix/internal/api/mux"
	"github.com/SaTyAbHr2005/sentrix/internal/api/routes"
	"github.com/SaTyAbHr2005/sentrix/internal/config"
	"github.com/SaTyAbHr2005/sentrix/internal/infra/eventbus/kafka"
	rulesStore "github.com/SaTyAbHr2005/sentrix/internal/infra/storage/rules/postgres"
	scanningStore "github.com/SaTyAbHr2005/sentrix/internal/infra/storage/scanning/postgres"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/otel"
)

var build = "develop"

const serviceType = "api"

func main() {
	_, _ = maxprocs.Set()

	hostname, err := os.Hostname()
	if err != nil {
		log.Fatalf("failed to get hostname: %v", err)
	}

	var logg *logger.Logger

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}

			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}

			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n",
				r.Message, errorAttrsJSON)
		},
	}

	traceIDFn := func(ctx context.Context) string {
		return otel.GetTraceID(ctx)
	}

	svcName := fmt.Sprintf("API-%s", hostname)
	metadata := map[string]string{
		"service":  svcName,
		"hostname": hostname,
		"app":      serviceType,
	}

	logg = logger.NewWithMetadata(os.Stdout, logger.LevelInfo, svcName, traceIDFn, logEvents, metadata)

	ctx := context.Background()

	if err := run(ctx, logg, hostname); err != nil {
		logg.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, hostname string) error {
	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// -------------------------------------------------------------------------
	// Start Tracing Support

	tp, telemetryTeardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      cfg.Telemetry.ServiceName + "-api",
		ExporterEndpoint: cfg.Telemetry.ExporterEndpoint,
		ExcludedRoutes: map[string]struct{}{
			"/v1/health":    {},
			"/v1/readiness": {},
		},
		Probability: cfg.Telemetry.Probability,
		ResourceAttributes: map[string]string{
			"library.language": "go",
			"host.name":        hostname,
		},
		InsecureExporter: cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer telemetryTeardown(ctx)

	tracer := tp.Tracer(cfg.Telemetry.ServiceName + "-api")

	// -------------------------------------------------------------------------
	// Database Support

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("parsing db config: %w", err)
	}
	poolCfg.MinConns = cfg.Postgres.MinConns
	poolCfg.MaxConns = cfg.Postgres.MaxConns
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("creating db pool: %w", err)
	}
	defer pool.Close()

	// -------------------------------------------------------------------------
	// Event Bus

	metrics, err := api.NewAPIMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	bus, err := kafka.ConnectWithRetry(&kafka.Config{
		Brokers:       cfg.Kafka.Brokers,
		PipelineTopic: cfg.Kafka.PipelineTopic,
		ControlTopic:  cfg.Kafka.ControlTopic,
		RulesTopic:    cfg.Kafka.RulesTopic,
		GroupID:       cfg.Kafka.GroupID + "-api",
		ClientID:      fmt.Sprintf("%s-api-%s", cfg.Kafka.ClientID, hostname),
		ServiceType:   serviceType,
	}, log, metrics, tracer)
	if err != nil {
		return fmt.Errorf("connecting event bus: %w", err)
	}
	defer bus.Close()

	publisher := kafka.NewDomainEventPublisher(bus)

	// -------------------------------------------------------------------------
	// Start API Service

	log.Info(ctx, "startup", "status", "initializing API support")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	cfgMux := mux.Config{
		Build:     build,
		Log:       log,
		Tracer:    tracer,
		EventBus:  publisher,
		Tasks:     scanningStore.NewTaskStore(pool, tracer),
		Assets:    scanningStore.NewAssetStore(pool, tracer),
		Findings:  scanningStore.NewFindingStore(pool, tracer),
		Endpoints: scanningStore.NewEndpointStore(pool, tracer),
		TaskLogs:  scanningStore.NewTaskLogStore(pool, tracer),
		Stats:     scanningStore.NewStatsStore(pool, tracer),
		Rules:     rulesStore.NewRuleStore(pool, tracer),
	}

	webAPI := mux.WebAPI(cfgMux,
		routes.Routes(),
		mux.WithCORS(cfg.Web.CORSOrigins),
	)

	apiAddr := fmt.Sprintf("%s:%s", cfg.Web.Host, cfg.Web.Port)
	apiSrv := http.Server{
		Addr:         apiAddr,
		Handler:      webAPI,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     logger.NewStdLogger(log, logger.LevelError),
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Info(ctx, "startup", "status", "api router started", "host", apiSrv.Addr)
		serverErrors <- apiSrv.ListenAndServe()
	}()

	// -------------------------------------------------------------------------
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info(ctx, "shutdown", "status", "shutdown started", "signal", sig)
		defer log.Info(ctx, "shutdown", "status", "shutdown complete", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := apiSrv.Shutdown(shutdownCtx); err != nil {
			_ = apiSrv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
