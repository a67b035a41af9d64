package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/SaTyAbHr2005/sentrix/internal/app/crawler"
	"github.com/SaTyAbHr2005/sentrix/internal/app/detector"
	"github.com/SaTyAbHr2005/sentrix/internal/app/osint"
	"github.com/SaTyAbHr2005/sentrix/internal/app/pipeline"
	"github.com/SaTyAbHr2005/sentrix/internal/app/risk"
	"github.com/SaTyAbHr2005/sentrix/internal/app/rules"
	"github.com/SaTyAbHr2005/sentrix/internal/app/validation"
	"github.com/SaTyAbHr2005/sentrix/internal/config"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/internal/infra/dns"
	"github.com/SaTyAbHr2005/sentrix/internal/infra/eventbus/kafka"
	rulesStore "github.com/SaTyAbHr2005/sentrix/internal/infra/storage/rules/postgres"
	scanningStore "github.com/SaTyAbHr2005/sentrix/internal/infra/storage/scanning/postgres"
	"github.com/SaTyAbHr2005/sentrix/pkg/common"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/otel"
)

const serviceType = "worker"

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

	svcName := fmt.Sprintf("WORKER-%s", hostname)
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
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// -------------------------------------------------------------------------
	// Start Tracing Support

	tp, telemetryTeardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      cfg.Telemetry.ServiceName + "-worker",
		ExporterEndpoint: cfg.Telemetry.ExporterEndpoint,
		Probability:      cfg.Telemetry.Probability,
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

	tracer := tp.Tracer(cfg.Telemetry.ServiceName + "-worker")

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

	if err := runMigrations(ctx, pool); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info(ctx, "startup", "status", "migrations applied")

	// -------------------------------------------------------------------------
	// Event Bus

	metrics, err := pipeline.NewPipelineMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	bus, err := kafka.ConnectWithRetry(&kafka.Config{
		Brokers:       cfg.Kafka.Brokers,
		PipelineTopic: cfg.Kafka.PipelineTopic,
		ControlTopic:  cfg.Kafka.ControlTopic,
		RulesTopic:    cfg.Kafka.RulesTopic,
		GroupID:       cfg.Kafka.GroupID,
		ClientID:      fmt.Sprintf("%s-%s", cfg.Kafka.ClientID, hostname),
		ServiceType:   serviceType,
	}, log, metrics, tracer)
	if err != nil {
		return fmt.Errorf("connecting event bus: %w", err)
	}
	defer bus.Close()

	publisher := kafka.NewDomainEventPublisher(bus)

	// -------------------------------------------------------------------------
	// Stores and Rules

	taskStore := scanningStore.NewTaskStore(pool, tracer)
	assetStore := scanningStore.NewAssetStore(pool, tracer)
	findingStore := scanningStore.NewFindingStore(pool, tracer)
	endpointStore := scanningStore.NewEndpointStore(pool, tracer)
	taskLogStore := scanningStore.NewTaskLogStore(pool, tracer)
	ruleStore := rulesStore.NewRuleStore(pool, tracer)

	ruleService := rules.NewService(ruleStore, publisher, log, tracer)
	seeded, err := ruleService.SeedDefaultRules(ctx)
	if err != nil {
		return fmt.Errorf("seeding default rules: %w", err)
	}
	log.Info(ctx, "startup", "status", "default rules seeded", "count", seeded)

	if cfg.Rules.PatternsFile != "" {
		imported, err := ruleService.ImportPatternFile(ctx, cfg.Rules.PatternsFile)
		if err != nil {
			return fmt.Errorf("importing pattern file %s: %w", cfg.Rules.PatternsFile, err)
		}
		log.Info(ctx, "startup", "status", "pattern file imported", "file", cfg.Rules.PatternsFile, "count", imported)
	}

	ruleCache := rules.NewCache(ruleStore, cfg.Rules.CacheTTL, log)
	ruleListener := rules.NewListener(ruleService, ruleCache, log)
	if err := ruleListener.Subscribe(ctx, bus); err != nil {
		return fmt.Errorf("subscribing rule listener: %w", err)
	}

	// -------------------------------------------------------------------------
	// Pipeline Stages

	limiter := common.NewRateLimiter(cfg.Crawler.RatePerSecond, cfg.Crawler.Burst)
	fetcher := crawler.NewFetcher(limiter)
	enumerator := crawler.NewSubdomainEnumerator(log)
	crawl := crawler.NewCrawler(fetcher, enumerator, assetStore, log, tracer)

	detect := detector.NewDetector(ruleCache, assetStore, findingStore, endpointStore, log, tracer)

	analyzer := validation.NewAnalyzer(dns.NewResolver(""))

	datasets, err := osint.DefaultDatasets()
	if err != nil {
		return fmt.Errorf("loading osint datasets: %w", err)
	}
	correlator := osint.NewCorrelator(datasets)

	classifier := risk.TrainSyntheticClassifier()
	riskEngine := risk.NewEngine(classifier)
	log.Info(ctx, "startup", "status", "risk classifier trained")

	runners := map[scanning.Stage]pipeline.StageRunner{
		scanning.StageDiscovery:   pipeline.NewDiscoveryStage(crawl),
		scanning.StageDetection:   pipeline.NewDetectionStage(detect),
		scanning.StageValidation:  pipeline.NewValidationStage(analyzer, findingStore, assetStore, log),
		scanning.StageCorrelation: pipeline.NewCorrelationStage(correlator, findingStore, assetStore, log),
		scanning.StageRisk:        pipeline.NewRiskStage(riskEngine, findingStore, log),
	}

	coordinator := pipeline.NewCoordinator(
		taskStore,
		taskLogStore,
		publisher,
		runners,
		pipeline.DefaultStageBudgets(),
		metrics,
		log,
		tracer,
	)
	if err := coordinator.Subscribe(ctx, bus); err != nil {
		return fmt.Errorf("subscribing pipeline coordinator: %w", err)
	}

	log.Info(ctx, "startup", "status", "worker ready", "brokers", cfg.Kafka.Brokers)

	// -------------------------------------------------------------------------
	// Shutdown

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	sig := <-shutdown
	log.Info(ctx, "shutdown", "status", "shutdown started", "signal", sig)
	defer log.Info(ctx, "shutdown", "status", "shutdown complete", "signal", sig)

	return nil
}

// runMigrations uses golang-migrate to apply all up migrations from
// "db/migrations" before the worker starts consuming events.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("could not acquire connection: %w", err)
	}
	defer conn.Release()

	db := stdlib.OpenDBFromPool(pool)

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("could not create pgx driver: %w", err)
	}

	migrationsPath := os.Getenv("SENTRIX_MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "file://db/migrations"
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up failed: %w", err)
	}

	return nil
}
