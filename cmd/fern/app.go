package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/source"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/loader"
	"github.com/Ramsey-B/fern/pkg/logging"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/orchestrator"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// app holds the connected collaborators of one invocation
type app struct {
	cfg      *config.Config
	logger   ectologger.Logger
	startup  *startup.Startup
	db       *database.DatabaseInstance
	client   *graph.Client
	reader   *source.Reader
	store    *graph.Store
	resolver *graph.Resolver
	recorder *metrics.Recorder
	producer *kafka.Producer
	driver   *loader.Driver
	orch     *orchestrator.Orchestrator

	flush        func()
	stopTracing  func(context.Context) error
	closeTimeout time.Duration
}

// bootstrap loads configuration, builds the logger and connects both stores with bounded retries
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load(config.DefaultEnvFiles...)
	if err != nil {
		return nil, errors.Wrap(errors.KindConfig, err)
	}

	logger, flush, err := logging.New(logging.Config{AppName: cfg.AppName, Level: cfg.LogLevel, Pretty: cfg.PrettyLogs})
	if err != nil {
		return nil, errors.Wrap(errors.KindConfig, err)
	}

	a := &app{cfg: cfg, logger: logger, flush: flush, closeTimeout: 10 * time.Second}
	if cfg.TracingEnabled {
		a.stopTracing = tracing.Setup(cfg.AppName, logger)
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, logger)
	if err != nil {
		a.close()
		return nil, errors.Wrap(errors.KindConfig, err)
	}
	a.db = db

	client, err := graph.NewClient(graph.Config{
		URI:            cfg.GraphURI,
		Username:       cfg.GraphUser,
		Password:       cfg.GraphPassword,
		Database:       cfg.GraphDatabase,
		MaxPoolSize:    cfg.GraphMaxPoolSize,
		ConnectTimeout: cfg.GraphConnectTimeout,
	}, logger)
	if err != nil {
		_ = db.Close()
		a.close()
		return nil, errors.Wrap(errors.KindConfig, err)
	}
	a.client = client

	a.startup = startup.NewStartup(logger, cfg.StartupMaxAttempts, cfg.StartupBackoffBase)
	a.startup.AddDependency(&startup.Func{
		Name:    "source",
		OnStart: db.Ping,
		OnStop:  func(context.Context) error { return db.Close() },
	})
	a.startup.AddDependency(&startup.Func{
		Name:    "graph",
		OnStart: client.VerifyConnectivity,
		OnStop:  client.Close,
	})
	if err := a.startup.Start(ctx); err != nil {
		a.close()
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.KindInterrupted, ctx.Err())
		}
		return nil, errors.Wrap(errors.KindConnection, err)
	}

	a.reader = source.NewReader(db, cfg.SourceSchema, logger)
	a.store = graph.NewStore(client, graph.Dialect(cfg.GraphDialect), logger)
	a.resolver = graph.NewResolver(client, logger)
	a.recorder = metrics.NewRecorder()

	observers := []loader.Observer{a.recorder}
	if cfg.KafkaEventsEnabled {
		a.producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaEventsTopic,
			BatchSize:    1,
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		observers = append(observers, events.NewEmitter(a.producer, cfg.AppName, logger))
	}

	a.driver = loader.NewDriver(a.reader, a.store, cfg.LogDir, logger, observers...)
	a.orch = orchestrator.New(a.driver, a.store, logger)
	return a, nil
}

// pushMetrics sends the run's collectors to the Pushgateway when one is configured
func (a *app) pushMetrics(ctx context.Context, runID string) {
	if a.cfg.MetricsPushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.closeTimeout)
	defer cancel()
	if err := a.recorder.Push(ctx, a.cfg.MetricsPushgatewayURL, a.cfg.MetricsJobName, runID); err != nil {
		a.logger.WithContext(ctx).WithError(err).WithField("run_id", runID).Warn("Failed to push metrics")
	}
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.closeTimeout)
	defer cancel()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close event producer")
		}
	}
	if a.startup != nil {
		if err := a.startup.Stop(ctx); err != nil {
			a.logger.WithError(err).Warn("Failed to stop dependencies")
		}
	}
	if a.stopTracing != nil {
		if err := a.stopTracing(ctx); err != nil {
			a.logger.WithError(err).Warn("Failed to shut down tracing")
		}
	}
	a.flush()
}

// withApp bootstraps, runs fn and releases every connection
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func describeVariant(r graph.Resolution) string {
	if !r.Resolved() {
		return "unresolved"
	}
	if r.Ambiguous {
		return fmt.Sprintf("%s (ambiguous)", r.Variant)
	}
	return string(r.Variant)
}
