package main

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/db"
	"github.com/Ramsey-B/fern/internal/repositories/matchdecision"
	"github.com/Ramsey-B/fern/pkg/conflict"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/documents"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/health"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/matching"
	fernredis "github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/resolution"
	"github.com/Ramsey-B/fern/pkg/review"
	"github.com/Ramsey-B/fern/pkg/startup"
)

// appOptions selects which backends a command needs
type appOptions struct {
	store   bool
	sources bool
}

// app holds the wired services for one command invocation
type app struct {
	cfg     *config.Config
	logger  ectologger.Logger
	startup *startup.Startup
	checker *health.Checker

	db       database.DB
	repo     *matchdecision.Repository
	folder   *documents.FolderSource
	cache    *fernredis.Client
	producer *kafka.Producer
	graph    *graph.Client

	notifier  events.Notifier
	ranker    *matching.Ranker
	pipeline  *resolution.Pipeline
	review    *review.Service
	conflicts *conflict.Resolver
}

func newApp(cc *commandContext, opts appOptions) *app {
	cfg := cc.config
	a := &app{
		cfg:     cfg,
		logger:  cc.logger,
		startup: startup.NewStartup(cc.logger, cfg.StartupMaxAttempts),
		checker: health.NewChecker(cfg.Version),
		ranker:  matching.NewRanker(cc.matchingConfig()),
	}

	if opts.store {
		a.startup.AddDependency(&startup.Func{Name: "database", StartFunc: a.startDatabase, StopFunc: a.stopDatabase})
	}
	if opts.sources {
		a.startup.AddDependency(&startup.Func{Name: "documents", StartFunc: a.startDocuments, StopFunc: a.stopDocuments})
	}
	if cfg.Redis.Enabled && opts.sources {
		a.startup.AddDependency(&startup.Func{Name: "redis", StartFunc: a.startRedis, StopFunc: a.stopRedis})
	}
	if cfg.Kafka.Enabled {
		a.startup.AddDependency(&startup.Func{Name: "kafka", StartFunc: a.startKafka, StopFunc: a.stopKafka})
	}
	if cfg.Graph.Enabled && opts.store {
		a.startup.AddDependency(&startup.Func{Name: "graph", StartFunc: a.startGraph, StopFunc: a.stopGraph})
	}

	return a
}

// start brings up every backend and wires the services on top of them
func (a *app) start(ctx context.Context) error {
	if err := a.startup.Start(ctx); err != nil {
		return err
	}
	return a.wire()
}

func (a *app) stop(ctx context.Context) error {
	return a.startup.Stop(ctx)
}

func (a *app) wire() error {
	var notifiers events.MultiNotifier
	if a.producer != nil {
		notifiers = append(notifiers, events.NewKafkaNotifier(a.producer, a.logger))
	}
	if a.graph != nil {
		notifiers = append(notifiers, graph.NewProjector(a.graph, a.logger))
	}
	a.notifier = events.NoopNotifier{}
	if len(notifiers) > 0 {
		a.notifier = notifiers
	}

	conflictCfg, err := a.cfg.ConflictConfig()
	if err != nil {
		return err
	}
	a.conflicts = conflict.NewResolver(conflictCfg, a.notifier, a.logger)

	if a.repo == nil {
		return nil
	}
	a.review = review.NewService(a.repo, a.notifier, a.logger)

	if a.folder == nil {
		return nil
	}

	var source documents.Source = a.folder
	if a.cache != nil {
		source = documents.NewCachedSource(a.folder, a.cache, a.cfg.CacheTTL(), a.logger)
	}

	a.pipeline, err = resolution.NewPipeline(a.cfg.ResolutionConfig(), resolution.Deps{
		Source:   source,
		Resolver: documents.ChainResolver{documents.ViewerURLResolver{}, a.folder},
		Store:    a.repo,
		Ranker:   a.ranker,
		Notifier: a.notifier,
		Logger:   a.logger,
	})
	return err
}

func (a *app) startDatabase(ctx context.Context) error {
	conn, err := database.Open(a.cfg.DatabaseConfig(), a.logger)
	if err != nil {
		return err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	if err := a.migrationService().Migrate(conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("migrate database: %w", err)
	}

	a.db = conn
	a.repo = matchdecision.NewRepository(conn, a.logger)
	a.checker.Register("database", true, conn.PingContext)
	return nil
}

func (a *app) stopDatabase(context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *app) migrationService() *database.MigrationService {
	return database.NewMigrationService(a.logger, &database.MigrationConfig{
		Source:       db.Migrations,
		Dir:          a.cfg.MigrationDir(),
		Version:      a.cfg.Database.MigrationVersion,
		Force:        a.cfg.Database.MigrationForce,
		AutoRollback: a.cfg.Database.MigrationAutoRollback,
	})
}

func (a *app) startDocuments(context.Context) error {
	folder, err := documents.NewFolderSource(a.cfg.Documents.Dir, a.cfg.Documents.Extensions, a.cfg.Documents.MaxBytes, a.logger)
	if err != nil {
		return err
	}
	a.folder = folder
	return nil
}

func (a *app) stopDocuments(context.Context) error {
	if a.folder == nil {
		return nil
	}
	return a.folder.Close()
}

func (a *app) startRedis(ctx context.Context) error {
	client, err := fernredis.NewClient(ctx, a.cfg.Redis.Config, a.logger)
	if err != nil {
		return err
	}
	a.cache = client
	a.checker.Register("redis", false, client.Ping)
	return nil
}

func (a *app) stopRedis(context.Context) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}

func (a *app) startKafka(ctx context.Context) error {
	brokers := a.cfg.Kafka.Brokers
	if err := kafka.Ping(ctx, brokers); err != nil {
		return err
	}
	a.producer = kafka.NewProducer(a.cfg.Kafka.Config, a.logger)
	a.checker.Register("kafka", false, func(ctx context.Context) error {
		return kafka.Ping(ctx, brokers)
	})
	return nil
}

func (a *app) stopKafka(context.Context) error {
	if a.producer == nil {
		return nil
	}
	return a.producer.Close()
}

func (a *app) startGraph(ctx context.Context) error {
	client, err := graph.NewClient(a.cfg.Graph.Config, a.logger)
	if err != nil {
		return err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return fmt.Errorf("verify graph connectivity: %w", err)
	}
	a.graph = client
	a.checker.Register("graph", false, client.VerifyConnectivity)
	return nil
}

func (a *app) stopGraph(ctx context.Context) error {
	if a.graph == nil {
		return nil
	}
	return a.graph.Close(ctx)
}

// withApp starts the backends a command needs, runs fn and stops them again
func withApp(ctx context.Context, cc *commandContext, opts appOptions, fn func(*app) error) (err error) {
	a := newApp(cc, opts)
	if err := a.start(ctx); err != nil {
		_ = a.stop(context.WithoutCancel(ctx))
		return err
	}
	defer func() {
		if stopErr := a.stop(context.WithoutCancel(ctx)); err == nil {
			err = stopErr
		}
	}()
	return fn(a)
}
