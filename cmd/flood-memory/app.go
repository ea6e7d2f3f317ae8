package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flood-ai/flood-memory/internal/config"
	"github.com/flood-ai/flood-memory/internal/logging"
	"github.com/flood-ai/flood-memory/internal/memory"
	"github.com/flood-ai/flood-memory/internal/observability"
	"github.com/flood-ai/flood-memory/internal/server/events"
	"github.com/flood-ai/flood-memory/internal/server/graph"
	"github.com/flood-ai/flood-memory/internal/server/service"
	"github.com/flood-ai/flood-memory/internal/server/tools"
)

// app is everything a command needs, built from configuration.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	repo       graph.Repository
	metrics    *observability.Collector
	dispatcher *events.Dispatcher
	svc        *service.Service

	shutdownTracing func(context.Context) error
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewCollector("flood_memory"),
	}

	if cfg.Tracing {
		a.shutdownTracing, err = observability.InitTracing(observability.TracingConfig{
			ServiceName:    tools.ServerName,
			ServiceVersion: tools.ServerVersion,
			Backend:        cfg.Backend,
			Output:         os.Stderr,
		})
		if err != nil {
			return nil, err
		}
	}

	a.repo, err = openRepository(ctx, cfg, logger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	opts := []memory.Option{memory.WithLogger(logger)}
	if cfg.WebhookURL != "" {
		a.dispatcher = events.NewDispatcher(logger,
			[]events.Sink{events.NewWebhookSink(cfg.WebhookURL, cfg.WebhookEvents...)},
			events.WithDroppedCounter(a.metrics.EventsDropped),
		)
		a.dispatcher.Start()
		opts = append(opts, memory.WithEmitter(a.dispatcher.Emitter()))
	}

	a.svc = service.New(memory.New(a.repo, opts...),
		service.WithLogger(logger),
		service.WithMetrics(a.metrics),
	)
	return a, nil
}

func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (graph.Repository, error) {
	switch cfg.Backend {
	case config.BackendNeo4j:
		repo, err := graph.NewNeo4j(ctx, graph.Neo4jConfig{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.User,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("connected to neo4j", zap.String("uri", cfg.Neo4j.URI))
		return repo, nil

	default:
		if err := cfg.EnsureDir(); err != nil {
			return nil, err
		}
		repo, err := graph.NewSQLite(ctx, cfg.DatabasePath())
		if err != nil {
			return nil, err
		}
		logger.Debug("opened sqlite database", zap.String("path", cfg.DatabasePath()))
		return repo, nil
	}
}

// close flushes events and traces, then closes storage.
func (a *app) close(ctx context.Context) {
	if a.dispatcher != nil {
		a.dispatcher.Stop()
	}
	if a.repo != nil {
		if err := a.repo.Close(ctx); err != nil {
			a.logger.Warn("closing repository", zap.Error(err))
		}
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.logger.Warn("flushing traces", zap.Error(err))
		}
	}
	a.logger.Sync()
}
