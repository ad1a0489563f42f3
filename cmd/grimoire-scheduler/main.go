// Command grimoire-scheduler runs the Scheduler Engine process: it loads
// the task-type registry, opens the Task Store and the Work Broker
// Adapter, and blocks serving the engine's event-driven callback loop and
// its periodic reconciliation sweep until a shutdown signal arrives.
package main

import (
	"context"
	"log/slog"
	"os"

	grimoire "github.com/grimoirelab-go/core"
	"github.com/grimoirelab-go/core/internal/config"
	"github.com/grimoirelab-go/core/internal/tasktypes"
	"github.com/grimoirelab-go/core/pkg/broker"
	"github.com/grimoirelab-go/core/pkg/logging"
	"github.com/grimoirelab-go/core/pkg/scheduler"
	"github.com/grimoirelab-go/core/pkg/store"
	"github.com/grimoirelab-go/core/pkg/task"
)

func main() {
	cfg, err := config.LoadSchedulerProcess()
	if err != nil {
		slog.Error("grimoire-scheduler: failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.NewWithSentry(logging.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		MinLevel:    slog.LevelWarn,
	})

	// The concrete RepoFetchFetcher/IdentityRunner backends are deployment
	// specific (which data sources and identity store to talk to); wire
	// real implementations in before running this against production data.
	registry := task.NewRegistry()
	registry.Register(tasktypes.RepoFetchType, tasktypes.NewRepoFetch(nil, logger))
	registry.Register(tasktypes.IdentityType, tasktypes.NewIdentity(nil, logger))

	ctx := context.Background()

	taskStore := store.MustOpen(ctx, cfg.Postgres.ConnectionString,
		store.WithMigrations(store.Migrations),
		store.WithLogger(logger),
		store.WithMaxConns(cfg.Postgres.MaxConns),
		store.WithMinConns(cfg.Postgres.MinConns),
		store.WithHealthCheckPeriod(cfg.Postgres.HealthCheckPeriod),
		store.WithMaxConnIdleTime(cfg.Postgres.MaxConnIdleTime),
		store.WithMaxConnLifetime(cfg.Postgres.MaxConnLifetime),
		store.WithRetry(cfg.Postgres.RetryAttempts, cfg.Postgres.RetryInterval),
	)

	app, err := grimoire.NewSchedulerApp(taskStore, registry,
		grimoire.WithSchedulerLogger(logger),
		grimoire.WithSchedulerShutdownTimeout(cfg.ShutdownTimeout),
		grimoire.WithBrokerOptions(broker.WithMaxWorkers(cfg.Broker.MaxWorkers)),
		grimoire.WithEngineOptions(
			scheduler.WithReconcileSchedule(cfg.Scheduler.ReconcileSchedule),
			scheduler.WithCallbackWorkers(cfg.Scheduler.CallbackWorkers),
		),
	)
	if err != nil {
		logger.Error("grimoire-scheduler: failed to construct app", slog.Any("error", err))
		os.Exit(1)
	}
	app.WithShutdownHook(func(ctx context.Context) error {
		taskStore.Close()
		return nil
	})

	logger.Info("grimoire-scheduler: starting")
	if err := app.Run(ctx); err != nil {
		logger.Error("grimoire-scheduler: exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}
