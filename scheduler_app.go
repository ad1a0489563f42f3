package grimoire

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grimoirelab-go/core/pkg/broker"
	"github.com/grimoirelab-go/core/pkg/logging"
	"github.com/grimoirelab-go/core/pkg/scheduler"
	"github.com/grimoirelab-go/core/pkg/store"
	"github.com/grimoirelab-go/core/pkg/task"
)

// SchedulerApp orchestrates the Scheduler Engine process: a Task Store, a
// Work Broker Adapter, and the Engine binding them together. Configuration
// happens via SchedulerOption at NewSchedulerApp, except shutdown hooks,
// which WithShutdownHook adds afterwards.
type SchedulerApp struct {
	logger *slog.Logger
	engine *scheduler.Engine
	broker *broker.Broker

	baseCtx         context.Context
	shutdownTimeout time.Duration
	shutdownHooks   []func(ctx context.Context) error
	done            chan struct{}
}

// SchedulerOption configures a SchedulerApp.
type SchedulerOption func(*schedulerConfig)

type schedulerConfig struct {
	logger          *slog.Logger
	baseCtx         context.Context
	shutdownTimeout time.Duration
	engineOpts      []scheduler.Option
	brokerOpts      []broker.Option
}

func defaultSchedulerConfig() *schedulerConfig {
	return &schedulerConfig{
		logger:          logging.NewNope(),
		shutdownTimeout: 30 * time.Second,
	}
}

// WithSchedulerLogger sets the logger shared by the engine and broker.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(c *schedulerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSchedulerContext sets the base context signal handling derives from.
// Defaults to context.Background().
func WithSchedulerContext(ctx context.Context) SchedulerOption {
	return func(c *schedulerConfig) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}

// WithSchedulerShutdownTimeout bounds how long shutdown hooks are given to
// finish once a shutdown signal arrives. Default: 30s.
func WithSchedulerShutdownTimeout(d time.Duration) SchedulerOption {
	return func(c *schedulerConfig) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// WithEngineOptions passes through options to the underlying scheduler.Engine.
func WithEngineOptions(opts ...scheduler.Option) SchedulerOption {
	return func(c *schedulerConfig) { c.engineOpts = append(c.engineOpts, opts...) }
}

// WithBrokerOptions passes through options to the underlying broker.Broker.
func WithBrokerOptions(opts ...broker.Option) SchedulerOption {
	return func(c *schedulerConfig) { c.brokerOpts = append(c.brokerOpts, opts...) }
}

// NewSchedulerApp builds a SchedulerApp wired to taskStore (the Task Store)
// and registry (the process-wide task-type registry, populated by the
// caller before this runs). The broker shares taskStore's own Postgres
// connection pool rather than opening a second one.
func NewSchedulerApp(taskStore *store.Store, registry *task.Registry, opts ...SchedulerOption) (*SchedulerApp, error) {
	cfg := defaultSchedulerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	brokerOpts := append([]broker.Option{broker.WithLogger(cfg.logger)}, cfg.brokerOpts...)
	b, err := broker.New(taskStore.Pool(), registry, brokerOpts...)
	if err != nil {
		return nil, err
	}

	engineOpts := append([]scheduler.Option{scheduler.WithLogger(cfg.logger)}, cfg.engineOpts...)
	engine := scheduler.New(taskStore, b, registry, engineOpts...)

	return &SchedulerApp{
		logger:          cfg.logger,
		engine:          engine,
		broker:          b,
		baseCtx:         cfg.baseCtx,
		shutdownTimeout: cfg.shutdownTimeout,
		done:            make(chan struct{}),
	}, nil
}

// WithShutdownHook registers a cleanup function run during graceful
// shutdown, in registration order, after the broker and engine have
// stopped. Typically used to close the Store's connection pool.
func (a *SchedulerApp) WithShutdownHook(hook func(ctx context.Context) error) *SchedulerApp {
	a.shutdownHooks = append(a.shutdownHooks, hook)
	return a
}

// Engine exposes the underlying Scheduler Engine, e.g. for ScheduleTask
// calls from an HTTP handler or CLI command sharing this process.
func (a *SchedulerApp) Engine() *scheduler.Engine {
	return a.engine
}

// Run starts the broker and the engine's event/reconciliation loop and
// blocks until a SIGINT/SIGTERM, a programmatic Stop, or a fatal startup
// error. Shutdown is graceful: the engine's loop is cancelled and drained,
// the broker stops accepting new work, then registered shutdown hooks run in
// order.
func (a *SchedulerApp) Run(ctx context.Context) error {
	baseCtx := a.baseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if ctx != nil {
		baseCtx = ctx
	}
	runCtx, cancel := signal.NotifyContext(baseCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.broker.Start(runCtx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.engine.Run(runCtx)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			a.shutdown()
			return err
		}
		return a.shutdown()
	case <-runCtx.Done():
	case <-a.done:
	}

	cancel()
	<-errCh
	return a.shutdown()
}

// Stop triggers graceful shutdown programmatically.
func (a *SchedulerApp) Stop() {
	select {
	case <-a.done:
	default:
		close(a.done)
	}
}

func (a *SchedulerApp) shutdown() error {
	a.logger.Info("grimoire: scheduler app shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.broker.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	for _, hook := range a.shutdownHooks {
		if err := hook(shutdownCtx); err != nil {
			errs = append(errs, err)
			a.logger.Error("grimoire: shutdown hook failed", slog.Any("error", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	a.logger.Info("grimoire: scheduler app shutdown complete")
	return nil
}
