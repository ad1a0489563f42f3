package grimoire

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grimoirelab-go/core/pkg/logging"
	"github.com/grimoirelab-go/core/pkg/stream"
)

// ConsumerApp orchestrates the supervised Consumer Pool process: a stream
// Backend (typically *stream.RedisStream), a Sink, and the Pool supervising
// N long-running Consumer workers against them.
type ConsumerApp struct {
	logger *slog.Logger
	pool   *stream.Pool
	burst  bool

	baseCtx         context.Context
	shutdownTimeout time.Duration
	shutdownHooks   []func(ctx context.Context) error
	done            chan struct{}
}

// ConsumerOption configures a ConsumerApp.
type ConsumerOption func(*consumerConfig)

type consumerConfig struct {
	logger          *slog.Logger
	baseCtx         context.Context
	shutdownTimeout time.Duration
	burst           bool
	poolOpts        []stream.PoolOption
	consumerOpts    []stream.ConsumerOption
}

func defaultConsumerConfig() *consumerConfig {
	return &consumerConfig{
		logger:          logging.NewNope(),
		shutdownTimeout: 30 * time.Second,
	}
}

// WithConsumerLogger sets the logger shared by the pool and its workers.
func WithConsumerLogger(l *slog.Logger) ConsumerOption {
	return func(c *consumerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithConsumerContext sets the base context signal handling derives from.
func WithConsumerContext(ctx context.Context) ConsumerOption {
	return func(c *consumerConfig) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}

// WithConsumerShutdownTimeout bounds the context the shutdown hooks run
// under once the pool has stopped. Default: 30s.
func WithConsumerShutdownTimeout(d time.Duration) ConsumerOption {
	return func(c *consumerConfig) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// WithBurstMode runs every worker through exactly one recovery-then-main
// pass and exits once all have finished, instead of running indefinitely.
func WithBurstMode() ConsumerOption {
	return func(c *consumerConfig) { c.burst = true }
}

// WithPoolOptions passes through options to the underlying stream.Pool.
func WithPoolOptions(opts ...stream.PoolOption) ConsumerOption {
	return func(c *consumerConfig) { c.poolOpts = append(c.poolOpts, opts...) }
}

// WithConsumerOptions passes through options to every worker's stream.Consumer.
func WithConsumerOptions(opts ...stream.ConsumerOption) ConsumerOption {
	return func(c *consumerConfig) { c.consumerOpts = append(c.consumerOpts, opts...) }
}

// NewConsumerApp builds a ConsumerApp supervising size workers reading group
// off backend and draining into sink.
func NewConsumerApp(backend stream.Backend, sink stream.Sink, group string, size int, opts ...ConsumerOption) *ConsumerApp {
	cfg := defaultConsumerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	poolOpts := append([]stream.PoolOption{stream.WithPoolLogger(cfg.logger)}, cfg.poolOpts...)
	pool := stream.NewPool(backend, sink, group, size, cfg.consumerOpts, poolOpts...)

	return &ConsumerApp{
		logger:          cfg.logger,
		pool:            pool,
		burst:           cfg.burst,
		baseCtx:         cfg.baseCtx,
		shutdownTimeout: cfg.shutdownTimeout,
		done:            make(chan struct{}),
	}
}

// WithShutdownHook registers a cleanup function run during graceful
// shutdown, after the pool has drained. Typically used to close the Redis
// client.
func (a *ConsumerApp) WithShutdownHook(hook func(ctx context.Context) error) *ConsumerApp {
	a.shutdownHooks = append(a.shutdownHooks, hook)
	return a
}

// Pool exposes the underlying Pool, e.g. to inspect Status() from a
// readiness check.
func (a *ConsumerApp) Pool() *stream.Pool {
	return a.pool
}

// Run starts the pool and blocks until every worker exits: on its own in
// burst mode, or on a SIGINT/SIGTERM/programmatic Stop in the normal
// long-running mode.
func (a *ConsumerApp) Run(ctx context.Context) error {
	baseCtx := a.baseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if ctx != nil {
		baseCtx = ctx
	}
	runCtx, cancel := signal.NotifyContext(baseCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.pool.Start(runCtx, a.burst)
	}()

	if !a.burst {
		select {
		case err := <-errCh:
			return a.shutdownAfter(err)
		case <-runCtx.Done():
			a.pool.Stop()
		case <-a.done:
			a.pool.Stop()
		}
		return a.shutdownAfter(<-errCh)
	}

	return a.shutdownAfter(<-errCh)
}

// Stop triggers graceful shutdown programmatically. In burst mode this is a
// no-op: the pool already exits on its own once every worker has finished.
func (a *ConsumerApp) Stop() {
	select {
	case <-a.done:
	default:
		close(a.done)
	}
}

func (a *ConsumerApp) shutdownAfter(runErr error) error {
	a.logger.Info("grimoire: consumer app shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		errs = append(errs, runErr)
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
	a.logger.Info("grimoire: consumer app shutdown complete")
	return nil
}
