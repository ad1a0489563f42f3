package store

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grimoirelab-go/core/internal/connretry"
)

// Option configures the Store's underlying connection pool.
type Option func(*options)

type options struct {
	migrations        *embed.FS
	logger            *slog.Logger
	maxConns          int32
	minConns          int32
	healthCheckPeriod time.Duration
	maxConnIdleTime   time.Duration
	maxConnLifetime   time.Duration
	retryAttempts     int
	retryInterval     time.Duration
}

func defaultOptions() *options {
	return &options{
		maxConns:          10,
		minConns:          2,
		healthCheckPeriod: 1 * time.Minute,
		maxConnIdleTime:   10 * time.Minute,
		maxConnLifetime:   30 * time.Minute,
		retryAttempts:     3,
		retryInterval:     5 * time.Second,
	}
}

// WithMigrations enables automatic schema migration from embedded SQL files
// at Open time.
func WithMigrations(fs embed.FS) Option {
	return func(o *options) { o.migrations = &fs }
}

// WithLogger sets the logger used for migration and connection events.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.logger = log }
}

// WithMaxConns sets the maximum number of pooled connections. Default: 10.
func WithMaxConns(n int32) Option {
	return func(o *options) { o.maxConns = n }
}

// WithMinConns sets the minimum number of connections kept open. Default: 2.
func WithMinConns(n int32) Option {
	return func(o *options) { o.minConns = n }
}

// WithHealthCheckPeriod sets how often idle connections are checked.
// Default: 1 minute.
func WithHealthCheckPeriod(d time.Duration) Option {
	return func(o *options) { o.healthCheckPeriod = d }
}

// WithMaxConnIdleTime sets the maximum idle time before a connection is
// recycled. Default: 10 minutes.
func WithMaxConnIdleTime(d time.Duration) Option {
	return func(o *options) { o.maxConnIdleTime = d }
}

// WithMaxConnLifetime sets the maximum lifetime of a pooled connection.
// Default: 30 minutes.
func WithMaxConnLifetime(d time.Duration) Option {
	return func(o *options) { o.maxConnLifetime = d }
}

// WithRetry configures how many times Open retries the initial connection
// and the base interval between attempts. Default: 3 attempts, 5s interval.
func WithRetry(attempts int, interval time.Duration) Option {
	return func(o *options) { o.retryAttempts, o.retryInterval = attempts, interval }
}

// Open establishes a pgx connection pool against connString, optionally
// applying embedded migrations, and returns a ready-to-use Store.
func Open(ctx context.Context, connString string, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConfig, err)
	}

	cfg.MaxConns = o.maxConns
	cfg.MinConns = o.minConns
	cfg.HealthCheckPeriod = o.healthCheckPeriod
	cfg.MaxConnIdleTime = o.maxConnIdleTime
	cfg.MaxConnLifetime = o.maxConnLifetime

	pool, err := connect(ctx, cfg, o.retryAttempts, o.retryInterval)
	if err != nil {
		return nil, err
	}

	if o.migrations != nil {
		if err := migrate(ctx, pool, *o.migrations, o.logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Store{pool: pool}, nil
}

// MustOpen establishes the Store or terminates the process. Intended for
// process entry points where a failed startup connection is fatal.
func MustOpen(ctx context.Context, connString string, opts ...Option) *Store {
	s, err := Open(ctx, connString, opts...)
	if err != nil {
		slog.Error("store: failed to open connection", "error", err)
		os.Exit(1)
	}
	return s
}

func connect(ctx context.Context, cfg *pgxpool.Config, attempts int, interval time.Duration) (*pgxpool.Pool, error) {
	pool, err := connretry.Dial(ctx, attempts, interval, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToConnect, err)
	}
	return pool, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Healthcheck returns a closure suitable for a process health endpoint or
// a periodic liveness probe.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}
