// Package broker is the Work Broker Adapter: it wraps River
// (github.com/riverqueue/river), a Postgres-native delayed/at-time work
// queue, behind the narrow enqueue_at/fetch/cancel/ping contract the
// Scheduler Engine depends on. The Scheduler Engine never imports River
// directly — everything broker-shaped funnels through this package so the
// queue implementation can change without touching scheduling policy.
package broker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
)

// Dispatcher runs the job function registered for a task type. It is
// satisfied by *task.Registry (kept as an interface here so broker does not
// import task for wiring purposes beyond the JobFunction signature).
type Dispatcher interface {
	Dispatch(ctx context.Context, jobType string, params map[string]any) (map[string]any, error)
}

// Broker wraps a River client with the job-id idempotency and mutable
// per-job meta area the Scheduler Engine expects.
type Broker struct {
	pool   *pgxpool.Pool
	client *river.Client[pgx.Tx]
	logger *slog.Logger

	meta *metaStore

	mu      sync.Mutex
	started bool
}

// New constructs a Broker against pool. dispatcher routes a running job to
// the task type's registered JobFunction.
func New(pool *pgxpool.Pool, dispatcher Dispatcher, opts ...Option) (*Broker, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	meta := newMetaStore()

	queues := map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: cfg.maxWorkers},
	}
	for name, workers := range cfg.queues {
		queues[name] = river.QueueConfig{MaxWorkers: workers}
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &runJobWorker{
		dispatcher: dispatcher,
		meta:       meta,
		logger:     cfg.logger,
	})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  queues,
		Workers: workers,
		Logger:  cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("broker: create client: %w", err)
	}

	return &Broker{pool: pool, client: client, logger: cfg.logger, meta: meta}, nil
}

// Start begins processing enqueued jobs.
func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return ErrAlreadyStarted
	}
	if err := b.client.Start(ctx); err != nil {
		return fmt.Errorf("broker: start: %w", err)
	}
	b.started = true
	return nil
}

// Stop waits for in-flight jobs to finish and stops accepting new ones.
func (b *Broker) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return ErrNotStarted
	}
	if err := b.client.Stop(ctx); err != nil {
		return fmt.Errorf("broker: stop: %w", err)
	}
	b.started = false
	return nil
}

// EnqueueAt schedules jobID to run at scheduledAt, dispatching to jobType
// with params when it fires. It is idempotent on jobID: a second call with
// the same jobID returns ErrDuplicateJob rather than inserting a second
// broker entry.
func (b *Broker) EnqueueAt(ctx context.Context, jobID uuid.UUID, jobType, queue string, scheduledAt time.Time, maxAttempts int, params map[string]any) (int64, error) {
	args := runJobArgs{JobID: jobID, JobType: jobType, Params: params}

	insertOpts := &river.InsertOpts{
		ScheduledAt: scheduledAt,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable, rivertype.JobStateScheduled,
				rivertype.JobStateRunning, rivertype.JobStateRetryable,
				rivertype.JobStateCompleted,
			},
		},
	}
	if queue != "" {
		insertOpts.Queue = queue
	}
	if maxAttempts > 0 {
		insertOpts.MaxAttempts = maxAttempts
	}

	res, err := b.client.Insert(ctx, args, insertOpts)
	if err != nil {
		return 0, fmt.Errorf("broker: enqueue: %w", err)
	}
	if res.UniqueSkippedAsDuplicate {
		return 0, ErrDuplicateJob
	}

	b.meta.create(jobID, res.Job.ID)
	return res.Job.ID, nil
}

// Cancel cancels a scheduled or running broker job identified by the
// broker's own id (as recorded by the caller from EnqueueAt's return
// value). It is not an error to cancel a job that has already reached a
// terminal state.
func (b *Broker) Cancel(ctx context.Context, brokerJobID int64) error {
	if _, err := b.client.JobCancel(ctx, brokerJobID); err != nil {
		if errors.Is(err, river.ErrNotFound) {
			return ErrJobNotFound
		}
		return fmt.Errorf("broker: cancel: %w", err)
	}
	return nil
}

// IsLive reports whether a broker job is still in a non-terminal state
// (available, scheduled, running, or retryable). Used by reconciliation to
// tell a genuinely orphaned Task apart from one whose broker entry survived
// a process restart.
func (b *Broker) IsLive(ctx context.Context, brokerJobID int64) (bool, error) {
	if brokerJobID == 0 {
		return false, nil
	}

	j, err := b.client.JobGet(ctx, brokerJobID)
	if err != nil {
		if errors.Is(err, river.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("broker: job get: %w", err)
	}

	switch j.State {
	case rivertype.JobStateAvailable, rivertype.JobStateScheduled,
		rivertype.JobStateRunning, rivertype.JobStateRetryable:
		return true, nil
	default:
		return false, nil
	}
}

// Ping reports whether the broker's underlying connection is healthy.
func (b *Broker) Ping(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}

// CurrentJob returns the mutable meta area (progress/logs accumulated so
// far) for a running job, or false if the job id is unknown to this broker
// instance.
func (b *Broker) CurrentJob(jobID uuid.UUID) (*JobMeta, bool) {
	return b.meta.get(jobID)
}

// Shutdown returns a shutdown hook suitable for a process-level shutdown
// sequence.
func (b *Broker) Shutdown() func(context.Context) error {
	return b.Stop
}
