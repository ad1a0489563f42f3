// Package scheduler is the Scheduler Engine: the single writer of Task and
// Job state. It creates tasks, turns them into broker jobs, runs the
// default success/failure callbacks that drive retry and back-off, and
// periodically reconciles store state against the broker so a crash never
// leaves a Task waiting on a broker entry that no longer exists.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/grimoirelab-go/core/pkg/broker"
	"github.com/grimoirelab-go/core/pkg/store"
	"github.com/grimoirelab-go/core/pkg/task"
)

// Store is the persistence surface the Engine needs. Satisfied by
// *store.Store; tests substitute an in-memory fake.
type Store interface {
	CreateTask(ctx context.Context, t *task.Task) error
	FindTask(ctx context.Context, id uuid.UUID) (*task.Task, error)
	FindTasksByStatus(ctx context.Context, statuses ...task.Status) ([]*task.Task, error)
	FindLastJob(ctx context.Context, taskID uuid.UUID) (*task.Job, error)
	FindJob(ctx context.Context, id uuid.UUID) (*task.Job, error)
	FindNonTerminalJobs(ctx context.Context, taskID uuid.UUID) ([]*task.Job, error)
	EnqueueRun(ctx context.Context, t *task.Task, j *task.Job) error
	SaveRun(ctx context.Context, t *task.Task, j *task.Job) error
	SetJobBrokerID(ctx context.Context, jobID uuid.UUID, brokerJobID int64) error
	MarkEnqueueFailed(ctx context.Context, taskID, jobID uuid.UUID, now time.Time) error
	CancelTask(ctx context.Context, taskID uuid.UUID, now time.Time) error
	CancelNonTerminalJobs(ctx context.Context, taskID uuid.UUID, now time.Time) error
}

// Broker is the work-broker surface the Engine needs. Satisfied by
// *broker.Broker; tests substitute an in-memory fake.
type Broker interface {
	EnqueueAt(ctx context.Context, jobID uuid.UUID, jobType, queue string, scheduledAt time.Time, maxAttempts int, params map[string]any) (int64, error)
	Cancel(ctx context.Context, brokerJobID int64) error
	IsLive(ctx context.Context, brokerJobID int64) (bool, error)
	Subscribe(ctx context.Context) (<-chan broker.JobEvent, func())
}

// Registry resolves a task type tag to its Descriptor. Satisfied by
// *task.Registry.
type Registry interface {
	Get(typeTag string) (task.Descriptor, bool)
	MustGet(typeTag string) task.Descriptor
}

// Engine is the single writer of Task/Job state. One Engine instance per
// process; maintainMu serializes maintain_tasks against itself (never
// against ordinary enqueue/callback traffic, which is expected to race on
// distinct Tasks).
type Engine struct {
	store    Store
	brk      Broker
	registry Registry
	logger   *slog.Logger
	now      func() time.Time

	reconcileSchedule  cron.Schedule
	callbackWorkers    int
	reconcileOnStartup bool

	maintainMu sync.Mutex
}

// New constructs an Engine. reconcileSchedule in opts must parse as a
// standard 5-field cron expression; New panics on an invalid expression
// since a broken reconciliation schedule is a startup configuration error.
func New(s Store, b Broker, r Registry, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(cfg.reconcileSchedule)
	if err != nil {
		panic(fmt.Sprintf("scheduler: invalid reconcile schedule %q: %v", cfg.reconcileSchedule, err))
	}

	return &Engine{
		store:              s,
		brk:                b,
		registry:           r,
		logger:             cfg.logger,
		now:                cfg.now,
		reconcileSchedule:  sched,
		callbackWorkers:    cfg.callbackWorkers,
		reconcileOnStartup: cfg.reconcileOnStartup,
	}
}

// ScheduleTask resolves typeTag's Descriptor, creates the Task in status
// NEW, and immediately enqueues its first Job. The Task is returned even if
// the initial enqueue failed, reflecting whatever terminal state step 5 of
// enqueue left it in.
func (e *Engine) ScheduleTask(ctx context.Context, typeTag string, args map[string]any, interval time.Duration, maxRetries int, burst bool) (*task.Task, error) {
	if _, ok := e.registry.Get(typeTag); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeTag)
	}

	now := e.now()
	t := &task.Task{
		ID:            uuid.New(),
		Type:          typeTag,
		Args:          args,
		Status:        task.StatusNew,
		JobInterval:   interval,
		JobMaxRetries: maxRetries,
		Burst:         burst,
		CreatedAt:     now,
		LastModified:  now,
	}

	if err := e.store.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("scheduler: create task: %w", err)
	}

	if err := e.enqueue(ctx, t, now); err != nil {
		return t, err
	}
	return t, nil
}

// enqueue is the private operation shared by ScheduleTask, the default
// callbacks, RescheduleTask, and MaintainTasks. t is mutated in place to
// reflect the state EnqueueRun/MarkEnqueueFailed persisted.
func (e *Engine) enqueue(ctx context.Context, t *task.Task, scheduledAt time.Time) error {
	descriptor := e.registry.MustGet(t.Type)

	lastJob, err := e.store.FindLastJob(ctx, t.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("scheduler: find last job: %w", err)
		}
		lastJob = nil
	}

	params, err := descriptor.PrepareJobParameters(t, lastJob)
	if err != nil {
		return fmt.Errorf("scheduler: prepare job parameters: %w", err)
	}
	queue := descriptor.DefaultJobQueue()

	jobNum := 1
	if lastJob != nil {
		jobNum = lastJob.JobNum + 1
	}

	now := e.now()
	j := &task.Job{
		ID:           uuid.New(),
		TaskID:       t.ID,
		JobNum:       jobNum,
		Args:         params,
		Queue:        queue,
		Status:       task.JobEnqueued,
		ScheduledAt:  scheduledAt,
		Progress:     map[string]any{},
		CreatedAt:    now,
		LastModified: now,
	}

	t.Status = task.StatusEnqueued
	t.ScheduledAt = &scheduledAt
	t.LastModified = now

	if err := e.store.EnqueueRun(ctx, t, j); err != nil {
		return fmt.Errorf("scheduler: enqueue run: %w", err)
	}

	// River's own attempt accounting is disabled (MaxAttempts=1): retry and
	// back-off are the Engine's responsibility, driven by Task.failures and
	// the default failure callback, not the broker's.
	brokerJobID, err := e.brk.EnqueueAt(ctx, j.ID, t.Type, queue, scheduledAt, 1, params)
	if err != nil {
		failedAt := e.now()
		if markErr := e.store.MarkEnqueueFailed(ctx, t.ID, j.ID, failedAt); markErr != nil {
			e.logger.ErrorContext(ctx, "scheduler: failed to mark enqueue failure", slog.Any("error", markErr))
		}
		t.Status = task.StatusFailed
		return fmt.Errorf("scheduler: broker enqueue: %w", err)
	}

	if err := e.store.SetJobBrokerID(ctx, j.ID, brokerJobID); err != nil {
		e.logger.ErrorContext(ctx, "scheduler: failed to record broker job id", slog.Any("error", err))
	}
	j.BrokerJobID = brokerJobID

	return nil
}

// CancelTask cancels every non-terminal Job of a Task and marks the Task
// CANCELED. Canceling all non-terminal jobs (not just the most recent one)
// matches the pairing invariant: a Task can in principle have more than one
// non-terminal Job only transiently, but the cancellation surface must not
// assume that never happens.
func (e *Engine) CancelTask(ctx context.Context, taskID uuid.UUID) error {
	t, err := e.store.FindTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("scheduler: find task: %w", err)
	}

	jobs, err := e.store.FindNonTerminalJobs(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("scheduler: find non-terminal jobs: %w", err)
	}
	for _, j := range jobs {
		if j.BrokerJobID == 0 {
			continue
		}
		if err := e.brk.Cancel(ctx, j.BrokerJobID); err != nil && !errors.Is(err, broker.ErrJobNotFound) {
			e.logger.WarnContext(ctx, "scheduler: broker cancel failed",
				slog.String("job_id", j.ID.String()), slog.Any("error", err))
		}
	}

	if err := e.store.CancelTask(ctx, t.ID, e.now()); err != nil {
		return fmt.Errorf("scheduler: cancel task: %w", err)
	}
	return nil
}

// RescheduleTask cancels any live Job of a Task and enqueues a fresh one
// immediately, without touching history. Unlike CancelTask it leaves the
// Task itself active.
func (e *Engine) RescheduleTask(ctx context.Context, taskID uuid.UUID) error {
	t, err := e.store.FindTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("scheduler: find task: %w", err)
	}

	if t.Status.NonTerminal() {
		jobs, err := e.store.FindNonTerminalJobs(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("scheduler: find non-terminal jobs: %w", err)
		}
		for _, j := range jobs {
			if j.BrokerJobID != 0 {
				if err := e.brk.Cancel(ctx, j.BrokerJobID); err != nil && !errors.Is(err, broker.ErrJobNotFound) {
					e.logger.WarnContext(ctx, "scheduler: broker cancel failed",
						slog.String("job_id", j.ID.String()), slog.Any("error", err))
				}
			}
		}
		if err := e.store.CancelNonTerminalJobs(ctx, t.ID, e.now()); err != nil {
			return fmt.Errorf("scheduler: cancel non-terminal jobs: %w", err)
		}
	}

	return e.enqueue(ctx, t, e.now())
}
