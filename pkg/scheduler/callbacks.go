package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grimoirelab-go/core/pkg/broker"
	"github.com/grimoirelab-go/core/pkg/store"
	"github.com/grimoirelab-go/core/pkg/task"
)

// Run subscribes to broker job events and drives the default success/
// failure callbacks until ctx is cancelled. It also starts the periodic
// reconciliation sweep. Run blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if e.reconcileSchedule == nil {
		return errors.New("scheduler: engine not constructed with New")
	}

	var wg sync.WaitGroup

	events, cancel := e.brk.Subscribe(ctx)
	defer cancel()

	for range e.callbackWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.consumeEvents(ctx, events)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.reconcileLoop(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (e *Engine) consumeEvents(ctx context.Context, events <-chan broker.JobEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.handleEvent(ctx, ev)
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev broker.JobEvent) {
	switch ev.Outcome {
	case broker.OutcomeCompleted:
		if err := e.defaultOnSuccess(ctx, ev.JobID, ev.Progress, ev.Logs); err != nil {
			e.logger.ErrorContext(ctx, "scheduler: success callback failed",
				slog.String("job_id", ev.JobID.String()), slog.Any("error", err))
		}
	case broker.OutcomeFailed:
		if err := e.defaultOnFailure(ctx, ev.JobID, ev.Err, ev.Progress, ev.Logs); err != nil {
			e.logger.ErrorContext(ctx, "scheduler: failure callback failed",
				slog.String("job_id", ev.JobID.String()), slog.Any("error", err))
		}
	case broker.OutcomeCancelled:
		// CancelTask already transitioned the Job/Task rows to CANCELED;
		// the broker-side cancellation event is informational only. A
		// cancelled job that happened to still be running when Cancel was
		// requested must not trigger a re-enqueue here.
	}
}

// defaultOnSuccess persists the completed Job and, for recurring (non-
// burst) tasks, enqueues the next run.
func (e *Engine) defaultOnSuccess(ctx context.Context, jobID uuid.UUID, progress map[string]any, logs []broker.LogLine) error {
	j, t, stale, err := e.loadJobAndTask(ctx, jobID)
	if err != nil {
		return err
	}
	if stale {
		e.logger.WarnContext(ctx, "scheduler: success callback for unknown job", slog.String("job_id", jobID.String()))
		return nil
	}

	now := e.now()
	j.Status = task.JobComplete
	j.FinishedAt = &now
	j.Progress = progress
	j.Logs = append(j.Logs, recordsFromLines(logs)...)
	j.LastModified = now

	t.Runs++
	t.LastRun = &now
	t.Failures = 0
	t.LastModified = now

	if t.Burst {
		t.Status = task.StatusCompleted
		return e.store.SaveRun(ctx, t, j)
	}

	if err := e.store.SaveRun(ctx, t, j); err != nil {
		return err
	}

	nextRun := now.Add(t.JobInterval)
	return e.enqueue(ctx, t, nextRun)
}

// defaultOnFailure persists the failed Job and either schedules a retry
// (status RECOVERY, then ENQUEUED once the replacement Job lands) or marks
// the Task permanently FAILED, per the retry-cap/resumability gates.
func (e *Engine) defaultOnFailure(ctx context.Context, jobID uuid.UUID, cause error, progress map[string]any, logs []broker.LogLine) error {
	j, t, stale, err := e.loadJobAndTask(ctx, jobID)
	if err != nil {
		return err
	}
	if stale {
		e.logger.WarnContext(ctx, "scheduler: failure callback for unknown job", slog.String("job_id", jobID.String()))
		return nil
	}

	now := e.now()
	j.Status = task.JobFailed
	j.FinishedAt = &now
	j.Progress = progress
	j.Logs = append(j.Logs, recordsFromLines(logs)...)
	if cause != nil {
		j.Logs = append(j.Logs, task.LogRecord{Time: now, Level: "error", Message: cause.Error()})
	}
	j.LastModified = now

	t.Failures++
	t.LastModified = now

	descriptor := e.registry.MustGet(t.Type)

	if t.Failures >= t.JobMaxRetries {
		t.Status = task.StatusFailed
		return e.store.SaveRun(ctx, t, j)
	}
	if !descriptor.CanBeRetried(t) {
		t.Status = task.StatusFailed
		return e.store.SaveRun(ctx, t, j)
	}

	t.Status = task.StatusRecovery
	if err := e.store.SaveRun(ctx, t, j); err != nil {
		return err
	}

	nextRun := now.Add(t.JobInterval)
	return e.enqueue(ctx, t, nextRun)
}

func (e *Engine) loadJobAndTask(ctx context.Context, jobID uuid.UUID) (*task.Job, *task.Task, bool, error) {
	j, err := e.store.FindJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, true, nil
		}
		return nil, nil, false, err
	}

	t, err := e.store.FindTask(ctx, j.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, true, nil
		}
		return nil, nil, false, err
	}

	return j, t, false, nil
}

func recordsFromLines(lines []broker.LogLine) []task.LogRecord {
	out := make([]task.LogRecord, len(lines))
	for i, l := range lines {
		out[i] = task.LogRecord{Time: l.Time, Level: l.Level, Message: l.Message}
	}
	return out
}

func (e *Engine) reconcileLoop(ctx context.Context) {
	if e.reconcileOnStartup {
		if err := e.MaintainTasks(ctx); err != nil {
			e.logger.ErrorContext(ctx, "scheduler: startup reconciliation failed", slog.Any("error", err))
		}
	}

	for {
		next := e.reconcileSchedule.Next(e.now())
		wait := next.Sub(e.now())
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			if err := e.MaintainTasks(ctx); err != nil {
				e.logger.ErrorContext(ctx, "scheduler: reconciliation failed", slog.Any("error", err))
			}
		}
	}
}
