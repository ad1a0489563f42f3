package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/grimoirelab-go/core/pkg/store"
	"github.com/grimoirelab-go/core/pkg/task"
)

// MaintainTasks is the reconciliation sweep: for every Task in
// ENQUEUED/RUNNING/RECOVERY, it looks at the Task's most recent Job. If
// there is no Job at all, or that Job is non-terminal and the broker no
// longer has a live entry for it, the Task is "orphaned": the stale
// non-terminal Job is marked CANCELED and a replacement Job is enqueued.
// A Task whose most recent Job is already terminal is not treated as
// orphaned and is left as it is.
//
// Runs under a process-wide mutex so two overlapping sweeps (a slow one
// plus a newly-fired cron tick) never both try to replace the same
// orphaned Task.
func (e *Engine) MaintainTasks(ctx context.Context) error {
	e.maintainMu.Lock()
	defer e.maintainMu.Unlock()

	tasks, err := e.store.FindTasksByStatus(ctx, task.StatusEnqueued, task.StatusRunning, task.StatusRecovery)
	if err != nil {
		return fmt.Errorf("scheduler: find tasks by status: %w", err)
	}

	for _, t := range tasks {
		if err := e.reconcileTask(ctx, t); err != nil {
			e.logger.ErrorContext(ctx, "scheduler: reconcile task failed",
				slog.String("task_id", t.ID.String()), slog.Any("error", err))
		}
	}
	return nil
}

func (e *Engine) reconcileTask(ctx context.Context, t *task.Task) error {
	lastJob, err := e.store.FindLastJob(ctx, t.ID)
	orphaned := false

	switch {
	case err != nil && errors.Is(err, store.ErrNotFound):
		orphaned = true
	case err != nil:
		return fmt.Errorf("find last job: %w", err)
	case !lastJob.Status.Terminal():
		live, err := e.brk.IsLive(ctx, lastJob.BrokerJobID)
		if err != nil {
			return fmt.Errorf("broker is-live: %w", err)
		}
		orphaned = !live
	}

	if !orphaned {
		return nil
	}

	now := e.now()

	if lastJob != nil && !lastJob.Status.Terminal() {
		lastJob.Status = task.JobCanceled
		lastJob.FinishedAt = &now
		lastJob.LastModified = now
		// Persist the stale Job as canceled before replacing it; the Task
		// row is rewritten (and its last_modified advanced) right after by
		// enqueue, so this intermediate write only needs to bump its own
		// last_modified far enough to pass SaveRun's optimistic check.
		t.LastModified = now
		if err := e.store.SaveRun(ctx, t, lastJob); err != nil {
			return fmt.Errorf("cancel stale job: %w", err)
		}
	}

	scheduledAt := now
	if t.ScheduledAt != nil && t.ScheduledAt.After(now) {
		scheduledAt = *t.ScheduledAt
	}

	e.logger.WarnContext(ctx, "scheduler: reconciling orphaned task",
		slog.String("task_id", t.ID.String()), slog.Time("scheduled_at", scheduledAt))

	return e.enqueue(ctx, t, scheduledAt)
}
