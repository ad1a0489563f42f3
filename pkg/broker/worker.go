package broker

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// runJobArgs is the single River job kind every Grimoire job is enqueued
// as. The actual task-type dispatch happens inside Work, looking JobType up
// in the Dispatcher — River itself only ever sees one kind.
type runJobArgs struct {
	JobID   uuid.UUID      `json:"job_id"`
	JobType string         `json:"job_type"`
	Params  map[string]any `json:"params"`
}

// Kind satisfies river.JobArgs.
func (runJobArgs) Kind() string { return "grimoire:run" }

type runJobWorker struct {
	river.WorkerDefaults[runJobArgs]
	dispatcher Dispatcher
	meta       *metaStore
	logger     *slog.Logger
}

// Work dispatches to the registered task type's job function and carries
// its returned progress into the job's meta area, where the Scheduler
// Engine's default callbacks will pick it up once the job settles.
func (w *runJobWorker) Work(ctx context.Context, job *river.Job[runJobArgs]) error {
	w.logger.DebugContext(ctx, "broker: running job",
		slog.String("job_id", job.Args.JobID.String()),
		slog.String("job_type", job.Args.JobType),
		slog.Int("attempt", job.Attempt))

	progress, err := w.dispatcher.Dispatch(ctx, job.Args.JobType, job.Args.Params)
	if meta, ok := w.meta.get(job.Args.JobID); ok && progress != nil {
		meta.ReportProgress(progress)
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "broker: job failed",
			slog.String("job_id", job.Args.JobID.String()),
			slog.Any("error", err))
		return err
	}

	w.logger.DebugContext(ctx, "broker: job completed",
		slog.String("job_id", job.Args.JobID.String()))
	return nil
}
