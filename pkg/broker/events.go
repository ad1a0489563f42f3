package broker

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// Outcome classifies how a broker job settled.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeFailed
	OutcomeCancelled
)

// JobEvent reports that a previously enqueued job has settled. The
// Scheduler Engine subscribes to these to run its default success/failure
// callbacks.
type JobEvent struct {
	JobID    uuid.UUID
	Outcome  Outcome
	Progress map[string]any
	Logs     []LogLine
	Err      error
}

// Subscribe starts forwarding job completion events onto the returned
// channel until ctx is cancelled or the returned cancel func is called. The
// channel is closed once the subscription is torn down.
func (b *Broker) Subscribe(ctx context.Context) (<-chan JobEvent, func()) {
	riverEvents, riverCancel := b.client.Subscribe(
		river.EventKindJobCompleted,
		river.EventKindJobFailed,
		river.EventKindJobCancelled,
	)

	out := make(chan JobEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-riverEvents:
				if !ok {
					return
				}
				jobID, found := b.meta.jobID(ev.Job.ID)
				if !found {
					b.logger.WarnContext(ctx, "broker: event for unknown job",
						slog.Int64("river_job_id", ev.Job.ID))
					continue
				}

				meta, _ := b.meta.get(jobID)
				var progress map[string]any
				var logs []LogLine
				if meta != nil {
					progress, logs = meta.Snapshot()
				}
				b.meta.discard(jobID)

				je := JobEvent{JobID: jobID, Progress: progress, Logs: logs}
				switch ev.Kind {
				case river.EventKindJobCompleted:
					je.Outcome = OutcomeCompleted
				case river.EventKindJobCancelled:
					je.Outcome = OutcomeCancelled
				default:
					je.Outcome = OutcomeFailed
					if n := len(ev.Job.Errors); n > 0 {
						je.Err = errorFromRiver(ev.Job.Errors[n-1].Error)
					}
				}

				select {
				case out <- je:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, riverCancel
}

func errorFromRiver(msg string) error {
	return riverJobError(msg)
}

// riverJobError wraps a River-recorded error string as an error value so
// callers can use errors.New-style formatting without re-parsing River's
// internal error struct.
type riverJobError string

func (e riverJobError) Error() string { return string(e) }
