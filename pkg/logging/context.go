package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	taskIDKey ctxKey = iota
	jobIDKey
	consumerNameKey
)

// WithTaskID returns a context carrying the current task id, so every log
// line emitted from inside that task's job function or its scheduler
// callbacks can be correlated back to it.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey, taskID)
}

// WithJobID returns a context carrying the current job id.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

// WithConsumerName returns a context carrying the name of the Consumer
// worker currently processing a batch, so a Pool's log lines can be
// attributed to the worker that produced them.
func WithConsumerName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, consumerNameKey, name)
}

// TaskIDExtractor is a ContextExtractor that reads the task id set by
// WithTaskID.
func TaskIDExtractor(ctx context.Context) (slog.Attr, bool) {
	v, ok := ctx.Value(taskIDKey).(string)
	if !ok || v == "" {
		return slog.Attr{}, false
	}
	return slog.String("task_id", v), true
}

// JobIDExtractor is a ContextExtractor that reads the job id set by
// WithJobID.
func JobIDExtractor(ctx context.Context) (slog.Attr, bool) {
	v, ok := ctx.Value(jobIDKey).(string)
	if !ok || v == "" {
		return slog.Attr{}, false
	}
	return slog.String("job_id", v), true
}

// ConsumerNameExtractor is a ContextExtractor that reads the consumer name
// set by WithConsumerName.
func ConsumerNameExtractor(ctx context.Context) (slog.Attr, bool) {
	v, ok := ctx.Value(consumerNameKey).(string)
	if !ok || v == "" {
		return slog.Attr{}, false
	}
	return slog.String("consumer_name", v), true
}

// DefaultExtractors is the standard set of extractors wired into every
// logger constructed by this package: task id, job id, and consumer name.
func DefaultExtractors() []ContextExtractor {
	return []ContextExtractor{TaskIDExtractor, JobIDExtractor, ConsumerNameExtractor}
}
