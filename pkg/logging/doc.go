// Package logging wraps log/slog with context-based attribute injection and
// optional Sentry reporting, so that a log line emitted from inside a
// scheduler callback, a job function, or a Consumer's batch-processing loop
// automatically carries the task id, job id, or consumer name it belongs to.
//
// New and NewWithSentry both decorate a JSON handler with the package's
// default extractors (task id, job id, consumer name); callers add their
// own extractors on top for anything process-specific. When no Sentry DSN
// is configured NewWithSentry falls back to stdout-only logging, so the
// same construction path runs in development and production.
package logging
