package scheduler

import "errors"

var (
	// ErrNotFound is returned when a Task lookup by id finds no row.
	ErrNotFound = errors.New("scheduler: task not found")

	// ErrUnknownType is returned by ScheduleTask when the given type tag
	// has no registered Descriptor.
	ErrUnknownType = errors.New("scheduler: unknown task type")
)
