package task

import "errors"

// Sentinel errors returned by package task and callers acting on its types.
var (
	// ErrUnknownType names a type tag with no registry entry. Nothing in
	// this module returns it: ScheduleTask reports that case with
	// scheduler.ErrUnknownType.
	ErrUnknownType = errors.New("task: unknown type")

	// ErrNotRetryable names a retry of a task whose CanBeRetried reports
	// false. Nothing in this module returns it: the Scheduler Engine fails
	// such a Task directly.
	ErrNotRetryable = errors.New("task: type does not support retry")

	// ErrInvalidArgs is returned by a Descriptor when the arguments handed
	// to PrepareJobParameters cannot produce a valid job parameter set.
	ErrInvalidArgs = errors.New("task: invalid arguments")
)
