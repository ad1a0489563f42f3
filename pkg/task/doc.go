// Package task defines the schedulable unit of work (Task), a single
// execution attempt of that work (Job), and the process-wide Registry that
// maps a task-type tag to the behaviors needed to run it.
//
// # Data model
//
// A [Task] is created once and re-enqueued across its lifetime; a [Job] is
// created for every attempt. The pairing invariant is: a Task in
// ENQUEUED/RUNNING/RECOVERY always has exactly one Job in a matching
// non-terminal status. The Scheduler Engine (package scheduler) is the only
// writer of these invariants; this package only defines the shapes and the
// plug-in surface.
//
// # Registering a task type
//
//	type repofetchDescriptor struct{ ... }
//
//	func (d *repofetchDescriptor) PrepareJobParameters(t *task.Task, lastJob *task.Job) (map[string]any, error) { ... }
//	func (d *repofetchDescriptor) CanBeRetried(t *task.Task) bool { ... }
//	func (d *repofetchDescriptor) DefaultJobQueue() string { return "fetch" }
//	func (d *repofetchDescriptor) JobFunction(ctx context.Context, params map[string]any) (map[string]any, error) { ... }
//
//	registry.Register("repofetch", descriptor)
//
// Registration happens once per task type at process start. Looking up an
// unregistered tag is a fatal programmer error, not a recoverable one — the
// same as registering the same tag twice.
package task
