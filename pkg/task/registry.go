package task

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Descriptor is the five-behavior contract a task type must implement to
// plug into the Scheduler Engine. Implementations are registered once, at
// process start, against a unique type tag.
type Descriptor interface {
	// PrepareJobParameters computes the argument map for the next attempt.
	// lastJob is the most recently finished Job for this task, or nil if
	// this is the task's first attempt. Implementations inspect lastJob's
	// Progress to decide between a fresh run and a resume-from-checkpoint
	// run (the latter typically follows a failed job whose task is being
	// retried — see CanBeRetried).
	PrepareJobParameters(t *Task, lastJob *Job) (map[string]any, error)

	// CanBeRetried gates whether a failed task may be retried at all, for
	// task families that cannot resume mid-stream.
	CanBeRetried(t *Task) bool

	// DefaultJobQueue names the broker queue this type targets.
	DefaultJobQueue() string

	// JobFunction is the function the broker executes for a job of this
	// type. It receives the prepared parameters and returns a progress
	// summary on success, or an error on failure.
	JobFunction(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Registry is a process-wide mapping from task-type tag to its Descriptor.
// It has no state machine beyond "tag is free | tag is bound" — registration
// happens once per type at process start and lookups are read-only
// afterward.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
}

// NewRegistry creates an empty task type registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]Descriptor)}
}

// Register binds a type tag to a Descriptor. It panics if the tag is
// already bound: duplicate registration is a programmer error caught at
// process start, not a recoverable runtime condition.
func (r *Registry) Register(typeTag string, d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[typeTag]; exists {
		panic(fmt.Sprintf("task: type %q already registered", typeTag))
	}
	r.descriptors[typeTag] = d
}

// Get looks up the Descriptor bound to a type tag. The bool return lets
// callers that can tolerate a missing tag (e.g. ScheduleTask rejecting an
// unregistered type with an error) avoid the panic that MustGet implies.
func (r *Registry) Get(typeTag string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[typeTag]
	return d, ok
}

// MustGet looks up the Descriptor bound to a type tag, panicking if the tag
// is unknown. Per spec, a missing tag at dispatch time is a fatal
// programmer error: the registry should have been populated with every type
// the store can reference before the engine starts taking requests.
func (r *Registry) MustGet(typeTag string) Descriptor {
	d, ok := r.Get(typeTag)
	if !ok {
		panic(fmt.Sprintf("task: unknown type %q", typeTag))
	}
	return d
}

// Dispatch runs the JobFunction registered for typeTag. It satisfies the
// broker package's Dispatcher interface, so a *Registry can be handed to
// broker.New directly.
func (r *Registry) Dispatch(ctx context.Context, typeTag string, params map[string]any) (map[string]any, error) {
	return r.MustGet(typeTag).JobFunction(ctx, params)
}

// Types lists every registered type tag.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := slices.Collect(maps.Keys(r.descriptors))
	slices.Sort(types)
	return types
}
