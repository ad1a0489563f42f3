package scheduler_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grimoirelab-go/core/pkg/broker"
	"github.com/grimoirelab-go/core/pkg/store"
	"github.com/grimoirelab-go/core/pkg/task"
)

// fakeStore is an in-memory stand-in for *store.Store, good enough to
// exercise the Scheduler Engine's transitions without a live Postgres.
type fakeStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*task.Task
	jobs  map[uuid.UUID]*task.Job
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks: make(map[uuid.UUID]*task.Task),
		jobs:  make(map[uuid.UUID]*task.Job),
	}
}

func cloneTask(t *task.Task) *task.Task {
	c := *t
	return &c
}

func cloneJob(j *task.Job) *task.Job {
	c := *j
	c.Progress = make(map[string]any, len(j.Progress))
	for k, v := range j.Progress {
		c.Progress[k] = v
	}
	c.Logs = append([]task.LogRecord(nil), j.Logs...)
	return &c
}

func (s *fakeStore) CreateTask(ctx context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = cloneTask(t)
	return nil
}

func (s *fakeStore) FindTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTask(t), nil
}

func (s *fakeStore) FindTasksByStatus(ctx context.Context, statuses ...task.Status) ([]*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[task.Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []*task.Task
	for _, t := range s.tasks {
		if want[t.Status] {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

func (s *fakeStore) FindLastJob(ctx context.Context, taskID uuid.UUID) (*task.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *task.Job
	for _, j := range s.jobs {
		if j.TaskID != taskID {
			continue
		}
		if last == nil || j.JobNum > last.JobNum {
			last = j
		}
	}
	if last == nil {
		return nil, store.ErrNotFound
	}
	return cloneJob(last), nil
}

func (s *fakeStore) FindJob(ctx context.Context, id uuid.UUID) (*task.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneJob(j), nil
}

func (s *fakeStore) FindNonTerminalJobs(ctx context.Context, taskID uuid.UUID) ([]*task.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*task.Job
	for _, j := range s.jobs {
		if j.TaskID == taskID && !j.Status.Terminal() {
			out = append(out, cloneJob(j))
		}
	}
	return out, nil
}

func (s *fakeStore) EnqueueRun(ctx context.Context, t *task.Task, j *task.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = cloneJob(j)
	s.tasks[t.ID] = cloneTask(t)
	return nil
}

func (s *fakeStore) SaveRun(ctx context.Context, t *task.Task, j *task.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; !ok {
		return store.ErrNotFound
	}
	s.jobs[j.ID] = cloneJob(j)
	s.tasks[t.ID] = cloneTask(t)
	return nil
}

func (s *fakeStore) SetJobBrokerID(ctx context.Context, jobID uuid.UUID, brokerJobID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	j.BrokerJobID = brokerJobID
	return nil
}

func (s *fakeStore) MarkEnqueueFailed(ctx context.Context, taskID, jobID uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[jobID]; ok {
		j.Status = task.JobFailed
		j.FinishedAt = &now
	}
	if t, ok := s.tasks[taskID]; ok {
		t.Status = task.StatusFailed
		t.LastModified = now
	}
	return nil
}

func (s *fakeStore) CancelTask(ctx context.Context, taskID uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return store.ErrNotFound
	}
	t.Status = task.StatusCanceled
	t.LastModified = now
	for _, j := range s.jobs {
		if j.TaskID == taskID && !j.Status.Terminal() {
			j.Status = task.JobCanceled
			j.FinishedAt = &now
		}
	}
	return nil
}

func (s *fakeStore) CancelNonTerminalJobs(ctx context.Context, taskID uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.TaskID == taskID && !j.Status.Terminal() {
			j.Status = task.JobCanceled
			j.FinishedAt = &now
		}
	}
	return nil
}

// fakeBroker is an in-memory stand-in for *broker.Broker.
type fakeBroker struct {
	mu       sync.Mutex
	nextID   int64
	live     map[int64]bool
	events   chan broker.JobEvent
	duplicates map[uuid.UUID]bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		live:       make(map[int64]bool),
		events:     make(chan broker.JobEvent, 64),
		duplicates: make(map[uuid.UUID]bool),
	}
}

func (b *fakeBroker) EnqueueAt(ctx context.Context, jobID uuid.UUID, jobType, queue string, scheduledAt time.Time, maxAttempts int, params map[string]any) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.duplicates[jobID] {
		return 0, broker.ErrDuplicateJob
	}
	b.duplicates[jobID] = true
	b.nextID++
	id := b.nextID
	b.live[id] = true
	return id, nil
}

func (b *fakeBroker) Cancel(ctx context.Context, brokerJobID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live[brokerJobID] {
		return broker.ErrJobNotFound
	}
	b.live[brokerJobID] = false
	return nil
}

func (b *fakeBroker) IsLive(ctx context.Context, brokerJobID int64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live[brokerJobID], nil
}

func (b *fakeBroker) Subscribe(ctx context.Context) (<-chan broker.JobEvent, func()) {
	return b.events, func() {}
}

// complete simulates the broker job identified by jobID settling with the
// given outcome, as Run's event consumer would observe it.
func (b *fakeBroker) complete(jobID uuid.UUID, outcome broker.Outcome, progress map[string]any, err error) {
	b.events <- broker.JobEvent{JobID: jobID, Outcome: outcome, Progress: progress, Err: err}
}

func (b *fakeBroker) dropLive(brokerJobID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.live, brokerJobID)
}

// stubDescriptor is a minimal task.Descriptor for tests.
type stubDescriptor struct {
	queue       string
	canRetry    bool
	jobFunc     func(ctx context.Context, params map[string]any) (map[string]any, error)
	prepareFunc func(t *task.Task, lastJob *task.Job) (map[string]any, error)
}

func (d *stubDescriptor) PrepareJobParameters(t *task.Task, lastJob *task.Job) (map[string]any, error) {
	if d.prepareFunc != nil {
		return d.prepareFunc(t, lastJob)
	}
	return map[string]any{}, nil
}

func (d *stubDescriptor) CanBeRetried(t *task.Task) bool { return d.canRetry }
func (d *stubDescriptor) DefaultJobQueue() string        { return d.queue }
func (d *stubDescriptor) JobFunction(ctx context.Context, params map[string]any) (map[string]any, error) {
	if d.jobFunc != nil {
		return d.jobFunc(ctx, params)
	}
	return map[string]any{}, nil
}
