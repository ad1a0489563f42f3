package task

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Task.
type Status string

// Task statuses, per the state machine in the data model.
const (
	StatusNew       Status = "NEW"
	StatusEnqueued  Status = "ENQUEUED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRecovery  Status = "RECOVERY"
	StatusCanceled  Status = "CANCELED"
)

// JobStatus is the lifecycle state of a single execution attempt.
type JobStatus string

// Job statuses.
const (
	JobEnqueued JobStatus = "ENQUEUED"
	JobRunning  JobStatus = "RUNNING"
	JobComplete JobStatus = "COMPLETED"
	JobFailed   JobStatus = "FAILED"
	JobCanceled JobStatus = "CANCELED"
)

// NonTerminal reports whether a task status still expects a live job.
func (s Status) NonTerminal() bool {
	switch s {
	case StatusEnqueued, StatusRunning, StatusRecovery:
		return true
	default:
		return false
	}
}

// Terminal reports whether a job status will never transition further.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobComplete, JobFailed, JobCanceled:
		return true
	default:
		return false
	}
}

// Task is the schedulable unit of work. Task is mutated only by the
// Scheduler Engine; callers that hold a Task should treat it as a snapshot.
type Task struct {
	ID     uuid.UUID
	Type   string
	Args   map[string]any
	Status Status

	JobInterval   time.Duration
	JobMaxRetries int
	Burst         bool

	Runs     int
	Failures int

	ScheduledAt *time.Time
	LastRun     *time.Time

	CreatedAt    time.Time
	LastModified time.Time
}

// BrokerKey returns a derived id of the form "grimoire:task:{uuid}". The
// broker does not use it: broker entries are de-duplicated by the Job's own
// id carried in the job arguments.
func (t *Task) BrokerKey() string {
	return "grimoire:task:" + t.ID.String()
}

// LogRecord is one structured log line captured during a job's execution.
// The broker's mutable per-job meta area accumulates these as the job
// function runs; the default success/failure callbacks persist the final
// slice onto the Job row at terminal time.
type LogRecord struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Job is a single execution attempt of a Task.
type Job struct {
	ID     uuid.UUID
	TaskID uuid.UUID
	JobNum int

	Args  map[string]any
	Queue string

	Status JobStatus

	ScheduledAt time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time

	Progress map[string]any
	Logs     []LogRecord

	// BrokerJobID is the broker's own internal identifier for this job
	// (River's int64 row id), recorded after a successful enqueue so that
	// reconciliation can ask the broker whether the entry is still live
	// across a process restart, when the broker adapter's in-memory state
	// has been lost. Zero means the job was never successfully handed to
	// the broker.
	BrokerJobID int64

	CreatedAt    time.Time
	LastModified time.Time
}
