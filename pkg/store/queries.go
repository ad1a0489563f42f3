package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/grimoirelab-go/core/pkg/task"
)

// CreateTask inserts a new Task row in StatusNew.
func (s *Store) CreateTask(ctx context.Context, t *task.Task) error {
	args, err := json.Marshal(t.Args)
	if err != nil {
		return fmt.Errorf("store: marshal task args: %w", err)
	}

	const q = `
		INSERT INTO tasks (id, type, args, status, job_interval, job_max_retries, burst,
			runs, failures, scheduled_at, last_run, created_at, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = s.pool.Exec(ctx, q,
		t.ID, t.Type, args, t.Status, int64(t.JobInterval), t.JobMaxRetries, t.Burst,
		t.Runs, t.Failures, t.ScheduledAt, t.LastRun, t.CreatedAt, t.LastModified)
	if err != nil {
		return fmt.Errorf("store: create task: %w", err)
	}
	return nil
}

// FindTask looks up a Task by id.
func (s *Store) FindTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	const q = `
		SELECT id, type, args, status, job_interval, job_max_retries, burst,
			runs, failures, scheduled_at, last_run, created_at, last_modified
		FROM tasks WHERE id = $1`

	row := s.pool.QueryRow(ctx, q, id)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find task: %w", err)
	}
	return t, nil
}

// FindTasksByStatus lists every Task in one of the given statuses, oldest
// scheduled_at first. Used by the reconciliation sweep to find Tasks the
// broker has no matching entry for.
func (s *Store) FindTasksByStatus(ctx context.Context, statuses ...task.Status) ([]*task.Task, error) {
	const q = `
		SELECT id, type, args, status, job_interval, job_max_retries, burst,
			runs, failures, scheduled_at, last_run, created_at, last_modified
		FROM tasks WHERE status = ANY($1) ORDER BY scheduled_at NULLS LAST`

	rows, err := s.pool.Query(ctx, q, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("store: find tasks by status: %w", err)
	}
	defer rows.Close()

	var out []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// FindLastJob returns the most recent Job for a Task, ordered by job_num,
// or ErrNotFound if the Task has never been enqueued.
func (s *Store) FindLastJob(ctx context.Context, taskID uuid.UUID) (*task.Job, error) {
	const q = `
		SELECT id, task_id, job_num, args, queue, status, scheduled_at,
			started_at, finished_at, progress, logs, broker_job_id, created_at, last_modified
		FROM jobs WHERE task_id = $1 ORDER BY job_num DESC LIMIT 1`

	row := s.pool.QueryRow(ctx, q, taskID)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find last job: %w", err)
	}
	return j, nil
}

// FindJob looks up a Job by id.
func (s *Store) FindJob(ctx context.Context, id uuid.UUID) (*task.Job, error) {
	const q = `
		SELECT id, task_id, job_num, args, queue, status, scheduled_at,
			started_at, finished_at, progress, logs, broker_job_id, created_at, last_modified
		FROM jobs WHERE id = $1`

	row := s.pool.QueryRow(ctx, q, id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find job: %w", err)
	}
	return j, nil
}

// FindNonTerminalJobs lists every Job belonging to taskID whose status is
// not yet terminal. Used by CancelTask to cancel every in-flight attempt,
// not just the most recent one.
func (s *Store) FindNonTerminalJobs(ctx context.Context, taskID uuid.UUID) ([]*task.Job, error) {
	const q = `
		SELECT id, task_id, job_num, args, queue, status, scheduled_at,
			started_at, finished_at, progress, logs, broker_job_id, created_at, last_modified
		FROM jobs WHERE task_id = $1 AND status IN ('ENQUEUED', 'RUNNING')`

	rows, err := s.pool.Query(ctx, q, taskID)
	if err != nil {
		return nil, fmt.Errorf("store: find non-terminal jobs: %w", err)
	}
	defer rows.Close()

	var out []*task.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// EnqueueRun atomically records that a new Job has been created for a Task
// and advances the Task to StatusEnqueued. It is the write side of
// schedule_task/enqueue: the Task and its new Job reach a consistent pair in
// one transaction, so a crash between "Task row written" and "Job row
// written" can never happen.
func (s *Store) EnqueueRun(ctx context.Context, t *task.Task, j *task.Job) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		jobArgs, err := json.Marshal(j.Args)
		if err != nil {
			return fmt.Errorf("store: marshal job args: %w", err)
		}
		progress, err := json.Marshal(j.Progress)
		if err != nil {
			return fmt.Errorf("store: marshal job progress: %w", err)
		}
		logs, err := json.Marshal(j.Logs)
		if err != nil {
			return fmt.Errorf("store: marshal job logs: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO jobs (id, task_id, job_num, args, queue, status, scheduled_at,
				started_at, finished_at, progress, logs, broker_job_id, created_at, last_modified)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			j.ID, j.TaskID, j.JobNum, jobArgs, j.Queue, j.Status, j.ScheduledAt,
			j.StartedAt, j.FinishedAt, progress, logs, j.BrokerJobID, j.CreatedAt, j.LastModified); err != nil {
			return fmt.Errorf("store: insert job: %w", err)
		}

		taskArgs, err := json.Marshal(t.Args)
		if err != nil {
			return fmt.Errorf("store: marshal task args: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE tasks SET args = $2, status = $3, runs = $4, scheduled_at = $5,
				last_run = $6, last_modified = $7
			WHERE id = $1`,
			t.ID, taskArgs, t.Status, t.Runs, t.ScheduledAt, t.LastRun, t.LastModified); err != nil {
			return fmt.Errorf("store: update task: %w", err)
		}

		return nil
	})
}

// SaveRun atomically records the outcome of a finished Job (success or
// failure) and the Task's resulting counters/status/next scheduled_at. Both
// rows change together so a reader never observes a COMPLETED Job paired
// with a Task still in RUNNING.
func (s *Store) SaveRun(ctx context.Context, t *task.Task, j *task.Job) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		progress, err := json.Marshal(j.Progress)
		if err != nil {
			return fmt.Errorf("store: marshal job progress: %w", err)
		}
		logs, err := json.Marshal(j.Logs)
		if err != nil {
			return fmt.Errorf("store: marshal job logs: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE jobs SET status = $2, started_at = $3, finished_at = $4,
				progress = $5, logs = $6, last_modified = $7
			WHERE id = $1`,
			j.ID, j.Status, j.StartedAt, j.FinishedAt, progress, logs, j.LastModified)
		if err != nil {
			return fmt.Errorf("store: update job: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		taskArgs, err := json.Marshal(t.Args)
		if err != nil {
			return fmt.Errorf("store: marshal task args: %w", err)
		}

		tag, err = tx.Exec(ctx, `
			UPDATE tasks SET args = $2, status = $3, runs = $4, failures = $5,
				scheduled_at = $6, last_run = $7, last_modified = $8
			WHERE id = $1 AND last_modified < $8`,
			t.ID, taskArgs, t.Status, t.Runs, t.Failures, t.ScheduledAt, t.LastRun, t.LastModified)
		if err != nil {
			return fmt.Errorf("store: update task: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrStaleWrite
		}

		return nil
	})
}

// CancelTask marks the Task canceled and every one of its non-terminal Jobs
// canceled, in one transaction.
func (s *Store) CancelTask(ctx context.Context, taskID uuid.UUID, now time.Time) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE tasks SET status = $2, last_modified = $3 WHERE id = $1`,
			taskID, task.StatusCanceled, now)
		if err != nil {
			return fmt.Errorf("store: cancel task: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		if _, err := tx.Exec(ctx, `
			UPDATE jobs SET status = $2, finished_at = $3, last_modified = $3
			WHERE task_id = $1 AND status IN ('ENQUEUED', 'RUNNING')`,
			taskID, task.JobCanceled, now); err != nil {
			return fmt.Errorf("store: cancel jobs: %w", err)
		}

		return nil
	})
}

// SetJobBrokerID records the broker's own id for a job after a successful
// enqueue_at call, so reconciliation can query the broker directly across a
// process restart even though the broker adapter's in-memory state is gone.
func (s *Store) SetJobBrokerID(ctx context.Context, jobID uuid.UUID, brokerJobID int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE jobs SET broker_job_id = $2 WHERE id = $1`, jobID, brokerJobID)
	if err != nil {
		return fmt.Errorf("store: set job broker id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkEnqueueFailed records that a just-created Job/Task pair could not be
// handed to the broker: both rows move straight to FAILED rather than being
// left in ENQUEUED with no corresponding broker entry.
func (s *Store) MarkEnqueueFailed(ctx context.Context, taskID, jobID uuid.UUID, now time.Time) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE jobs SET status = $2, finished_at = $3, last_modified = $3 WHERE id = $1`,
			jobID, task.JobFailed, now); err != nil {
			return fmt.Errorf("store: mark job enqueue failed: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE tasks SET status = $2, last_modified = $3 WHERE id = $1`,
			taskID, task.StatusFailed, now); err != nil {
			return fmt.Errorf("store: mark task enqueue failed: %w", err)
		}
		return nil
	})
}

// CancelNonTerminalJobs marks every ENQUEUED/RUNNING Job of taskID CANCELED,
// without touching the Task row. Used by RescheduleTask, which cancels the
// live Job but keeps the Task active.
func (s *Store) CancelNonTerminalJobs(ctx context.Context, taskID uuid.UUID, now time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = $2, finished_at = $3, last_modified = $3
		WHERE task_id = $1 AND status IN ('ENQUEUED', 'RUNNING')`,
		taskID, task.JobCanceled, now)
	if err != nil {
		return fmt.Errorf("store: cancel non-terminal jobs: %w", err)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t           task.Task
		args        []byte
		jobInterval int64
	)
	if err := row.Scan(&t.ID, &t.Type, &args, &t.Status, &jobInterval, &t.JobMaxRetries,
		&t.Burst, &t.Runs, &t.Failures, &t.ScheduledAt, &t.LastRun, &t.CreatedAt, &t.LastModified); err != nil {
		return nil, err
	}
	t.JobInterval = time.Duration(jobInterval)
	if len(args) > 0 {
		if err := json.Unmarshal(args, &t.Args); err != nil {
			return nil, fmt.Errorf("unmarshal task args: %w", err)
		}
	}
	return &t, nil
}

func scanJob(row rowScanner) (*task.Job, error) {
	var (
		j        task.Job
		args     []byte
		progress []byte
		logs     []byte
	)
	if err := row.Scan(&j.ID, &j.TaskID, &j.JobNum, &args, &j.Queue, &j.Status,
		&j.ScheduledAt, &j.StartedAt, &j.FinishedAt, &progress, &logs, &j.BrokerJobID, &j.CreatedAt, &j.LastModified); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &j.Args); err != nil {
			return nil, fmt.Errorf("unmarshal job args: %w", err)
		}
	}
	if len(progress) > 0 {
		if err := json.Unmarshal(progress, &j.Progress); err != nil {
			return nil, fmt.Errorf("unmarshal job progress: %w", err)
		}
	}
	if len(logs) > 0 {
		if err := json.Unmarshal(logs, &j.Logs); err != nil {
			return nil, fmt.Errorf("unmarshal job logs: %w", err)
		}
	}
	return &j, nil
}

func statusStrings(statuses []task.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
