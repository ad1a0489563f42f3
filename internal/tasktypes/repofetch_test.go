package tasktypes_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grimoirelab-go/core/internal/tasktypes"
	"github.com/grimoirelab-go/core/pkg/task"
)

type fakeFetcher struct {
	fetched  int
	newSince time.Time
	err      error

	lastSince time.Time
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, kind, category string, since time.Time) (int, time.Time, error) {
	f.lastSince = since
	return f.fetched, f.newSince, f.err
}

func newRepoFetchTask() *task.Task {
	return &task.Task{
		ID:   uuid.New(),
		Type: tasktypes.RepoFetchType,
		Args: map[string]any{"url": "https://example.com/repo.git", "kind": "git", "category": "commit"},
	}
}

func TestRepoFetch_PrepareJobParameters_FreshTaskStartsAtZeroTime(t *testing.T) {
	rf := tasktypes.NewRepoFetch(&fakeFetcher{}, nil)
	tk := newRepoFetchTask()

	params, err := rf.PrepareJobParameters(tk, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/repo.git", params["url"])
	assert.Equal(t, time.Time{}.Format(time.RFC3339), params["since"])
}

func TestRepoFetch_PrepareJobParameters_ResumesFromLastJobProgress(t *testing.T) {
	rf := tasktypes.NewRepoFetch(&fakeFetcher{}, nil)
	tk := newRepoFetchTask()

	checkpoint := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lastJob := &task.Job{Progress: map[string]any{"since": checkpoint.Format(time.RFC3339)}}

	params, err := rf.PrepareJobParameters(tk, lastJob)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.Format(time.RFC3339), params["since"])
}

func TestRepoFetch_PrepareJobParameters_MissingArgsIsInvalid(t *testing.T) {
	rf := tasktypes.NewRepoFetch(&fakeFetcher{}, nil)
	tk := &task.Task{ID: uuid.New(), Type: tasktypes.RepoFetchType, Args: map[string]any{}}

	_, err := rf.PrepareJobParameters(tk, nil)
	assert.ErrorIs(t, err, task.ErrInvalidArgs)
}

func TestRepoFetch_JobFunction_ReportsFetchedCountAndNewCheckpoint(t *testing.T) {
	newSince := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{fetched: 42, newSince: newSince}
	rf := tasktypes.NewRepoFetch(fetcher, nil)

	progress, err := rf.JobFunction(context.Background(), map[string]any{
		"url": "https://example.com/repo.git", "kind": "git", "category": "commit",
		"since": time.Time{}.Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Equal(t, 42, progress["fetched"])
	assert.Equal(t, newSince.Format(time.RFC3339), progress["since"])
}

func TestRepoFetch_JobFunction_PropagatesFetcherError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}
	rf := tasktypes.NewRepoFetch(fetcher, nil)

	_, err := rf.JobFunction(context.Background(), map[string]any{
		"url": "u", "kind": "git", "category": "commit", "since": time.Time{}.Format(time.RFC3339),
	})
	assert.Error(t, err)
}

func TestRepoFetch_CanBeRetried_AlwaysTrue(t *testing.T) {
	rf := tasktypes.NewRepoFetch(&fakeFetcher{}, nil)
	assert.True(t, rf.CanBeRetried(newRepoFetchTask()))
}

func TestRepoFetch_DefaultJobQueue(t *testing.T) {
	rf := tasktypes.NewRepoFetch(&fakeFetcher{}, nil)
	assert.Equal(t, "repofetch", rf.DefaultJobQueue())
}
