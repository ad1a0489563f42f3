package tasktypes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grimoirelab-go/core/pkg/logging"
	"github.com/grimoirelab-go/core/pkg/task"
)

// RepoFetchType is the registry tag this type is bound under.
const RepoFetchType = "repofetch"

// RepoFetchFetcher does the actual data-source work: fetch every item of
// the given kind/category produced since the given checkpoint, returning
// the count fetched and the new high-water mark to resume from next time.
// Implementations wrap a Perceval-shaped backend (git, github issues,
// gerrit, ...); RepoFetch itself only handles the checkpoint/retry
// bookkeeping around whatever Fetcher does.
type RepoFetchFetcher interface {
	Fetch(ctx context.Context, url, kind, category string, since time.Time) (fetched int, newSince time.Time, err error)
}

// RepoFetch is a git-datasource-shaped task type, analogous to the original
// project's Perceval backends: it targets one (url, kind, category) triple
// and resumes incremental fetches from a since-timestamp checkpoint carried
// in each job's Progress. It is registered once and scheduled many times,
// once per repository being tracked — the recurring case — or scheduled
// with Burst for a single one-shot backfill run.
type RepoFetch struct {
	Fetcher RepoFetchFetcher
	Logger  *slog.Logger
}

// NewRepoFetch constructs a RepoFetch descriptor. A nil logger falls back
// to a no-op logger.
func NewRepoFetch(fetcher RepoFetchFetcher, logger *slog.Logger) *RepoFetch {
	if logger == nil {
		logger = logging.NewNope()
	}
	return &RepoFetch{Fetcher: fetcher, Logger: logger}
}

// PrepareJobParameters carries url/kind/category through unchanged and
// computes the since checkpoint: a fresh task starts at the zero time (full
// history), a retried job resumes from whatever checkpoint its failed
// predecessor's Progress recorded, and a successful predecessor's recorded
// high-water mark is the starting point for the next recurring run.
func (r *RepoFetch) PrepareJobParameters(t *task.Task, lastJob *task.Job) (map[string]any, error) {
	url, _ := t.Args["url"].(string)
	kind, _ := t.Args["kind"].(string)
	category, _ := t.Args["category"].(string)
	if url == "" || kind == "" || category == "" {
		return nil, fmt.Errorf("%w: repofetch requires url, kind and category", task.ErrInvalidArgs)
	}

	params := map[string]any{
		"url":      url,
		"kind":     kind,
		"category": category,
		"since":    r.sinceFor(lastJob).Format(time.RFC3339),
	}
	return params, nil
}

// sinceFor returns the checkpoint to resume from. With no prior job this is
// the zero time (fetch everything). Otherwise it is whatever "since" value
// the prior job's Progress recorded, regardless of whether that job
// succeeded or failed — a failed run may still have advanced partway and
// recorded the farthest point it safely reached.
func (r *RepoFetch) sinceFor(lastJob *task.Job) time.Time {
	if lastJob == nil || lastJob.Progress == nil {
		return time.Time{}
	}
	raw, ok := lastJob.Progress["since"].(string)
	if !ok || raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// CanBeRetried is always true: every Perceval-shaped backend resumes from a
// since checkpoint, so a failed repofetch job is always safe to retry.
func (r *RepoFetch) CanBeRetried(t *task.Task) bool {
	return true
}

// DefaultJobQueue targets the "repofetch" broker queue.
func (r *RepoFetch) DefaultJobQueue() string {
	return "repofetch"
}

// JobFunction fetches everything produced since the prepared checkpoint and
// reports how much was fetched plus the new checkpoint, matching the
// original's result.summary.fetched shape.
func (r *RepoFetch) JobFunction(ctx context.Context, params map[string]any) (map[string]any, error) {
	url, _ := params["url"].(string)
	kind, _ := params["kind"].(string)
	category, _ := params["category"].(string)
	sinceRaw, _ := params["since"].(string)

	since, err := time.Parse(time.RFC3339, sinceRaw)
	if err != nil {
		since = time.Time{}
	}

	r.Logger.InfoContext(ctx, "repofetch: starting",
		slog.String("url", url), slog.String("kind", kind),
		slog.String("category", category), slog.Time("since", since))

	fetched, newSince, err := r.Fetcher.Fetch(ctx, url, kind, category, since)
	if err != nil {
		return map[string]any{"fetched": fetched, "since": since.Format(time.RFC3339)}, fmt.Errorf("repofetch: %w", err)
	}

	r.Logger.InfoContext(ctx, "repofetch: done", slog.Int("fetched", fetched))
	return map[string]any{"fetched": fetched, "since": newSince.Format(time.RFC3339)}, nil
}

var _ task.Descriptor = (*RepoFetch)(nil)
