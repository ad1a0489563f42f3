package tasktypes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grimoirelab-go/core/pkg/logging"
	"github.com/grimoirelab-go/core/pkg/task"
)

// IdentityType is the registry tag this type is bound under.
const IdentityType = "identity"

// IdentityJobKind selects which identity-management operation a run
// performs, modeled after the original's archivist identity jobs
// (merge/unify/affiliate over SortingHat's unique-identity graph).
type IdentityJobKind string

// Identity job kinds.
const (
	// JobKindMerge merges a set of unique identities the caller already
	// knows refer to the same person.
	JobKindMerge IdentityJobKind = "merge"
	// JobKindUnify runs the full matching algorithm over the identity
	// graph, merging whatever it determines to be duplicates.
	JobKindUnify IdentityJobKind = "unify"
	// JobKindAffiliate assigns unaffiliated identities to organizations
	// based on enrollment data (e.g. email domain).
	JobKindAffiliate IdentityJobKind = "affiliate"
)

// IdentityRunner performs one identity-management pass of the given kind,
// returning how many identities were affected.
type IdentityRunner interface {
	Run(ctx context.Context, kind IdentityJobKind, params map[string]any) (affected int, err error)
}

// Identity is a sortinghat-shaped task type: each task fixes a job_kind
// (merge/unify/affiliate) and re-runs it on a recurring schedule against
// whatever the identity graph looks like at the time. Unlike RepoFetch,
// a run carries no cross-run checkpoint — each pass considers the graph's
// current state in full — so retries simply rerun the same kind with the
// same parameters.
type Identity struct {
	Runner IdentityRunner
	Logger *slog.Logger
}

// NewIdentity constructs an Identity descriptor. A nil logger falls back to
// a no-op logger.
func NewIdentity(runner IdentityRunner, logger *slog.Logger) *Identity {
	if logger == nil {
		logger = logging.NewNope()
	}
	return &Identity{Runner: runner, Logger: logger}
}

// PrepareJobParameters carries job_kind and any matcher/affiliation
// parameters through unchanged; there is no checkpoint to compute.
func (id *Identity) PrepareJobParameters(t *task.Task, lastJob *task.Job) (map[string]any, error) {
	kind, _ := t.Args["job_kind"].(string)
	switch IdentityJobKind(kind) {
	case JobKindMerge, JobKindUnify, JobKindAffiliate:
	default:
		return nil, fmt.Errorf("%w: identity requires a valid job_kind, got %q", task.ErrInvalidArgs, kind)
	}

	params := make(map[string]any, len(t.Args))
	for k, v := range t.Args {
		params[k] = v
	}
	return params, nil
}

// CanBeRetried is always true: an identity pass has no partial-progress
// state that a retry could corrupt, it simply reruns from scratch.
func (id *Identity) CanBeRetried(t *task.Task) bool {
	return true
}

// DefaultJobQueue targets the "identity" broker queue.
func (id *Identity) DefaultJobQueue() string {
	return "identity"
}

// JobFunction dispatches to the runner for the requested job_kind.
func (id *Identity) JobFunction(ctx context.Context, params map[string]any) (map[string]any, error) {
	kind := IdentityJobKind(fmt.Sprint(params["job_kind"]))

	id.Logger.InfoContext(ctx, "identity: starting", slog.String("job_kind", string(kind)))

	affected, err := id.Runner.Run(ctx, kind, params)
	if err != nil {
		return map[string]any{"affected": affected}, fmt.Errorf("identity: %w", err)
	}

	id.Logger.InfoContext(ctx, "identity: done", slog.String("job_kind", string(kind)), slog.Int("affected", affected))
	return map[string]any{"affected": affected}, nil
}

var _ task.Descriptor = (*Identity)(nil)
