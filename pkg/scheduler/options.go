package scheduler

import (
	"log/slog"
	"time"
)

const (
	defaultReconcileSchedule = "*/5 * * * *"
	defaultCallbackWorkers   = 4
)

type config struct {
	logger             *slog.Logger
	reconcileSchedule  string
	callbackWorkers    int
	reconcileOnStartup bool
	now                func() time.Time
}

func defaultConfig() *config {
	return &config{
		reconcileSchedule:  defaultReconcileSchedule,
		callbackWorkers:    defaultCallbackWorkers,
		reconcileOnStartup: true,
		now:                time.Now,
	}
}

// Option configures an Engine.
type Option func(*config)

// WithLogger sets the logger used for callback and reconciliation events.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReconcileSchedule sets the cron expression driving the periodic
// maintain_tasks sweep. Default: every 5 minutes.
func WithReconcileSchedule(expr string) Option {
	return func(c *config) {
		if expr != "" {
			c.reconcileSchedule = expr
		}
	}
}

// WithCallbackWorkers sets how many broker completion events the Engine
// processes concurrently. Default: 4.
func WithCallbackWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.callbackWorkers = n
		}
	}
}

// WithoutStartupReconcile disables the reconciliation sweep the Engine
// otherwise runs once immediately on Run, before the periodic schedule
// takes over. Useful in tests driving MaintainTasks by hand.
func WithoutStartupReconcile() Option {
	return func(c *config) { c.reconcileOnStartup = false }
}
