package broker

import "log/slog"

const defaultMaxWorkers = 50

type config struct {
	logger     *slog.Logger
	queues     map[string]int
	maxWorkers int
}

func defaultConfig() *config {
	return &config{
		queues:     make(map[string]int),
		maxWorkers: defaultMaxWorkers,
	}
}

// Option configures a Broker.
type Option func(*config)

// WithLogger sets the logger used for job lifecycle events. Defaults to a
// discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithQueue configures a named queue's worker concurrency. Task types
// target a queue via Descriptor.DefaultJobQueue; queues not configured here
// fall back to the default queue's worker count.
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if workers > 0 {
			c.queues[name] = workers
		}
	}
}

// WithMaxWorkers sets the default queue's worker concurrency. Default: 50.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}
