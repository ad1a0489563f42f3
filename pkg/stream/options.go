package stream

import (
	"log/slog"
	"time"
)

const (
	defaultBatchSize            = 100
	defaultBlockTimeout         = 5 * time.Second
	defaultRecoverIdle          = 30 * time.Second
	defaultBackoffBase          = 1 * time.Second
	defaultBackoffCap           = 60 * time.Second
	defaultCleanupInterval      = 3 * time.Second
	defaultForceStopGracePeriod = 5 * time.Second
)

type consumerConfig struct {
	logger          *slog.Logger
	batchSize       int64
	blockTimeout    time.Duration
	recoverIdle     time.Duration
	backoffBase     time.Duration
	backoffCap      time.Duration
	burst           bool
	now             func() time.Time
}

func defaultConsumerConfig() *consumerConfig {
	return &consumerConfig{
		batchSize:    defaultBatchSize,
		blockTimeout: defaultBlockTimeout,
		recoverIdle:  defaultRecoverIdle,
		backoffBase:  defaultBackoffBase,
		backoffCap:   defaultBackoffCap,
		now:          time.Now,
	}
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*consumerConfig)

// WithLogger sets the logger used for consumer lifecycle and back-off
// events.
func WithLogger(l *slog.Logger) ConsumerOption {
	return func(c *consumerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBatchSize sets how many new entries a single main-loop read requests.
// Default: 100.
func WithBatchSize(n int64) ConsumerOption {
	return func(c *consumerConfig) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithBlockTimeout sets how long a main-loop read blocks waiting for the
// first new entry. Default: 5s.
func WithBlockTimeout(d time.Duration) ConsumerOption {
	return func(c *consumerConfig) {
		if d > 0 {
			c.blockTimeout = d
		}
	}
}

// WithRecoverIdle sets the idle threshold past which a pending entry is
// eligible for reclaim by the recovery loop. Default: 30s.
func WithRecoverIdle(d time.Duration) ConsumerOption {
	return func(c *consumerConfig) {
		if d > 0 {
			c.recoverIdle = d
		}
	}
}

// WithBackoff sets the base and cap of the exponential back-off applied on
// transient stream connection errors. Default: 1s base, 60s cap.
func WithBackoff(base, capDuration time.Duration) ConsumerOption {
	return func(c *consumerConfig) {
		if base > 0 {
			c.backoffBase = base
		}
		if capDuration > 0 {
			c.backoffCap = capDuration
		}
	}
}

// WithBurst runs the consumer for exactly one recovery+main pass and then
// returns, instead of looping until the shared stop signal fires.
func WithBurst() ConsumerOption {
	return func(c *consumerConfig) { c.burst = true }
}
