package stream

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Backend is the stream surface a Consumer needs. Satisfied by
// *RedisStream; tests substitute an in-memory fake.
type Backend interface {
	EnsureGroup(ctx context.Context, group string) error
	ReadNew(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]Entry, error)
	Reclaim(ctx context.Context, group, consumer string, minIdle time.Duration, count int64, cursor string) ([]Entry, string, error)
	Ack(ctx context.Context, group string, ids ...string) error
}

// Consumer is one worker in a Pool: it owns a unique consumer name within a
// group and drains entries from a Backend against a Sink, following the
// Init -> Recovery loop -> Main loop state machine.
type Consumer struct {
	backend  Backend
	sink     Sink
	group    string
	name     string
	cfg      *consumerConfig
}

// NewConsumer constructs a Consumer bound to one stream/group/name triple.
func NewConsumer(backend Backend, sink Sink, group, name string, opts ...ConsumerOption) *Consumer {
	cfg := defaultConsumerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Consumer{backend: backend, sink: sink, group: group, name: name, cfg: cfg}
}

// Name returns this worker's consumer name.
func (c *Consumer) Name() string { return c.name }

// Run drives the full state machine until stop reports true between passes
// or ctx is cancelled. In burst mode it runs the recovery loop until a
// reclaim scan comes back empty or its cursor wraps, then one main-loop
// read, then returns regardless of stop.
func (c *Consumer) Run(ctx context.Context, stop func() bool) error {
	if err := c.init(ctx); err != nil {
		return err
	}

	if c.cfg.burst {
		if err := c.recoveryLoop(ctx, func() bool { return false }); err != nil && !errors.Is(err, context.Canceled) {
			c.cfg.logger.ErrorContext(ctx, "stream: burst recovery failed", slog.Any("error", err))
		}
		return c.mainPass(ctx)
	}

	if err := c.recoveryLoop(ctx, stop); err != nil {
		return err
	}

	for {
		if stop() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := c.mainPass(ctx); err != nil {
			return err
		}
	}
}

// init ensures the consumer group exists. Idempotent: "already exists" is
// not an error.
func (c *Consumer) init(ctx context.Context) error {
	return c.withBackoff(ctx, func() error {
		return c.backend.EnsureGroup(ctx, c.group)
	})
}

// recoveryLoop repeatedly reclaims entries idle past the threshold and
// processes them with the recovery flag set, until a reclaim scan comes
// back empty or stop fires.
func (c *Consumer) recoveryLoop(ctx context.Context, stop func() bool) error {
	cursor := "0-0"
	for {
		if stop() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var entries []Entry
		var next string
		err := c.withBackoff(ctx, func() error {
			var rerr error
			entries, next, rerr = c.backend.Reclaim(ctx, c.group, c.name, c.cfg.recoverIdle, c.cfg.batchSize, cursor)
			return rerr
		})
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			return nil
		}

		if err := c.process(ctx, entries, true); err != nil {
			c.cfg.logger.ErrorContext(ctx, "stream: recovery batch processing failed", slog.Any("error", err))
		}

		cursor = next
		if cursor == "0-0" {
			return nil
		}
	}
}

// mainPass performs one block-read of new entries and processes them.
// ErrNoEntries from an empty read is not an error at this level — it just
// means nothing arrived within the block window.
func (c *Consumer) mainPass(ctx context.Context) error {
	var entries []Entry
	err := c.withBackoff(ctx, func() error {
		var rerr error
		entries, rerr = c.backend.ReadNew(ctx, c.group, c.name, c.cfg.batchSize, c.cfg.blockTimeout)
		if errors.Is(rerr, ErrNoEntries) {
			entries = nil
			return nil
		}
		return rerr
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	if err := c.process(ctx, entries, false); err != nil {
		c.cfg.logger.ErrorContext(ctx, "stream: batch processing failed", slog.Any("error", err))
	}
	return nil
}

// process hands a batch to the sink and acknowledges only the entries it
// reports stored. A Store error leaves the whole batch unacknowledged; it
// is picked up again by a future recovery scan once it ages past the idle
// threshold.
func (c *Consumer) process(ctx context.Context, entries []Entry, recovery bool) error {
	results, err := c.sink.Store(ctx, entries)
	if err != nil {
		c.cfg.logger.WarnContext(ctx, "stream: sink store failed, batch left pending",
			slog.Int("batch_size", len(entries)), slog.Bool("recovery", recovery), slog.Any("error", err))
		return err
	}

	var toAck []string
	for _, r := range results {
		if r.Outcome == OutcomeStored {
			toAck = append(toAck, r.MessageID)
		}
	}
	if len(toAck) == 0 {
		return nil
	}
	return c.backend.Ack(ctx, c.group, toAck...)
}

// withBackoff retries fn on a connection error with exponential back-off
// bounded by backoffCap, until it succeeds, ctx is cancelled, or fn returns
// a non-connection error.
func (c *Consumer) withBackoff(ctx context.Context, fn func() error) error {
	delay := c.cfg.backoffBase
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, ErrConnection) {
			return err
		}

		c.cfg.logger.WarnContext(ctx, "stream: connection error, retrying",
			slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.Any("error", err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.cfg.backoffCap {
			delay = c.cfg.backoffCap
		}
	}
}
