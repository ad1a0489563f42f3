package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// PoolStatus is the Pool supervisor's lifecycle state.
type PoolStatus string

const (
	PoolIdle     PoolStatus = "IDLE"
	PoolRunning  PoolStatus = "RUNNING"
	PoolStopping PoolStatus = "STOPPING"
	PoolStopped  PoolStatus = "STOPPED"
)

// Pool supervises N Consumer workers against one stream/group, restarting
// crashed or finished workers to keep the live count at N in non-burst
// mode, and exiting cleanly once every worker finishes in burst mode.
type Pool struct {
	backend Backend
	sink    Sink
	group   string
	size    int
	opts    []ConsumerOption
	logger  *slog.Logger

	cleanupInterval time.Duration
	forceStopGrace  time.Duration

	mu      sync.Mutex
	status  PoolStatus
	workers map[string]*workerHandle
	stopped atomic.Bool
}

type workerHandle struct {
	consumer *Consumer
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets the logger used for supervisor lifecycle events.
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCleanupInterval sets how often the watchdog loop sweeps for exited
// workers. Default: 3s.
func WithCleanupInterval(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.cleanupInterval = d
		}
	}
}

// WithForceStopGrace sets how long ForceStop waits for workers to exit on
// their own before treating them as terminated regardless. Default: 5s.
func WithForceStopGrace(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.forceStopGrace = d
		}
	}
}

// NewPool constructs a Pool of size workers against backend/sink/group,
// each Consumer built with the given ConsumerOptions (minus WithBurst,
// which Start's burst argument controls).
func NewPool(backend Backend, sink Sink, group string, size int, consumerOpts []ConsumerOption, opts ...PoolOption) *Pool {
	p := &Pool{
		backend:         backend,
		sink:            sink,
		group:           group,
		size:            size,
		opts:            consumerOpts,
		logger:          slog.Default(),
		cleanupInterval: defaultCleanupInterval,
		forceStopGrace:  defaultForceStopGracePeriod,
		status:          PoolIdle,
		workers:         make(map[string]*workerHandle),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Status returns the supervisor's current lifecycle state.
func (p *Pool) Status() PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Start spawns size worker goroutines and runs the watchdog loop until ctx
// is cancelled or Stop/ForceStop is called. In burst mode each worker
// performs one recovery+main pass and exits; Start returns once every
// worker has exited rather than looping the watchdog indefinitely.
func (p *Pool) Start(ctx context.Context, burst bool) error {
	p.mu.Lock()
	if p.status == PoolRunning {
		p.mu.Unlock()
		return fmt.Errorf("stream: pool already running")
	}
	p.status = PoolRunning
	p.stopped.Store(false)
	p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i := 0; i < p.size; i++ {
		p.spawn(runCtx, burst)
	}

	ticker := time.NewTicker(p.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.setStatus(PoolStopping)
			p.waitAll()
			p.setStatus(PoolStopped)
			return nil
		case <-ticker.C:
			live := p.cleanup()
			if burst {
				if live == 0 {
					p.setStatus(PoolStopped)
					return nil
				}
				continue
			}
			if p.stopped.Load() {
				if live == 0 {
					p.setStatus(PoolStopped)
					return nil
				}
				continue
			}
			if p.Status() == PoolRunning && live < p.size {
				p.restore(runCtx, p.size-live)
			}
		}
	}
}

// Stop requests a graceful shutdown: workers observe the stop signal
// between batches and after each read, and exit cleanly. Stop returns once
// every worker has exited.
func (p *Pool) Stop() {
	p.setStatus(PoolStopping)
	p.stopped.Store(true)
	p.waitAll()
	p.setStatus(PoolStopped)
}

// ForceStop sets the stop flag, waits up to the configured grace period for
// workers to exit on their own, then cancels any still running.
func (p *Pool) ForceStop() {
	p.setStatus(PoolStopping)
	p.stopped.Store(true)

	done := make(chan struct{})
	go func() {
		p.waitAll()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.forceStopGrace):
		p.mu.Lock()
		for _, w := range p.workers {
			w.cancel()
		}
		p.mu.Unlock()
		<-done
	}

	p.setStatus(PoolStopped)
}

func (p *Pool) setStatus(s PoolStatus) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

func (p *Pool) spawn(ctx context.Context, burst bool) {
	name := fmt.Sprintf("grimoire-consumer-%s", uuid.NewString())

	opts := append([]ConsumerOption{}, p.opts...)
	if burst {
		opts = append(opts, WithBurst())
	}
	consumer := NewConsumer(p.backend, p.sink, p.group, name, opts...)

	workerCtx, cancel := context.WithCancel(ctx)
	h := &workerHandle{consumer: consumer, cancel: cancel, done: make(chan struct{})}

	p.mu.Lock()
	p.workers[name] = h
	p.mu.Unlock()

	go func() {
		defer close(h.done)
		h.err = consumer.Run(workerCtx, p.stopped.Load)
		if h.err != nil {
			p.logger.WarnContext(ctx, "stream: consumer exited",
				slog.String("consumer", name), slog.Any("error", h.err))
		}
	}()
}

// cleanup removes workers whose goroutine has finished and returns the
// number still live.
func (p *Pool) cleanup() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, h := range p.workers {
		select {
		case <-h.done:
			delete(p.workers, name)
		default:
		}
	}
	return len(p.workers)
}

// restore spawns n replacement workers with fresh consumer names.
func (p *Pool) restore(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		p.spawn(ctx, false)
	}
}

func (p *Pool) waitAll() {
	p.mu.Lock()
	handles := make([]*workerHandle, 0, len(p.workers))
	for _, h := range p.workers {
		handles = append(handles, h)
	}
	p.mu.Unlock()

	for _, h := range handles {
		<-h.done
	}
}
