package sink

import (
	"context"
	"sync"

	"github.com/grimoirelab-go/core/pkg/stream"
)

// MemorySink is an in-process Sink for tests and local examples: it
// accumulates stored entries in memory and never rejects. Names passed to
// EnsureDestination are recorded, but every stored entry lands in one
// shared list whatever the destination. Safe for concurrent use.
type MemorySink struct {
	mu           sync.Mutex
	destinations map[string]bool
	stored       map[string][]stream.Entry
	seen         map[string]bool
}

// NewMemorySink constructs an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		destinations: make(map[string]bool),
		stored:       make(map[string][]stream.Entry),
		seen:         make(map[string]bool),
	}
}

func (s *MemorySink) Ping(ctx context.Context) error { return nil }

func (s *MemorySink) EnsureDestination(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destinations[name] = true
	return nil
}

// Store records every entry as stored, deduplicating by message id so a
// replayed entry (the at-least-once contract) doesn't appear twice in
// Entries.
func (s *MemorySink) Store(ctx context.Context, entries []stream.Entry) ([]stream.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]stream.Result, len(entries))
	for i, e := range entries {
		if !s.seen[e.ID] {
			s.seen[e.ID] = true
			s.stored["default"] = append(s.stored["default"], e)
		}
		results[i] = stream.Result{MessageID: e.ID, Outcome: stream.OutcomeStored}
	}
	return results, nil
}

// Entries returns a copy of every entry stored so far, in arrival order.
func (s *MemorySink) Entries() []stream.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]stream.Entry, len(s.stored["default"]))
	copy(out, s.stored["default"])
	return out
}

var _ stream.Sink = (*MemorySink)(nil)
