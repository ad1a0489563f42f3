package stream

import "errors"

var (
	// ErrGroupExists is swallowed internally by EnsureGroup — a consumer
	// group that already exists at stream init is not an error.
	ErrGroupExists = errors.New("stream: consumer group already exists")

	// ErrNoEntries is returned by a read call that timed out with nothing
	// delivered. Callers treat it as "nothing to do this pass", not a
	// failure.
	ErrNoEntries = errors.New("stream: no entries available")

	// ErrConnection wraps a transient error talking to the stream backend,
	// the trigger for the Consumer's exponential back-off.
	ErrConnection = errors.New("stream: connection error")
)
