package broker

import "errors"

var (
	// ErrPoolRequired is returned when constructing a Broker without a pool.
	ErrPoolRequired = errors.New("broker: pool is required")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("broker: already started")

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("broker: not started")

	// ErrDuplicateJob is returned by EnqueueAt when the given job id has
	// already been scheduled. The broker is idempotent on job id: a second
	// enqueue of the same id is a caller error, not silently ignored.
	ErrDuplicateJob = errors.New("broker: job id already scheduled")

	// ErrJobNotFound is returned by Cancel when no broker-side entry
	// matches the given job id. (CurrentJob reports a miss through its
	// boolean result instead.)
	ErrJobNotFound = errors.New("broker: job not found")

	// ErrHealthcheckFailed is returned when the broker healthcheck fails.
	ErrHealthcheckFailed = errors.New("broker: healthcheck failed")
)
