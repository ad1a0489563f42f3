// Package connretry retries the initial dial for a connection-backed
// dependency a bounded number of times before giving up, shared by
// pkg/store (Postgres) and pkg/redisconn (Redis) so the "is the dependency
// up yet" backoff policy exists in exactly one place instead of two
// parallel for-loops behind differently named packages.
package connretry

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Dial calls attempt until it succeeds, ctx is done, or attempts tries
// have been made (a value below 1 is treated as 1), waiting interval
// between tries with go-retry's constant backoff. attempt is responsible
// for tearing down any partially-established connection itself before
// returning an error — Dial only ever sees the error, not the connection.
func Dial[T any](ctx context.Context, attempts int, interval time.Duration, attempt func(ctx context.Context) (T, error)) (T, error) {
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(interval))

	var result T
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, attemptErr := attempt(ctx)
		if attemptErr != nil {
			return retry.RetryableError(attemptErr)
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
