package redisconn

import (
	"context"
	"io"
)

// Shutdown returns a function that gracefully closes the Redis client,
// suitable for a process's graceful-shutdown hook chain.
func Shutdown(client io.Closer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Close()
	}
}
