// Package redisconn wraps [github.com/redis/go-redis/v9] with connection
// pooling, health checks, and graceful shutdown for the event stream the
// Consumer Pool drains. It mirrors the module's Postgres connection package
// in shape: functional options, retrying Open/MustOpen, and a Healthcheck
// closure.
package redisconn
