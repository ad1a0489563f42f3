// Package store is the Task Store: Postgres-backed persistence for Task and
// Job rows, reachable only through the Store type's methods. It has no
// opinion on scheduling policy — the Scheduler Engine (package scheduler)
// decides when a Task transitions and calls SaveRun to make the transition
// durable in one transaction.
package store

import (
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var Migrations embed.FS

// Store wraps a pgx connection pool with the Task/Job queries the
// Scheduler Engine needs. The zero value is not usable; construct one with
// Open or MustOpen.
type Store struct {
	pool *pgxpool.Pool
}

// Pool returns the underlying connection pool, so a caller wiring up the
// Work Broker Adapter alongside this Store can share one pool between
// River and the Task/Job queries instead of opening a second connection.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
