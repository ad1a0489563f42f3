package store

import "errors"

var (
	ErrFailedToParseConfig = errors.New("store: failed to parse connection string")
	ErrFailedToConnect     = errors.New("store: failed to open connection")
	ErrHealthcheckFailed   = errors.New("store: healthcheck failed")
	ErrSetDialect          = errors.New("store migrator: failed to set dialect")
	ErrApplyMigrations     = errors.New("store migrator: failed to apply migrations")

	// ErrNotFound is returned when a Task or Job lookup finds no row.
	ErrNotFound = errors.New("store: not found")

	// ErrStaleWrite is returned by SaveRun when the Task row was modified
	// concurrently between read and write (optimistic concurrency check
	// on last_modified).
	ErrStaleWrite = errors.New("store: concurrent modification")
)
