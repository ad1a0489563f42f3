// Package stream implements the Consumer Pool's event stream: a Redis
// Streams-backed append-only log drained through a consumer-group model.
//
// RedisStream wraps XADD/XGROUP CREATE/XREADGROUP/XAUTOCLAIM/XACK. Consumer
// is one worker's state machine — Init (ensure group), Recovery loop
// (reclaim and reprocess entries abandoned by a crashed peer), Main loop
// (block-read and process new entries) — built against the narrower
// Backend interface so tests can substitute an in-memory stream. Pool
// supervises N Consumers: it spawns workers, sweeps for ones that exited,
// restores the live count in recurring mode, and exposes Stop/ForceStop for
// graceful and grace-period-bounded shutdown.
//
// A Consumer never drops an entry on a transient connection error: it
// retries the failing call with exponential back-off bounded by a
// configured cap, logging each attempt, until it succeeds or the context is
// cancelled.
package stream
