// Package config declares the environment-variable configuration surface
// for both process entry points (grimoire-scheduler, grimoire-consumer),
// loaded with github.com/caarlos0/env/v11. Each section mirrors one of the
// components enumerated in SPEC_FULL.md's DOMAIN STACK, the way the ambient
// stack in the pack splits configuration by concern rather than one flat
// struct.
package config

import "time"

// Postgres configures the Task Store's connection pool.
type Postgres struct {
	ConnectionString string `env:"POSTGRES_CONN_URL,required"`

	MaxConns          int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns          int32         `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	HealthCheckPeriod time.Duration `env:"POSTGRES_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"POSTGRES_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"POSTGRES_MAX_CONN_LIFETIME" envDefault:"30m"`
	RetryAttempts     int           `env:"POSTGRES_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval     time.Duration `env:"POSTGRES_RETRY_INTERVAL" envDefault:"5s"`
}

// Redis configures the event stream connection (pkg/stream, pkg/redisconn).
type Redis struct {
	URL string `env:"REDIS_URL,required"`

	PoolSize      int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns  int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime   time.Duration `env:"REDIS_MAX_IDLE_TIME" envDefault:"10m"`
	MaxActiveTime time.Duration `env:"REDIS_MAX_ACTIVE_TIME" envDefault:"30m"`
	RetryAttempts int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ReadTimeout   time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout  time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	DialTimeout   time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
}

// Broker configures the River-backed Work Broker Adapter (pkg/broker).
type Broker struct {
	MaxWorkers int `env:"BROKER_MAX_WORKERS" envDefault:"50"`
}

// Scheduler configures the Scheduler Engine (pkg/scheduler).
type Scheduler struct {
	ReconcileSchedule string `env:"SCHEDULER_RECONCILE_SCHEDULE" envDefault:"*/5 * * * *"`
	CallbackWorkers   int    `env:"SCHEDULER_CALLBACK_WORKERS" envDefault:"4"`
}

// Stream configures the Redis Streams event stream (pkg/stream).
type Stream struct {
	Name  string `env:"STREAM_NAME" envDefault:"grimoire:events"`
	Group string `env:"STREAM_GROUP" envDefault:"grimoire-consumers"`
}

// ConsumerPool configures the supervised Consumer Pool (pkg/stream.Pool).
type ConsumerPool struct {
	Size int `env:"CONSUMER_POOL_SIZE" envDefault:"4"`

	BatchSize          int64         `env:"CONSUMER_BATCH_SIZE" envDefault:"100"`
	BlockTimeout       time.Duration `env:"CONSUMER_BLOCK_TIMEOUT" envDefault:"5s"`
	RecoverIdle        time.Duration `env:"CONSUMER_RECOVER_IDLE" envDefault:"30s"`
	BackoffBase        time.Duration `env:"CONSUMER_BACKOFF_BASE" envDefault:"1s"`
	BackoffCap         time.Duration `env:"CONSUMER_BACKOFF_CAP" envDefault:"60s"`
	CleanupInterval    time.Duration `env:"CONSUMER_CLEANUP_INTERVAL" envDefault:"3s"`
	ForceStopGrace     time.Duration `env:"CONSUMER_FORCE_STOP_GRACE" envDefault:"5s"`
	Burst              bool          `env:"CONSUMER_BURST" envDefault:"false"`
}

// Sink selects and configures the destination(s) a Consumer drains into.
type Sink struct {
	// Kind selects which pkg/sink implementation to construct: "memory",
	// "opensearch", or "s3".
	Kind string `env:"SINK_KIND" envDefault:"memory"`

	OpenSearchBaseURL  string `env:"OPENSEARCH_BASE_URL"`
	OpenSearchUsername string `env:"OPENSEARCH_USERNAME"`
	OpenSearchPassword string `env:"OPENSEARCH_PASSWORD"`
	OpenSearchIndex    string `env:"OPENSEARCH_INDEX" envDefault:"grimoire-events"`

	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3PathStyle bool   `env:"S3_PATH_STYLE" envDefault:"false"`
	S3Prefix    string `env:"S3_PREFIX" envDefault:"archive"`
}

// Sentry configures optional error reporting (pkg/logging).
type Sentry struct {
	DSN         string `env:"SENTRY_DSN"`
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
}

// SchedulerProcess is the full configuration surface for the
// grimoire-scheduler entry point.
type SchedulerProcess struct {
	Postgres  Postgres
	Redis     Redis
	Broker    Broker
	Scheduler Scheduler
	Stream    Stream
	Sentry    Sentry

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// ConsumerProcess is the full configuration surface for the
// grimoire-consumer entry point.
type ConsumerProcess struct {
	Redis  Redis
	Stream Stream
	Pool   ConsumerPool
	Sink   Sink
	Sentry Sentry

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}
