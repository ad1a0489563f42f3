package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grimoirelab-go/core/internal/config"
)

func TestLoadSchedulerProcess_AppliesDefaults(t *testing.T) {
	t.Setenv("POSTGRES_CONN_URL", "postgres://localhost/grimoire")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := config.LoadSchedulerProcess()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/grimoire", cfg.Postgres.ConnectionString)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.Equal(t, "*/5 * * * *", cfg.Scheduler.ReconcileSchedule)
	assert.Equal(t, 4, cfg.Scheduler.CallbackWorkers)
	assert.Equal(t, "grimoire:events", cfg.Stream.Name)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoadSchedulerProcess_MissingRequiredFieldErrors(t *testing.T) {
	_, err := config.LoadSchedulerProcess()
	assert.Error(t, err)
}

func TestLoadConsumerProcess_AppliesDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := config.LoadConsumerProcess()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Pool.Size)
	assert.Equal(t, int64(100), cfg.Pool.BatchSize)
	assert.Equal(t, "memory", cfg.Sink.Kind)
	assert.False(t, cfg.Pool.Burst)
}

func TestLoadConsumerProcess_OverridesFromEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("CONSUMER_POOL_SIZE", "8")
	t.Setenv("SINK_KIND", "opensearch")

	cfg, err := config.LoadConsumerProcess()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Pool.Size)
	assert.Equal(t, "opensearch", cfg.Sink.Kind)
}
