package broker

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	c := defaultConfig()
	assert.Equal(t, defaultMaxWorkers, c.maxWorkers)
	assert.Empty(t, c.queues)
}

func TestWithQueue_IgnoresNonPositiveWorkers(t *testing.T) {
	c := defaultConfig()
	WithQueue("ingest", 0)(c)
	WithQueue("ingest", -1)(c)
	assert.NotContains(t, c.queues, "ingest")

	WithQueue("ingest", 8)(c)
	assert.Equal(t, 8, c.queues["ingest"])
}

func TestWithMaxWorkers_IgnoresNonPositive(t *testing.T) {
	c := defaultConfig()
	WithMaxWorkers(0)(c)
	assert.Equal(t, defaultMaxWorkers, c.maxWorkers)

	WithMaxWorkers(5)(c)
	assert.Equal(t, 5, c.maxWorkers)
}

func TestWithLogger_IgnoresNil(t *testing.T) {
	c := defaultConfig()
	c.logger = slog.Default()
	WithLogger(nil)(c)
	assert.NotNil(t, c.logger)
}
