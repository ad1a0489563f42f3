package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	assert.EqualValues(t, 10, o.maxConns)
	assert.EqualValues(t, 2, o.minConns)
	assert.Equal(t, time.Minute, o.healthCheckPeriod)
	assert.Equal(t, 10*time.Minute, o.maxConnIdleTime)
	assert.Equal(t, 30*time.Minute, o.maxConnLifetime)
	assert.Equal(t, 3, o.retryAttempts)
	assert.Equal(t, 5*time.Second, o.retryInterval)
	assert.Nil(t, o.migrations)
}

func TestOptions_Overrides(t *testing.T) {
	o := defaultOptions()
	for _, opt := range []Option{
		WithMaxConns(20),
		WithMinConns(5),
		WithHealthCheckPeriod(2 * time.Minute),
		WithMaxConnIdleTime(time.Hour),
		WithMaxConnLifetime(2 * time.Hour),
		WithRetry(7, time.Second),
	} {
		opt(o)
	}

	assert.EqualValues(t, 20, o.maxConns)
	assert.EqualValues(t, 5, o.minConns)
	assert.Equal(t, 2*time.Minute, o.healthCheckPeriod)
	assert.Equal(t, time.Hour, o.maxConnIdleTime)
	assert.Equal(t, 2*time.Hour, o.maxConnLifetime)
	assert.Equal(t, 7, o.retryAttempts)
	assert.Equal(t, time.Second, o.retryInterval)
}
