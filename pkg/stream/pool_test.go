package stream_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grimoirelab-go/core/pkg/stream"
)

func TestPool_BurstStopsOnceAllWorkersFinish(t *testing.T) {
	backend := &fakeBackend{}
	sink := &fakeSink{}
	pool := stream.NewPool(backend, sink, "group", 3,
		[]stream.ConsumerOption{stream.WithBlockTimeout(5 * time.Millisecond)},
		stream.WithCleanupInterval(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := pool.Start(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, stream.PoolStopped, pool.Status())
}

func TestPool_StopWaitsForWorkers(t *testing.T) {
	backend := &fakeBackend{}
	sink := &fakeSink{}
	pool := stream.NewPool(backend, sink, "group", 2,
		[]stream.ConsumerOption{stream.WithBlockTimeout(5 * time.Millisecond)},
		stream.WithCleanupInterval(5*time.Millisecond))

	ctx := context.Background()
	go func() { _ = pool.Start(ctx, false) }()

	require.Eventually(t, func() bool { return pool.Status() == stream.PoolRunning }, time.Second, 5*time.Millisecond)

	pool.Stop()
	assert.Equal(t, stream.PoolStopped, pool.Status())
}

func TestPool_ForceStopRespectsGracePeriod(t *testing.T) {
	backend := &fakeBackend{}
	sink := &fakeSink{}
	pool := stream.NewPool(backend, sink, "group", 1,
		[]stream.ConsumerOption{stream.WithBlockTimeout(5 * time.Millisecond)},
		stream.WithCleanupInterval(5*time.Millisecond),
		stream.WithForceStopGrace(20*time.Millisecond))

	ctx := context.Background()
	go func() { _ = pool.Start(ctx, false) }()

	require.Eventually(t, func() bool { return pool.Status() == stream.PoolRunning }, time.Second, 5*time.Millisecond)

	start := time.Now()
	pool.ForceStop()
	assert.Equal(t, stream.PoolStopped, pool.Status())
	assert.Less(t, time.Since(start), time.Second)
}
