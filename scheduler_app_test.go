package grimoire

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerApp_WithShutdownHookChains(t *testing.T) {
	a := &SchedulerApp{done: make(chan struct{})}

	a.WithShutdownHook(func(ctx context.Context) error { return nil })
	a.WithShutdownHook(func(ctx context.Context) error { return nil })
	require.Len(t, a.shutdownHooks, 2)
}

func TestSchedulerApp_StopClosesDoneOnce(t *testing.T) {
	a := &SchedulerApp{done: make(chan struct{})}

	a.Stop()
	select {
	case <-a.done:
	default:
		t.Fatal("expected done channel to be closed after Stop")
	}

	// Calling Stop again must not panic on an already-closed channel.
	assert.NotPanics(t, func() { a.Stop() })
}
