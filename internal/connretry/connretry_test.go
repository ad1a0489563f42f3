package connretry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDial_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Dial(context.Background(), 3, time.Millisecond, func(context.Context) (string, error) {
		calls++
		return "conn", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "conn", got)
	assert.Equal(t, 1, calls)
}

func TestDial_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	got, err := Dial(context.Background(), 5, time.Millisecond, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("not ready yet")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDial_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Dial(context.Background(), 3, time.Millisecond, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("still down")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDial_ZeroAttemptsTreatedAsOne(t *testing.T) {
	calls := 0
	_, err := Dial(context.Background(), 0, time.Millisecond, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDial_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	start := time.Now()
	_, err := Dial(ctx, 5, 10*time.Second, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("down")
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.LessOrEqual(t, calls, 1)
}
