package redisconn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpen_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("empty URL returns ErrEmptyConnectionURL", func(t *testing.T) {
		t.Parallel()
		client, err := Open(ctx, "")
		require.Error(t, err)
		require.Nil(t, client)
		require.True(t, errors.Is(err, ErrEmptyConnectionURL))
	})

	t.Run("invalid scheme returns ErrFailedToParseURL", func(t *testing.T) {
		t.Parallel()
		for _, url := range []string{
			"http://localhost:6379",
			"localhost:6379",
			"postgresql://localhost:6379",
		} {
			client, err := Open(ctx, url)
			require.Error(t, err)
			require.Nil(t, client)
			require.True(t, errors.Is(err, ErrFailedToParseURL))
		}
	})

	t.Run("malformed URL returns ErrFailedToParseURL", func(t *testing.T) {
		t.Parallel()
		client, err := Open(ctx, "redis://localhost:notaport")
		require.Error(t, err)
		require.Nil(t, client)
		require.True(t, errors.Is(err, ErrFailedToParseURL))
	})
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()
	check := Healthcheck(nil)
	err := check(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrHealthcheckFailed))
}

type mockCloser struct {
	closed bool
	err    error
}

func (m *mockCloser) Close() error {
	m.closed = true
	return m.err
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	t.Run("calls Close", func(t *testing.T) {
		c := &mockCloser{}
		require.NoError(t, Shutdown(c)(context.Background()))
		require.True(t, c.closed)
	})

	t.Run("propagates Close error", func(t *testing.T) {
		wantErr := errors.New("close error")
		c := &mockCloser{err: wantErr}
		err := Shutdown(c)(context.Background())
		require.ErrorIs(t, err, wantErr)
	})
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()
	o := defaultOptions()
	require.Equal(t, 10, o.poolSize)
	require.Equal(t, 5, o.minIdleConns)
	require.Equal(t, 10*time.Minute, o.maxIdleTime)
	require.Equal(t, 30*time.Minute, o.maxActiveTime)
	require.Equal(t, 3, o.retryAttempts)
	require.Equal(t, 5*time.Second, o.retryInterval)
	require.Equal(t, 3*time.Second, o.readTimeout)
	require.Equal(t, 3*time.Second, o.writeTimeout)
	require.Equal(t, 5*time.Second, o.dialTimeout)
}

func TestOptions_Overrides(t *testing.T) {
	t.Parallel()
	o := defaultOptions()
	WithPoolSize(25)(o)
	WithMinIdleConns(8)(o)
	WithMaxIdleTime(time.Hour)(o)
	WithMaxActiveTime(2 * time.Hour)(o)
	WithRetry(7, 2*time.Second)(o)
	WithReadTimeout(9 * time.Second)(o)
	WithWriteTimeout(9 * time.Second)(o)
	WithDialTimeout(9 * time.Second)(o)

	require.Equal(t, 25, o.poolSize)
	require.Equal(t, 8, o.minIdleConns)
	require.Equal(t, time.Hour, o.maxIdleTime)
	require.Equal(t, 2*time.Hour, o.maxActiveTime)
	require.Equal(t, 7, o.retryAttempts)
	require.Equal(t, 2*time.Second, o.retryInterval)
	require.Equal(t, 9*time.Second, o.readTimeout)
	require.Equal(t, 9*time.Second, o.writeTimeout)
	require.Equal(t, 9*time.Second, o.dialTimeout)
}
