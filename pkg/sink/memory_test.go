package sink_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grimoirelab-go/core/pkg/sink"
	"github.com/grimoirelab-go/core/pkg/stream"
)

func TestMemorySink_StoreAndDedup(t *testing.T) {
	s := sink.NewMemorySink()
	ctx := context.Background()

	require.NoError(t, s.EnsureDestination(ctx, "events"))
	require.NoError(t, s.Ping(ctx))

	results, err := s.Store(ctx, []stream.Entry{
		{ID: "1-0", Data: []byte(`{"a":1}`)},
		{ID: "2-0", Data: []byte(`{"a":2}`)},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, stream.OutcomeStored, r.Outcome)
	}
	assert.Len(t, s.Entries(), 2)

	// Replaying the same message id must not duplicate it.
	_, err = s.Store(ctx, []stream.Entry{{ID: "1-0", Data: []byte(`{"a":1}`)}})
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 2)
}

func TestMemorySink_EmptyBatch(t *testing.T) {
	s := sink.NewMemorySink()
	results, err := s.Store(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
