package sink_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grimoirelab-go/core/pkg/sink"
	"github.com/grimoirelab-go/core/pkg/stream"
)

func TestOpenSearchSink_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_cluster/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := sink.NewOpenSearchSink(sink.OpenSearchConfig{BaseURL: srv.URL, Index: "events"}, srv.Client())
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpenSearchSink_EnsureDestination_AlreadyExistsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "resource_already_exists_exception"},
		})
	}))
	defer srv.Close()

	s, err := sink.NewOpenSearchSink(sink.OpenSearchConfig{BaseURL: srv.URL, Index: "events"}, srv.Client())
	require.NoError(t, err)
	assert.NoError(t, s.EnsureDestination(context.Background(), "events"))
}

func TestOpenSearchSink_Store_ReportsPerItemOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_bulk", r.URL.Path)

		scanner := bufio.NewScanner(r.Body)
		var lines int
		for scanner.Scan() {
			lines++
		}
		assert.Equal(t, 4, lines) // 2 entries * (action line + doc line)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"index": map[string]any{"_id": "1-0", "status": 201}},
				{"index": map[string]any{"_id": "2-0", "status": 409}},
			},
		})
	}))
	defer srv.Close()

	s, err := sink.NewOpenSearchSink(sink.OpenSearchConfig{BaseURL: srv.URL, Index: "events"}, srv.Client())
	require.NoError(t, err)

	results, err := s.Store(context.Background(), []stream.Entry{
		{ID: "1-0", Data: []byte(`{"a":1}`)},
		{ID: "2-0", Data: []byte(`{"a":2}`)},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, stream.Result{MessageID: "1-0", Outcome: stream.OutcomeStored}, results[0])
	assert.Equal(t, stream.Result{MessageID: "2-0", Outcome: stream.OutcomeRejected}, results[1])
}

func TestNewOpenSearchSink_RequiresBaseURLAndIndex(t *testing.T) {
	_, err := sink.NewOpenSearchSink(sink.OpenSearchConfig{}, nil)
	assert.Error(t, err)
}
