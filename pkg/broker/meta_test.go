package broker

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMeta_SnapshotIsolatesCaller(t *testing.T) {
	m := &JobMeta{progress: map[string]any{}}
	m.ReportProgress(map[string]any{"n": 1})
	m.Log("info", "starting")
	m.Log("info", "done")

	progress, logs := m.Snapshot()
	progress["n"] = 2 // mutating the snapshot must not affect the meta's own state
	require.Len(t, logs, 2)
	assert.Equal(t, "starting", logs[0].Message)
	assert.Equal(t, "done", logs[1].Message)

	progress2, _ := m.Snapshot()
	assert.Equal(t, 1, progress2["n"])
}

func TestJobMeta_ConcurrentAccess(t *testing.T) {
	m := &JobMeta{progress: map[string]any{}}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			m.ReportProgress(map[string]any{"n": n})
			m.Log("info", "tick")
		}(i)
	}
	wg.Wait()
	_, logs := m.Snapshot()
	assert.Len(t, logs, 50)
}

func TestMetaStore_CreateGetDiscard(t *testing.T) {
	s := newMetaStore()
	jobID := uuid.New()

	meta := s.create(jobID, 42)
	require.NotNil(t, meta)

	got, ok := s.get(jobID)
	require.True(t, ok)
	assert.Same(t, meta, got)

	backID, ok := s.jobID(42)
	require.True(t, ok)
	assert.Equal(t, jobID, backID)

	s.discard(jobID)

	_, ok = s.get(jobID)
	assert.False(t, ok)
	_, ok = s.jobID(42)
	assert.False(t, ok)
}

func TestMetaStore_UnknownLookupsMiss(t *testing.T) {
	s := newMetaStore()
	_, ok := s.get(uuid.New())
	assert.False(t, ok)
	_, ok = s.jobID(999)
	assert.False(t, ok)
}
