package broker

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// LogLine is one structured line appended to a job's mutable meta area
// while it runs.
type LogLine struct {
	Time    time.Time
	Level   string
	Message string
}

// JobMeta is the mutable progress/log area a running job writes to and the
// Scheduler Engine's default callbacks read from at terminal time. It is
// held in memory for the lifetime of the broker process — it is not itself
// durable, which is why the default success/failure callbacks persist it
// onto the Job row via the store before it is discarded.
type JobMeta struct {
	mu       sync.Mutex
	riverID  int64
	progress map[string]any
	logs     []LogLine
}

// ReportProgress overwrites the progress snapshot.
func (m *JobMeta) ReportProgress(progress map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = progress
}

// Log appends one structured line.
func (m *JobMeta) Log(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, LogLine{Time: time.Now(), Level: level, Message: message})
}

// Snapshot returns a copy of the current progress and accumulated logs.
func (m *JobMeta) Snapshot() (map[string]any, []LogLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	progress := make(map[string]any, len(m.progress))
	for k, v := range m.progress {
		progress[k] = v
	}
	logs := make([]LogLine, len(m.logs))
	copy(logs, m.logs)
	return progress, logs
}

// metaStore tracks a JobMeta per in-flight broker job, keyed by the
// caller's job id (not River's own internal job id).
type metaStore struct {
	mu      sync.RWMutex
	byJob   map[uuid.UUID]*JobMeta
	byRiver map[int64]uuid.UUID
}

func newMetaStore() *metaStore {
	return &metaStore{
		byJob:   make(map[uuid.UUID]*JobMeta),
		byRiver: make(map[int64]uuid.UUID),
	}
}

func (s *metaStore) create(jobID uuid.UUID, riverID int64) *JobMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &JobMeta{riverID: riverID, progress: map[string]any{}}
	s.byJob[jobID] = m
	s.byRiver[riverID] = jobID
	return m
}

func (s *metaStore) jobID(riverID int64) (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byRiver[riverID]
	return id, ok
}

func (s *metaStore) get(jobID uuid.UUID) (*JobMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byJob[jobID]
	return m, ok
}

// discard drops a job's meta area once the Scheduler Engine has persisted
// its final snapshot.
func (s *metaStore) discard(jobID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.byJob[jobID]; ok {
		delete(s.byRiver, m.riverID)
	}
	delete(s.byJob, jobID)
}
