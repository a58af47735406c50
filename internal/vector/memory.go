package vector

import (
	"context"
	"sync"
)

// MemoryStore keeps note vectors in a per-patient map. Used in tests and in
// dev setups without Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]map[string]Entry
}

// NewMemoryStore constructs an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int64]map[string]Entry)}
}

func (s *MemoryStore) Upsert(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.entries[e.PatientID]
	if !ok {
		ns = make(map[string]Entry)
		s.entries[e.PatientID] = ns
	}
	ns[e.VectorID] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, patientID int64, vectorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.entries[patientID]; ok {
		delete(ns, vectorID)
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, patientID int64) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns := s.entries[patientID]
	out := make([]Entry, 0, len(ns))
	for _, e := range ns {
		out = append(out, e)
	}
	return out, nil
}
