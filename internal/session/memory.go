package session

import (
	"context"
	"sync"

	"medichat-backend/pkg"
)

// MemoryStore is the default process-lifetime store: a mutex-guarded map.
// Sessions vanish on restart; there is no TTL.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*pkg.Session
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*pkg.Session)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*pkg.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false, nil
	}
	return sess.Clone(), true, nil
}

func (s *MemoryStore) Create(_ context.Context, sess *pkg.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return ErrDuplicateSession
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *MemoryStore) Put(_ context.Context, sess *pkg.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *MemoryStore) History(_ context.Context, id string) ([]pkg.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	turns := make([]pkg.Turn, len(sess.Turns))
	copy(turns, sess.Turns)
	return turns, nil
}
