package session

import (
	"context"
	"sync"
)

// MemoryStore is the in-process Store/Members used by tests and
// credential-less local runs.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	sets     map[string]map[int64]bool
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Members = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[int64]Session{},
		sets:     map[string]map[int64]bool{},
	}
}

func (s *MemoryStore) Get(ctx context.Context, chatID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[chatID], nil
}

func (s *MemoryStore) Put(ctx context.Context, chatID int64, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID] = sess
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, set string, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[set] == nil {
		s.sets[set] = map[int64]bool{}
	}
	s.sets[set][chatID] = true
	return nil
}

func (s *MemoryStore) Contains(ctx context.Context, set string, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets[set][chatID], nil
}
