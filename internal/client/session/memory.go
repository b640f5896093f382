package session

import (
	"context"
	"sync"

	"github.com/zhouzirui/z-messenger/internal/model/auth"
)

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	session auth.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context) (auth.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.session.Valid(), nil
}

func (s *MemoryStore) Set(_ context.Context, sess auth.Session) error {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.session = auth.Session{}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
