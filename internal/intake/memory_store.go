package intake

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local SessionStore with idle expiry.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[chatID]
	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && s.now().Sub(session.UpdatedAt) > s.ttl {
		delete(s.sessions, chatID)
		return nil, nil
	}
	return &session, nil
}

func (s *MemoryStore) Save(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.UpdatedAt = s.now()
	s.sessions[session.ChatID] = *session
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
	return nil
}

// Sweep drops every expired session and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for chatID, session := range s.sessions {
		if s.now().Sub(session.UpdatedAt) > s.ttl {
			delete(s.sessions, chatID)
			removed++
		}
	}
	return removed
}
