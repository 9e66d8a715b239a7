package memory

import (
	"context"
	"sync"

	"github.com/aescanero/quizcast/pkg/domain"
	"github.com/aescanero/quizcast/pkg/ports"
)

// SessionStore implements ports.SessionStore using an in-memory map.
// Suitable for tests and single-instance deployments; sessions do not
// survive a restart.
type SessionStore struct {
	sessions map[int64]*domain.Session
	mu       sync.RWMutex
}

// NewSessionStore creates a new in-memory session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*domain.Session),
	}
}

// Save persists a session keyed by user ID
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy to avoid callers mutating stored state
	sessionCopy := *session
	s.sessions[session.UserID] = &sessionCopy
	return nil
}

// Get retrieves a session by user ID
func (s *SessionStore) Get(ctx context.Context, userID int64) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[userID]
	if !ok {
		return nil, ports.ErrSessionNotFound
	}

	sessionCopy := *session
	return &sessionCopy, nil
}

// Delete removes a session by user ID
func (s *SessionStore) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

// List returns all stored sessions
func (s *SessionStore) List(ctx context.Context) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessionCopy := *session
		sessions = append(sessions, &sessionCopy)
	}

	return sessions, nil
}

// Count returns the number of stored sessions
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions), nil
}
