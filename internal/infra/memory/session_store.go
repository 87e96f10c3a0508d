package memory

import (
	"sync"

	"trivia-quiz/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore, used by
// the terminal presentation and in tests. It honors the same contract as the
// Redis store: the email survives session overwrites and is merged back into
// defaults when no snapshot exists.
type SessionStore struct {
	mu      sync.RWMutex
	session *domain.Session
	email   string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

func (s *SessionStore) Save(session domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.Email != "" {
		s.email = session.Email
	}
	saved := session.Clone()
	s.session = &saved
}

func (s *SessionStore) Load() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return domain.NewSession(s.email)
	}
	return domain.Restore(s.session.Clone(), s.email)
}

func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	s.email = ""
}
