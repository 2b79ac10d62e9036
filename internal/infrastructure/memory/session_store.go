package memory

import (
	"sync"

	"github.com/wms-platform/scanwatch-service/internal/application"
)

// SessionStore is the in-memory session registry. Every issued bearer token
// maps to one entry; the mutex makes Set/Get/Clear atomic so a reader never
// observes a token without its identity.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]application.SessionEntry
}

// NewSessionStore creates a new SessionStore
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]application.SessionEntry),
	}
}

// Set stores the entry under token, replacing any previous entry.
func (s *SessionStore) Set(token string, entry application.SessionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = entry
}

// Get returns a snapshot of the entry for token.
func (s *SessionStore) Get(token string) (application.SessionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[token]
	return entry, ok
}

// Clear removes the entry for token. Clearing an absent token is a no-op.
func (s *SessionStore) Clear(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
