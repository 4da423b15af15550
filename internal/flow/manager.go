package flow

import (
	"log/slog"
	"sync"

	"github.com/vitalpath/assessflow/internal/catalog"
)

// SessionManager tracks live sessions by id. The manager itself is safe for
// concurrent use; calls against any single session must still be
// serialized by the caller.
type SessionManager struct {
	cat  *catalog.Catalog
	opts []Option

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates a manager that builds sessions over the given
// catalog with the given default options.
func NewSessionManager(cat *catalog.Catalog, opts ...Option) *SessionManager {
	return &SessionManager{
		cat:      cat,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session and registers it.
func (m *SessionManager) Create() *Session {
	s := NewSession(m.cat, m.opts...)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	slog.Debug("SessionManager registered session", "session", s.ID())
	return s
}

// Get returns the session for the given id.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Put registers an externally constructed session (e.g. one restored from
// a snapshot).
func (m *SessionManager) Put(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
}

// Delete removes the session. Abandoning a session is simply ceasing to
// call it; deletion only frees the registry entry.
func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of registered sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
