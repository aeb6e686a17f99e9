package session

import (
	"sync"

	"go.uber.org/zap"
)

// Manager is the registry of active sessions. Sessions are added on
// connect and removed on disconnect; the registry itself is the only
// state shared across connections.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Create registers a new session under id. An existing session with
// the same id is replaced; the stale one is simply forgotten, which
// matches disconnect semantics.
func (m *Manager) Create(id string) *Session {
	s := New(id)
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	m.logger.Info("session created", zap.String("session_id", id))
	return s
}

// Remove drops the session regardless of its state. An in-flight
// dispatch owned by the removed session finishes on its own and its
// result is discarded by the channel.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	m.logger.Info("session removed", zap.String("session_id", id))
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
