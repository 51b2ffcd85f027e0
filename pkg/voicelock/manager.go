package voicelock

import (
	"context"
	"slices"
	"sync"
)

// Manager holds independent sessions keyed by id. Every session is created
// with the same Config and Options.
type Manager struct {
	cfg  Config
	opts []Option

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty Manager.
func NewManager(cfg Config, opts ...Option) *Manager {
	return &Manager{
		cfg:      cfg,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new locked session.
func (m *Manager) Create(opts ...Option) (*Session, error) {
	all := append(slices.Clip(m.opts), opts...)
	s, err := New(m.cfg, all...)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	s.metrics.sessionDelta(context.Background(), 1)
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete closes and removes a session and purges its journal records and
// archived clips. It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	s, ok := m.remove(id)
	if !ok {
		return false
	}
	if err := s.Purge(context.Background()); err != nil {
		s.logger.Warn("voicelock: purge session", "error", err)
	}
	return true
}

func (m *Manager) remove(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	s.Close()
	s.metrics.sessionDelta(context.Background(), -1)
	return s, true
}

// List returns all sessions ordered by creation time.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Session) int {
		return a.created.Compare(b.created)
	})
	return out
}

// Len returns the number of sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close closes and removes every session. Journal records and clips are
// kept.
func (m *Manager) Close() {
	for _, s := range m.List() {
		m.remove(s.ID())
	}
}
