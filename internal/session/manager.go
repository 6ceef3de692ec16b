package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// DefaultID is the session behind the single-slot endpoints.
const DefaultID = "default"

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrDefaultSession is returned when deleting the default session.
	ErrDefaultSession = errors.New("the default session cannot be deleted")
)

// Manager is a concurrency-safe registry of sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
	logger   *zap.Logger
}

// NewManager creates a manager holding only the default session.
func NewManager(logger *zap.Logger) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		now:      time.Now,
		logger:   utils.OrNop(logger),
	}
	m.sessions[DefaultID] = newSession(DefaultID, m.now())
	return m
}

// Default returns the default session.
func (m *Manager) Default() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[DefaultID]
}

// Create registers a new empty session with a random id.
func (m *Manager) Create() *Session {
	s := newSession(uuid.New().String(), m.now())
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	m.logger.Debug("session created", zap.String("session_id", s.id))
	return s
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// GetOrCreate returns the session with id, creating it when absent.
func (m *Manager) GetOrCreate(id string) *Session {
	if s, err := m.Get(id); err == nil {
		return s
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := newSession(id, m.now())
	m.sessions[id] = s
	return s
}

// Delete drops a session. Queries already holding its snapshot finish normally.
func (m *Manager) Delete(id string) error {
	if id == DefaultID {
		return ErrDefaultSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	m.logger.Debug("session deleted", zap.String("session_id", id))
	return nil
}

// List returns all sessions ordered by creation time, then id.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].created.Equal(out[j].created) {
			return out[i].created.Before(out[j].created)
		}
		return out[i].id < out[j].id
	})
	return out
}

// Len returns the number of sessions, including the default one.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// EvictIdle removes sessions unused for longer than maxIdle and returns their ids.
// The default session is never evicted.
func (m *Manager) EvictIdle(maxIdle time.Duration) []string {
	cutoff := m.now().Add(-maxIdle)
	m.mu.Lock()
	defer m.mu.Unlock()
	var evicted []string
	for id, s := range m.sessions {
		if id == DefaultID {
			continue
		}
		if s.LastUsed().Before(cutoff) {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	sort.Strings(evicted)
	if len(evicted) > 0 {
		m.logger.Info("idle sessions evicted", zap.Strings("session_ids", evicted))
	}
	return evicted
}
