package session

import (
	"context"
	"sort"
	"sync"

	"github.com/aixgo-dev/agentarch/agent"
)

// MemoryBackend keeps sessions in process. It is the default for the CLI
// and for tests.
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]*Session)}
}

// Save stores a copy of the session header and state.
func (m *MemoryBackend) Save(ctx context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStorageClosed
	}
	stored := sess.header().Clone()
	if prev, ok := m.sessions[sess.ID]; ok {
		stored.Events = prev.Events
	}
	m.sessions[sess.ID] = stored
	return nil
}

// Load returns a copy of the session.
func (m *MemoryBackend) Load(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStorageClosed
	}
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Delete removes the session.
func (m *MemoryBackend) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStorageClosed
	}
	delete(m.sessions, sessionID)
	return nil
}

// List returns the sessions of appName.
func (m *MemoryBackend) List(ctx context.Context, appName string, opts ListOptions) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStorageClosed
	}
	var out []*Session
	for _, sess := range m.sessions {
		if sess.AppName != appName || (opts.UserID != "" && sess.UserID != opts.UserID) {
			continue
		}
		out = append(out, sess.header().Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts), nil
}

// AppendEvent adds ev to the session's log.
func (m *MemoryBackend) AppendEvent(ctx context.Context, sessionID string, ev agent.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStorageClosed
	}
	sess, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Events = append(sess.Events, ev)
	return nil
}

// Close marks the backend closed.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
