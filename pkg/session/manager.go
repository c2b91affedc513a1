package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/google/uuid"
	"github.com/mudler/xlog"
)

// Manager manages session lifecycle.
// Manager is safe for concurrent use.
type Manager interface {
	// Create creates a new session. An empty sessionID is generated.
	Create(ctx context.Context, appName, userID, sessionID string, state map[string]any) (*Session, error)

	// Get retrieves an existing session by ID.
	// Returns ErrSessionNotFound if the session doesn't exist.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// GetOrCreate returns the session with sessionID, creating it when it
	// does not exist yet.
	GetOrCreate(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// AppendEvent records ev on sess, merges its state delta and persists
	// both.
	AppendEvent(ctx context.Context, sess *Session, ev agent.Event) error

	// List returns sessions for an application matching the filter options.
	List(ctx context.Context, appName string, opts ListOptions) ([]*Session, error)

	// Delete removes a session and all its data.
	Delete(ctx context.Context, sessionID string) error

	// Close releases resources held by the manager.
	Close() error
}

// managerImpl is the concrete implementation of Manager.
type managerImpl struct {
	backend Backend
}

// NewManager creates a new session manager with the given storage backend.
func NewManager(backend Backend) Manager {
	return &managerImpl{backend: backend}
}

func (m *managerImpl) Create(ctx context.Context, appName, userID, sessionID string, state map[string]any) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if state == nil {
		state = map[string]any{}
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:        sessionID,
		AppName:   appName,
		UserID:    userID,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.backend.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	xlog.Debug("Session created", "session", sessionID, "app", appName, "user", userID)
	return sess, nil
}

func (m *managerImpl) Get(ctx context.Context, sessionID string) (*Session, error) {
	return m.backend.Load(ctx, sessionID)
}

func (m *managerImpl) GetOrCreate(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	if sessionID != "" {
		sess, err := m.backend.Load(ctx, sessionID)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("load session: %w", err)
		}
	}
	return m.Create(ctx, appName, userID, sessionID, nil)
}

func (m *managerImpl) AppendEvent(ctx context.Context, sess *Session, ev agent.Event) error {
	if err := m.backend.AppendEvent(ctx, sess.ID, ev); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	sess.Apply(ev)
	if len(ev.Actions.StateDelta) == 0 {
		return nil
	}
	if err := m.backend.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	return nil
}

func (m *managerImpl) List(ctx context.Context, appName string, opts ListOptions) ([]*Session, error) {
	return m.backend.List(ctx, appName, opts)
}

func (m *managerImpl) Delete(ctx context.Context, sessionID string) error {
	return m.backend.Delete(ctx, sessionID)
}

func (m *managerImpl) Close() error {
	return m.backend.Close()
}
