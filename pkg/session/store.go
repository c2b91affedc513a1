package session

import (
	"context"
	"errors"

	"github.com/aixgo-dev/agentarch/agent"
)

// Common errors for storage operations.
var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStorageClosed is returned when operating on a closed storage backend.
	ErrStorageClosed = errors.New("storage backend is closed")
)

// Backend abstracts session persistence.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Save creates or updates the session header and state. Events are
	// persisted through AppendEvent.
	Save(ctx context.Context, sess *Session) error

	// Load retrieves a session with its events.
	// Returns ErrSessionNotFound if the session doesn't exist.
	Load(ctx context.Context, sessionID string) (*Session, error)

	// Delete removes a session and its events.
	Delete(ctx context.Context, sessionID string) error

	// List returns the sessions of an application, without events, ordered
	// by ID.
	List(ctx context.Context, appName string, opts ListOptions) ([]*Session, error)

	// AppendEvent adds an event to a session's log.
	AppendEvent(ctx context.Context, sessionID string, ev agent.Event) error

	// Close releases any resources held by the backend.
	Close() error
}

// ListOptions provides filtering for session listing.
type ListOptions struct {
	// UserID filters sessions by user.
	UserID string
	// Limit caps the number of results.
	Limit int
	// Offset skips the first N results.
	Offset int
}

// paginate applies opts to items already sorted by the caller.
func paginate[T any](items []T, opts ListOptions) []T {
	start := opts.Offset
	if start >= len(items) {
		return []T{}
	}
	end := len(items)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	return items[start:end]
}
