// Package session persists the conversations the runner drives: the
// shared state of each session and the ordered events its invocations
// emitted.
package session

import (
	"maps"
	"time"

	"github.com/aixgo-dev/agentarch/agent"
)

// Session is one conversation between a user and an application.
type Session struct {
	ID        string         `json:"id"`
	AppName   string         `json:"app_name"`
	UserID    string         `json:"user_id,omitempty"`
	State     map[string]any `json:"state"`
	Events    []agent.Event  `json:"events,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Clone returns a copy that shares no slices or maps with s. State values
// are copied shallowly.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.State = maps.Clone(s.State)
	if out.State == nil {
		out.State = map[string]any{}
	}
	out.Events = append([]agent.Event(nil), s.Events...)
	return &out
}

// header returns the session without its events, the form backends store
// separately from the event log.
func (s *Session) header() *Session {
	out := *s
	out.Events = nil
	return &out
}

// Apply records ev on the session and merges its state delta.
func (s *Session) Apply(ev agent.Event) {
	if s.State == nil {
		s.State = map[string]any{}
	}
	maps.Copy(s.State, ev.Actions.StateDelta)
	s.Events = append(s.Events, ev)
	s.UpdatedAt = time.Now().UTC()
}
