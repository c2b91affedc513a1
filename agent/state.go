package agent

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"
)

// State is the key-value store shared by every agent in an invocation.
// It is safe for concurrent use.
type State struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewState creates a State seeded with a copy of init.
func NewState(init map[string]any) *State {
	data := make(map[string]any, len(init))
	maps.Copy(data, init)
	return &State{data: data}
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// GetString returns the value under key rendered as a string, or def
// when the key is absent or nil. Non-string values are JSON encoded.
func (s *State) GetString(key, def string) string {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return def
	}
	return Stringify(v)
}

// Set stores value under key.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Delete removes key.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Apply merges delta into the state.
func (s *State) Apply(delta map[string]any) {
	if len(delta) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.data, delta)
}

// Snapshot returns a shallow copy of the state.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

// Len returns the number of keys.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Stringify renders a state value as text.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
