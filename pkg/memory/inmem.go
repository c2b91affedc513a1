package memory

import (
	"context"
	"sync"
)

// InMemoryStore keeps memories in process.
type InMemoryStore struct {
	mu       sync.RWMutex
	episodes map[string][]string
	graphs   map[string]Graph
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		episodes: make(map[string][]string),
		graphs:   make(map[string]Graph),
	}
}

// LoadEpisodes returns a copy of the namespace's episodes.
func (s *InMemoryStore) LoadEpisodes(_ context.Context, namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.episodes[namespace]...), nil
}

// SaveEpisodes replaces the namespace's episodes.
func (s *InMemoryStore) SaveEpisodes(_ context.Context, namespace string, episodes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes[namespace] = append([]string(nil), episodes...)
	return nil
}

// LoadGraph returns a copy of the namespace's graph.
func (s *InMemoryStore) LoadGraph(_ context.Context, namespace string) (Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kg := NewKnowledgeGraph()
	kg.Restore(s.graphs[namespace])
	return kg.Snapshot(), nil
}

// SaveGraph replaces the namespace's graph.
func (s *InMemoryStore) SaveGraph(_ context.Context, namespace string, graph Graph) error {
	kg := NewKnowledgeGraph()
	kg.Restore(graph)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[namespace] = kg.Snapshot()
	return nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error {
	return nil
}
