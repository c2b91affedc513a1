// Package memory holds the long-lived memories used by the memory-driven
// architectures: an episodic log of interaction summaries and a knowledge
// graph of entity relations. Both can be persisted through a Store.
package memory

import (
	"fmt"
	"sync"
)

// DefaultRecall is the number of episodes exposed to a retriever.
const DefaultRecall = 5

// EpisodicMemory is an append-only log of interaction summaries.
type EpisodicMemory struct {
	mu       sync.RWMutex
	episodes []string
	max      int
}

// NewEpisodicMemory creates a log holding at most max episodes, oldest
// evicted first. A non-positive max keeps everything.
func NewEpisodicMemory(max int) *EpisodicMemory {
	return &EpisodicMemory{max: max}
}

// Add appends an episode.
func (m *EpisodicMemory) Add(episode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes = append(m.episodes, episode)
	if m.max > 0 && len(m.episodes) > m.max {
		m.episodes = m.episodes[len(m.episodes)-m.max:]
	}
}

// Recent returns up to n of the newest episodes, oldest first.
func (m *EpisodicMemory) Recent(n int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start := 0
	if n >= 0 && len(m.episodes) > n {
		start = len(m.episodes) - n
	}
	out := make([]string, len(m.episodes)-start)
	copy(out, m.episodes[start:])
	return out
}

// All returns every episode.
func (m *EpisodicMemory) All() []string {
	return m.Recent(-1)
}

// Len returns the number of episodes.
func (m *EpisodicMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.episodes)
}

// Restore replaces the log with episodes.
func (m *EpisodicMemory) Restore(episodes []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes = append([]string(nil), episodes...)
}

// Graph is the serialised form of a knowledge graph:
// subject -> relation -> objects.
type Graph map[string]map[string][]string

// Triplet is one (subject, relation, object) fact.
type Triplet [3]string

// ParseTriplet converts a decoded JSON value into a Triplet. Only lists of
// exactly three elements are accepted; non-string elements are formatted.
func ParseTriplet(v any) (Triplet, bool) {
	items, ok := v.([]any)
	if !ok || len(items) != 3 {
		return Triplet{}, false
	}
	var t Triplet
	for i, item := range items {
		if s, ok := item.(string); ok {
			t[i] = s
		} else {
			t[i] = fmt.Sprint(item)
		}
	}
	return t, true
}

// KnowledgeGraph stores relations between entities. Repeated facts are
// kept, matching the append semantics of the graph's JSON form.
type KnowledgeGraph struct {
	mu    sync.RWMutex
	graph Graph
}

// NewKnowledgeGraph creates an empty graph.
func NewKnowledgeGraph() *KnowledgeGraph {
	return &KnowledgeGraph{graph: make(Graph)}
}

// AddTriplet records subject -relation-> object.
func (g *KnowledgeGraph) AddTriplet(t Triplet) {
	g.mu.Lock()
	defer g.mu.Unlock()
	subject, relation, object := t[0], t[1], t[2]
	rels, ok := g.graph[subject]
	if !ok {
		rels = make(map[string][]string)
		g.graph[subject] = rels
	}
	rels[relation] = append(rels[relation], object)
}

// Related returns the relations of subject.
func (g *KnowledgeGraph) Related(subject string) map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return copyRelations(g.graph[subject])
}

// Snapshot returns a deep copy of the graph.
func (g *KnowledgeGraph) Snapshot() Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(Graph, len(g.graph))
	for subject, rels := range g.graph {
		out[subject] = copyRelations(rels)
	}
	return out
}

// Len returns the number of subjects.
func (g *KnowledgeGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.graph)
}

// Restore replaces the graph contents with snapshot.
func (g *KnowledgeGraph) Restore(snapshot Graph) {
	fresh := make(Graph, len(snapshot))
	for subject, rels := range snapshot {
		fresh[subject] = copyRelations(rels)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.graph = fresh
}

func copyRelations(rels map[string][]string) map[string][]string {
	if rels == nil {
		return nil
	}
	out := make(map[string][]string, len(rels))
	for rel, objs := range rels {
		out[rel] = append([]string(nil), objs...)
	}
	return out
}
