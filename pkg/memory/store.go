package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mudler/xlog"
)

// Store persists memories per namespace. A namespace is usually the name
// of the agent that owns the memory. Loading a namespace that was never
// saved returns empty values and no error.
type Store interface {
	LoadEpisodes(ctx context.Context, namespace string) ([]string, error)
	SaveEpisodes(ctx context.Context, namespace string, episodes []string) error
	LoadGraph(ctx context.Context, namespace string) (Graph, error)
	SaveGraph(ctx context.Context, namespace string, graph Graph) error
	Close() error
}

// Open creates a store from a location string:
//
//	memory                   in-process (default)
//	redis://host:port        Redis
//	sqlite:path/to/file.db   SQLite
//	firestore:project-id     Cloud Firestore
func Open(ctx context.Context, location string) (Store, error) {
	scheme, rest, _ := strings.Cut(location, ":")
	switch scheme {
	case "", "memory":
		return NewInMemoryStore(), nil
	case "redis":
		return NewRedisStore(strings.TrimPrefix(rest, "//"), DefaultRedisPrefix)
	case "sqlite":
		return NewSQLiteStore(rest)
	case "firestore":
		return NewFirestoreStore(ctx, FirestoreConfig{ProjectID: rest})
	default:
		return nil, fmt.Errorf("unknown memory store %q", location)
	}
}

// Bank couples an episodic log and a knowledge graph with the store that
// persists them. The store is read on first use.
type Bank struct {
	Namespace string
	Episodes  *EpisodicMemory
	Graph     *KnowledgeGraph

	store  Store
	mu     sync.Mutex
	loaded bool
}

// NewBank creates a bank for namespace. A nil store keeps memories in
// process only.
func NewBank(store Store, namespace string) *Bank {
	return &Bank{
		Namespace: namespace,
		Episodes:  NewEpisodicMemory(0),
		Graph:     NewKnowledgeGraph(),
		store:     store,
	}
}

// Load reads the persisted memories once.
func (b *Bank) Load(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loaded || b.store == nil {
		return nil
	}

	episodes, err := b.store.LoadEpisodes(ctx, b.Namespace)
	if err != nil {
		return fmt.Errorf("load episodes for %s: %w", b.Namespace, err)
	}
	graph, err := b.store.LoadGraph(ctx, b.Namespace)
	if err != nil {
		return fmt.Errorf("load graph for %s: %w", b.Namespace, err)
	}
	b.Episodes.Restore(episodes)
	b.Graph.Restore(graph)
	b.loaded = true

	xlog.Debug("Memory loaded", "namespace", b.Namespace, "episodes", len(episodes), "subjects", len(graph))
	return nil
}

// Save writes the current memories.
func (b *Bank) Save(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	if err := b.store.SaveEpisodes(ctx, b.Namespace, b.Episodes.All()); err != nil {
		return fmt.Errorf("save episodes for %s: %w", b.Namespace, err)
	}
	if err := b.store.SaveGraph(ctx, b.Namespace, b.Graph.Snapshot()); err != nil {
		return fmt.Errorf("save graph for %s: %w", b.Namespace, err)
	}
	return nil
}
