package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultFirestoreCollection holds one document per namespace.
const DefaultFirestoreCollection = "agentarch_memory"

// FirestoreConfig configures a FirestoreStore.
type FirestoreConfig struct {
	ProjectID       string
	Collection      string
	CredentialsFile string
}

type firestoreMemory struct {
	Episodes []string `firestore:"episodes"`
	// Graph is stored as JSON since relation names are arbitrary.
	Graph string `firestore:"graph"`
}

// FirestoreStore keeps memories in Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
	coll   *firestore.CollectionRef
}

// NewFirestoreStore creates a client for cfg.ProjectID.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project ID is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return NewFirestoreStoreFromClient(client, cfg.Collection), nil
}

// NewFirestoreStoreFromClient wraps an existing client.
func NewFirestoreStoreFromClient(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = DefaultFirestoreCollection
	}
	return &FirestoreStore{client: client, coll: client.Collection(collection)}
}

func (s *FirestoreStore) get(ctx context.Context, namespace string) (*firestoreMemory, error) {
	snap, err := s.coll.Doc(namespace).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &firestoreMemory{}, nil
		}
		return nil, fmt.Errorf("failed to get memory %s: %w", namespace, err)
	}
	var doc firestoreMemory
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode memory %s: %w", namespace, err)
	}
	return &doc, nil
}

// LoadEpisodes reads the namespace's episodes.
func (s *FirestoreStore) LoadEpisodes(ctx context.Context, namespace string) ([]string, error) {
	doc, err := s.get(ctx, namespace)
	if err != nil {
		return nil, err
	}
	return doc.Episodes, nil
}

// SaveEpisodes replaces the namespace's episodes.
func (s *FirestoreStore) SaveEpisodes(ctx context.Context, namespace string, episodes []string) error {
	if episodes == nil {
		episodes = []string{}
	}
	_, err := s.coll.Doc(namespace).Set(ctx, map[string]any{"episodes": episodes}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to save episodes %s: %w", namespace, err)
	}
	return nil
}

// LoadGraph reads the namespace's graph.
func (s *FirestoreStore) LoadGraph(ctx context.Context, namespace string) (Graph, error) {
	doc, err := s.get(ctx, namespace)
	if err != nil {
		return nil, err
	}
	g := Graph{}
	if doc.Graph == "" {
		return g, nil
	}
	if err := json.Unmarshal([]byte(doc.Graph), &g); err != nil {
		return nil, fmt.Errorf("failed to decode graph %s: %w", namespace, err)
	}
	return g, nil
}

// SaveGraph replaces the namespace's graph.
func (s *FirestoreStore) SaveGraph(ctx context.Context, namespace string, graph Graph) error {
	data, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	_, err = s.coll.Doc(namespace).Set(ctx, map[string]any{"graph": string(data)}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to save graph %s: %w", namespace, err)
	}
	return nil
}

// Close closes the client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
