package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS memories (
		namespace TEXT NOT NULL,
		kind TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now')),
		PRIMARY KEY (namespace, kind)
	);
`

const (
	kindEpisodes = "episodes"
	kindGraph    = "graph"
)

// SQLiteStore keeps memories in a SQLite database, one JSON row per
// namespace and kind.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path. Use ":memory:"
// for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a :memory: database exists per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) load(ctx context.Context, namespace, kind string, v any) (bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM memories WHERE namespace = ? AND kind = ?`, namespace, kind).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query %s: %w", kind, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", kind, err)
	}
	return true, nil
}

func (s *SQLiteStore) save(ctx context.Context, namespace, kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (namespace, kind, data, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(namespace, kind) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		namespace, kind, string(data))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", kind, err)
	}
	return nil
}

// LoadEpisodes reads the namespace's episodes.
func (s *SQLiteStore) LoadEpisodes(ctx context.Context, namespace string) ([]string, error) {
	var episodes []string
	if _, err := s.load(ctx, namespace, kindEpisodes, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}

// SaveEpisodes replaces the namespace's episodes.
func (s *SQLiteStore) SaveEpisodes(ctx context.Context, namespace string, episodes []string) error {
	if episodes == nil {
		episodes = []string{}
	}
	return s.save(ctx, namespace, kindEpisodes, episodes)
}

// LoadGraph reads the namespace's graph.
func (s *SQLiteStore) LoadGraph(ctx context.Context, namespace string) (Graph, error) {
	g := Graph{}
	if _, err := s.load(ctx, namespace, kindGraph, &g); err != nil {
		return nil, err
	}
	return g, nil
}

// SaveGraph replaces the namespace's graph.
func (s *SQLiteStore) SaveGraph(ctx context.Context, namespace string, graph Graph) error {
	if graph == nil {
		graph = Graph{}
	}
	return s.save(ctx, namespace, kindGraph, graph)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
