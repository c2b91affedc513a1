package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is prepended to every memory key.
const DefaultRedisPrefix = "agentarch:memory:"

// RedisStore keeps memories in Redis: episodes as a list and the graph
// as a JSON string.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(addr, prefix string) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStoreFromClient(client, prefix), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) episodesKey(namespace string) string {
	return s.prefix + "episodes:" + namespace
}

func (s *RedisStore) graphKey(namespace string) string {
	return s.prefix + "graph:" + namespace
}

// LoadEpisodes reads the episode list.
func (s *RedisStore) LoadEpisodes(ctx context.Context, namespace string) ([]string, error) {
	episodes, err := s.client.LRange(ctx, s.episodesKey(namespace), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	return episodes, nil
}

// SaveEpisodes replaces the episode list atomically.
func (s *RedisStore) SaveEpisodes(ctx context.Context, namespace string, episodes []string) error {
	key := s.episodesKey(namespace)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(episodes) > 0 {
			values := make([]any, len(episodes))
			for i, ep := range episodes {
				values[i] = ep
			}
			pipe.RPush(ctx, key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save episodes: %w", err)
	}
	return nil
}

// LoadGraph reads the graph.
func (s *RedisStore) LoadGraph(ctx context.Context, namespace string) (Graph, error) {
	data, err := s.client.Get(ctx, s.graphKey(namespace)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Graph{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get graph: %w", err)
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("unmarshal graph: %w", err)
	}
	return g, nil
}

// SaveGraph writes the graph.
func (s *RedisStore) SaveGraph(ctx context.Context, namespace string, graph Graph) error {
	data, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	if err := s.client.Set(ctx, s.graphKey(namespace), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set graph: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
