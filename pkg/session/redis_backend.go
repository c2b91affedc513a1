package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every session key.
const DefaultRedisPrefix = "agentarch:session:"

// RedisBackend implements Backend using Redis.
// It provides distributed session storage suitable for multi-node deployments.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all session keys (default: "agentarch:session:").
	Prefix string
	// SessionTTL is the session expiry duration (0 = never expire).
	SessionTTL time.Duration
	// PoolSize is the connection pool size (default: 10).
	PoolSize int
}

// NewRedisBackend creates a new Redis storage backend.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisBackendFromClient(client, cfg.Prefix, cfg.SessionTTL), nil
}

// NewRedisBackendFromClient creates a Redis backend from an existing client.
// This is useful for testing with miniredis.
func NewRedisBackendFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Key helpers
func (b *RedisBackend) sessionKey(sessionID string) string {
	return b.prefix + "meta:" + sessionID
}

func (b *RedisBackend) eventsKey(sessionID string) string {
	return b.prefix + "events:" + sessionID
}

func (b *RedisBackend) appIndexKey(appName string) string {
	return b.prefix + "app:" + appName
}

func (b *RedisBackend) userIndexKey(appName, userID string) string {
	return b.prefix + "user:" + appName + ":" + userID
}

func (b *RedisBackend) checkOpen() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrStorageClosed
	}
	return nil
}

// Save writes the session header and indexes it by app and user.
func (b *RedisBackend) Save(ctx context.Context, sess *Session) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(sess.header())
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.sessionKey(sess.ID), data, b.ttl)
	pipe.SAdd(ctx, b.appIndexKey(sess.AppName), sess.ID)
	if sess.UserID != "" {
		pipe.SAdd(ctx, b.userIndexKey(sess.AppName, sess.UserID), sess.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (b *RedisBackend) loadHeader(ctx context.Context, sessionID string) (*Session, error) {
	data, err := b.client.Get(ctx, b.sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.State == nil {
		sess.State = map[string]any{}
	}
	return &sess, nil
}

// Load retrieves the session and its events.
func (b *RedisBackend) Load(ctx context.Context, sessionID string) (*Session, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	sess, err := b.loadHeader(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	data, err := b.client.LRange(ctx, b.eventsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	for _, d := range data {
		var ev agent.Event
		if err := json.Unmarshal([]byte(d), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		sess.Events = append(sess.Events, ev)
	}
	return sess, nil
}

// Delete removes a session, its events and its index entries.
func (b *RedisBackend) Delete(ctx context.Context, sessionID string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	sess, err := b.loadHeader(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}

	pipe := b.client.TxPipeline()
	pipe.Del(ctx, b.sessionKey(sessionID), b.eventsKey(sessionID))
	if sess != nil {
		pipe.SRem(ctx, b.appIndexKey(sess.AppName), sessionID)
		if sess.UserID != "" {
			pipe.SRem(ctx, b.userIndexKey(sess.AppName, sess.UserID), sessionID)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns the sessions of appName.
func (b *RedisBackend) List(ctx context.Context, appName string, opts ListOptions) ([]*Session, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	index := b.appIndexKey(appName)
	if opts.UserID != "" {
		index = b.userIndexKey(appName, opts.UserID)
	}
	ids, err := b.client.SMembers(ctx, index).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	// Redis sets are unordered.
	sort.Strings(ids)
	ids = paginate(ids, opts)

	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		sess, err := b.loadHeader(ctx, id)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				// Expired or deleted; drop the stale index entry.
				b.client.SRem(ctx, index, id)
				continue
			}
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// AppendEvent pushes ev onto the session's event list.
func (b *RedisBackend) AppendEvent(ctx context.Context, sessionID string, ev agent.Event) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	n, err := b.client.Exists(ctx, b.sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := b.client.RPush(ctx, b.eventsKey(sessionID), data).Err(); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	if b.ttl > 0 {
		// Expire failure is non-fatal; the next append retries it.
		_ = b.client.Expire(ctx, b.eventsKey(sessionID), b.ttl).Err()
	}
	return nil
}

// Close releases resources held by the backend.
func (b *RedisBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.client.Close()
}

// Ping checks if the Redis connection is alive.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	return b.client.Ping(ctx).Err()
}
