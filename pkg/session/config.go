package session

import (
	"fmt"
	"os"
	"time"
)

// Store names accepted by Open.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config selects and configures a storage backend.
type Config struct {
	// Store specifies the storage backend type.
	// Options: "memory", "file", "redis"
	// Default: "memory"
	Store string `yaml:"store"`

	// BaseDir is the base directory for file-based storage.
	// Default: ~/.agentarch/sessions
	BaseDir string `yaml:"base_dir"`

	// RedisAddr is the Redis address for the redis store.
	RedisAddr string `yaml:"redis_addr"`

	// TTL expires redis sessions; zero keeps them forever.
	TTL time.Duration `yaml:"ttl"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{Store: StoreMemory}
}

// ConfigFromEnv reads SESSION_STORE, SESSION_DIR, REDIS_ADDR and
// SESSION_TTL.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("SESSION_STORE"); v != "" {
		cfg.Store = v
	}
	cfg.BaseDir = os.Getenv("SESSION_DIR")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if d, err := time.ParseDuration(os.Getenv("SESSION_TTL")); err == nil {
		cfg.TTL = d
	}
	return cfg
}

// Open creates the backend cfg names.
func Open(cfg Config) (Backend, error) {
	switch cfg.Store {
	case "", StoreMemory:
		return NewMemoryBackend(), nil
	case StoreFile:
		return NewFileBackend(cfg.BaseDir)
	case StoreRedis:
		return NewRedisBackend(RedisConfig{Addr: cfg.RedisAddr, SessionTTL: cfg.TTL})
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}
