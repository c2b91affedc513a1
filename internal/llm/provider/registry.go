package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory creates a provider from loosely typed settings. Factories fall
// back to environment variables for credentials.
type Factory func(config map[string]any) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory registers a provider factory under name
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Factories returns the registered provider names, sorted
func Factories() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create instantiates the named provider
func Create(name string, config map[string]any) (Provider, error) {
	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider '%s' not registered", name)
	}
	return f(config)
}

// DetectProvider maps a model identifier to a provider name
func DetectProvider(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "mock"):
		return "mock"
	case strings.HasPrefix(m, "bedrock/"),
		strings.HasPrefix(m, "anthropic."),
		strings.HasPrefix(m, "amazon."),
		strings.HasPrefix(m, "meta."),
		strings.HasPrefix(m, "mistral."),
		strings.HasPrefix(m, "us."),
		strings.HasPrefix(m, "eu."):
		return "bedrock"
	case strings.HasPrefix(m, "claude"):
		return "anthropic"
	case strings.HasPrefix(m, "gpt-"),
		strings.HasPrefix(m, "chatgpt"),
		strings.HasPrefix(m, "o1"),
		strings.HasPrefix(m, "o3"),
		strings.HasPrefix(m, "o4"):
		return "openai"
	default:
		// gemini-*, models/gemini-* and anything unrecognised
		return "gemini"
	}
}

// Resolver returns the provider serving a model
type Resolver interface {
	ForModel(model string) (Provider, error)
}

// Registry lazily creates and caches one provider per provider name.
type Registry struct {
	mu        sync.Mutex
	providers map[string]Provider
	config    map[string]map[string]any
	wrap      func(Provider) Provider
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithProvider pins a provider instance for name, bypassing its factory
func WithProvider(name string, p Provider) RegistryOption {
	return func(r *Registry) {
		r.providers[name] = p
	}
}

// WithProviderConfig passes settings to the named provider's factory
func WithProviderConfig(name string, config map[string]any) RegistryOption {
	return func(r *Registry) {
		r.config[name] = config
	}
}

// WithWrapper decorates every provider the registry creates
func WithWrapper(wrap func(Provider) Provider) RegistryOption {
	return func(r *Registry) {
		r.wrap = wrap
	}
}

// NewRegistry creates a new provider registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		config:    make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ForModel returns the provider for model, creating it on first use
func (r *Registry) ForModel(model string) (Provider, error) {
	return r.Get(DetectProvider(model))
}

// Get returns the named provider, creating it on first use
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	p, err := Create(name, r.config[name])
	if err != nil {
		return nil, err
	}
	if r.wrap != nil {
		p = r.wrap(p)
	}
	r.providers[name] = p
	return p, nil
}

// Single is a Resolver that serves every model with one provider.
type Single struct {
	Provider Provider
}

// ForModel returns the wrapped provider
func (s Single) ForModel(string) (Provider, error) {
	return s.Provider, nil
}
