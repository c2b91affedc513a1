// Package agentarch runs the built-in catalog of agent architectures, or
// custom definition files, as session-backed agents.
package agentarch

import (
	"context"
	"fmt"
	"os"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/architectures"
	"github.com/aixgo-dev/agentarch/internal/builder"
	"github.com/aixgo-dev/agentarch/internal/llm/provider"
	"github.com/aixgo-dev/agentarch/pkg/config"
	"github.com/aixgo-dev/agentarch/pkg/memory"
	"github.com/aixgo-dev/agentarch/pkg/runner"
	"github.com/aixgo-dev/agentarch/pkg/security"
	"github.com/aixgo-dev/agentarch/pkg/session"
)

// FileReader interface for reading files (testable)
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// OSFileReader implements FileReader using os.ReadFile
type OSFileReader struct{}

func (r *OSFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path) // #nosec G304 - path is supplied by the operator
}

// ConfigLoader loads definition files through a FileReader
type ConfigLoader struct {
	fileReader FileReader
	loader     *config.Loader
}

// NewConfigLoader creates a new config loader with default security limits
func NewConfigLoader(fr FileReader) *ConfigLoader {
	if fr == nil {
		fr = &OSFileReader{}
	}
	return &ConfigLoader{fileReader: fr, loader: config.NewLoader()}
}

// LoadConfig reads, validates and returns the definition at configPath
func (cl *ConfigLoader) LoadConfig(configPath string) (*config.Node, error) {
	data, err := cl.fileReader.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	node, err := cl.loader.Parse(data, config.FormatFor(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
	}
	return node, nil
}

// Resolve returns the definition named by ref: a catalog entry when one
// exists under that name, otherwise a definition file path.
func (cl *ConfigLoader) Resolve(ref string) (*config.Node, error) {
	if _, err := architectures.Source(ref); err == nil {
		return architectures.Load(ref)
	}
	return cl.LoadConfig(ref)
}

// Architectures lists the catalog entries.
func Architectures() []string {
	return architectures.List()
}

type options struct {
	fileReader FileReader
	resolver   provider.Resolver
	sessions   session.Manager
	memory     memory.Store
	limiter    *security.CallLimiter
	appName    string
	model      string
	onEvent    agent.EventSink
}

// Option configures New.
type Option func(*options)

// WithFileReader reads definition files through fr.
func WithFileReader(fr FileReader) Option {
	return func(o *options) { o.fileReader = fr }
}

// WithResolver routes model calls through r.
func WithResolver(r provider.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithSessions persists turns in m.
func WithSessions(m session.Manager) Option {
	return func(o *options) { o.sessions = m }
}

// WithMemory backs memory-bearing architectures with s.
func WithMemory(s memory.Store) Option {
	return func(o *options) { o.memory = s }
}

// WithLimiter throttles model calls.
func WithLimiter(l *security.CallLimiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithAppName files sessions under name.
func WithAppName(name string) Option {
	return func(o *options) { o.appName = name }
}

// WithModel replaces the model of every agent in the tree.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithEventHandler streams emitted events to fn.
func WithEventHandler(fn agent.EventSink) Option {
	return func(o *options) { o.onEvent = fn }
}

// New resolves ref, builds its agent tree and returns a runner for it.
func New(ref string, opts ...Option) (*runner.Runner, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	node, err := NewConfigLoader(o.fileReader).Resolve(ref)
	if err != nil {
		return nil, err
	}
	if o.model != "" {
		OverrideModel(node, o.model)
	}

	root, err := builder.Build(node, builder.Deps{
		Resolver: o.resolver,
		Limiter:  o.limiter,
		Memory:   o.memory,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", ref, err)
	}

	appName := o.appName
	if appName == "" {
		appName = root.Name()
	}
	return runner.New(root, o.sessions,
		runner.WithAppName(appName),
		runner.WithEventHandler(o.onEvent),
	), nil
}

// Run executes a single turn of ref in a fresh session and returns the
// final text.
func Run(ctx context.Context, ref, text string, opts ...Option) (string, error) {
	r, err := New(ref, opts...)
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	res, err := r.Run(ctx, "user", "", text)
	if err != nil {
		return "", err
	}
	return res.FinalText, nil
}

// OverrideModel sets model on every agent in the tree rooted at node.
func OverrideModel(node *config.Node, model string) {
	if node == nil {
		return
	}
	if node.Agent != nil {
		node.Agent.Model = model
		return
	}
	for i := range node.Workflow.SubAgents {
		OverrideModel(&node.Workflow.SubAgents[i], model)
	}
}
