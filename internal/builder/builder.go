// Package builder turns definition trees into runnable agents.
//
// Leaves become model-backed agents; sequential, loop and parallel nodes
// become workflow agents; every other architecture is resolved through a
// registry of pattern factories.
package builder

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/agents"
	"github.com/aixgo-dev/agentarch/internal/llm/provider"
	"github.com/aixgo-dev/agentarch/internal/orchestration"
	"github.com/aixgo-dev/agentarch/internal/workflow"
	"github.com/aixgo-dev/agentarch/pkg/config"
	"github.com/aixgo-dev/agentarch/pkg/memory"
	"github.com/aixgo-dev/agentarch/pkg/security"
	"github.com/mudler/xlog"
)

// Deps are the shared resources agents are built with.
type Deps struct {
	// Resolver picks the provider for each model. Defaults to a fresh
	// provider.Registry.
	Resolver provider.Resolver
	// Limiter throttles model calls. Nil disables throttling.
	Limiter *security.CallLimiter
	// Memory backs the memory-driven patterns. Nil keeps memories in
	// process.
	Memory memory.Store
}

// Factory builds a pattern agent from its workflow record and already
// built sub-agents.
type Factory func(b *Builder, wf *config.WorkflowConfig, subs []agent.Agent) (agent.Agent, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register adds a pattern factory and makes arch a valid workflow
// architecture.
func Register(arch string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if f == nil {
		panic("builder: Register factory is nil")
	}
	if _, dup := registry[arch]; dup {
		panic("builder: Register called twice for pattern " + arch)
	}
	registry[arch] = f
	config.RegisterArchitecture(arch)
}

// Patterns returns the registered pattern names, sorted.
func Patterns() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(arch string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[arch]
	return f, ok
}

// Builder builds agent trees against a fixed set of dependencies.
type Builder struct {
	deps Deps
}

// New creates a Builder.
func New(deps Deps) *Builder {
	if deps.Resolver == nil {
		deps.Resolver = provider.NewRegistry()
	}
	return &Builder{deps: deps}
}

// Deps returns the builder's dependencies.
func (b *Builder) Deps() Deps {
	return b.deps
}

// Build builds node with deps.
func Build(node *config.Node, deps Deps) (agent.Agent, error) {
	return New(deps).Build(node)
}

// Build recursively builds node.
func (b *Builder) Build(node *config.Node) (agent.Agent, error) {
	if node == nil || (node.Agent == nil && node.Workflow == nil) {
		return nil, fmt.Errorf("build: %w: empty node", config.ErrMissingField)
	}
	if node.Agent != nil {
		return b.buildLeaf(node.Agent)
	}
	return b.buildWorkflow(node.Workflow)
}

func (b *Builder) buildLeaf(cfg *config.AgentConfig) (agent.Agent, error) {
	var opts []agents.LLMOption
	if b.deps.Limiter != nil {
		opts = append(opts, agents.WithLimiter(b.deps.Limiter))
	}
	a, err := agents.NewLLMAgent(cfg, b.deps.Resolver, opts...)
	if err != nil {
		return nil, fmt.Errorf("build agent %s: %w", cfg.Name, err)
	}
	return a, nil
}

func (b *Builder) buildWorkflow(wf *config.WorkflowConfig) (agent.Agent, error) {
	subs := make([]agent.Agent, 0, len(wf.SubAgents))
	for i := range wf.SubAgents {
		sub, err := b.Build(&wf.SubAgents[i])
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	switch wf.Architecture {
	case config.ArchSequential:
		return workflow.NewSequential(wf.Name, wf.Description, subs...), nil
	case config.ArchParallel:
		return workflow.NewParallel(wf.Name, wf.Description, subs...), nil
	case config.ArchLoop:
		return buildLoop(wf, subs), nil
	}

	pattern := wf.EffectivePattern()
	factory, ok := lookup(pattern)
	if !ok {
		return nil, fmt.Errorf("build workflow %s: %w", wf.Name, &config.UnknownArchitectureError{Name: pattern})
	}
	a, err := factory(b, wf, subs)
	if err != nil {
		return nil, fmt.Errorf("build workflow %s: %w", wf.Name, err)
	}
	xlog.Debug("Built pattern agent", "agent", wf.Name, "pattern", pattern, "sub_agents", len(subs))
	return a, nil
}

// buildLoop applies the plan-execute-verify rule: when the first
// sub-agent is a sequential pipeline, a StopChecker is appended to it so
// a successful verification ends the loop.
func buildLoop(wf *config.WorkflowConfig, subs []agent.Agent) agent.Agent {
	if len(subs) > 0 {
		if seq, ok := subs[0].(*workflow.Sequential); ok {
			seq.Append(orchestration.NewStopChecker(orchestration.StopCheckerName))
		}
	}
	return workflow.NewLoop(wf.Name, wf.Description, wf.MaxIterations, subs...)
}

// Bank returns a memory bank for wf, namespaced by the "namespace" option
// or the workflow name.
func (b *Builder) Bank(wf *config.WorkflowConfig) *memory.Bank {
	return memory.NewBank(b.deps.Memory, wf.StringOption("namespace", wf.Name))
}
