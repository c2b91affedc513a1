package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aixgo-dev/agentarch"
	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/llm/provider"
	"github.com/aixgo-dev/agentarch/internal/observability"
	"github.com/aixgo-dev/agentarch/pkg/memory"
	"github.com/aixgo-dev/agentarch/pkg/runner"
	"github.com/aixgo-dev/agentarch/pkg/security"
	"github.com/aixgo-dev/agentarch/pkg/session"
	"github.com/mudler/xlog"
)

// app holds the resources shared by every runner a command creates.
type app struct {
	opts     *globalOptions
	backend  session.Backend
	sessions session.Manager
	memory   memory.Store
	resolver provider.Resolver
	limiter  *security.CallLimiter

	mu      sync.Mutex
	runners map[string]*runner.Runner
}

func openApp(ctx context.Context, opts *globalOptions) (*app, error) {
	if err := observability.InitFromEnv(); err != nil {
		xlog.Warn("Tracing disabled", "error", err)
	}

	cfg := session.ConfigFromEnv()
	if opts.sessionStore != "" {
		cfg.Store = opts.sessionStore
	}
	if opts.sessionDir != "" {
		cfg.BaseDir = opts.sessionDir
	}
	backend, err := session.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	mem, err := memory.Open(ctx, opts.memory)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	xlog.Debug("Stores opened", "sessions", cfg.Store, "memory", opts.memory)
	return &app{
		opts:     opts,
		backend:  backend,
		sessions: session.NewManager(backend),
		memory:   mem,
		resolver: provider.NewRegistry(provider.WithWrapper(provider.Instrument)),
		limiter:  security.NewCallLimiter(opts.rps, opts.burst),
		runners:  make(map[string]*runner.Runner),
	}, nil
}

func (a *app) options(onEvent agent.EventSink) []agentarch.Option {
	return []agentarch.Option{
		agentarch.WithResolver(a.resolver),
		agentarch.WithSessions(a.sessions),
		agentarch.WithMemory(a.memory),
		agentarch.WithLimiter(a.limiter),
		agentarch.WithModel(a.opts.model),
		agentarch.WithEventHandler(onEvent),
	}
}

// newRunner builds a fresh runner for ref.
func (a *app) newRunner(ref string, onEvent agent.EventSink) (*runner.Runner, error) {
	return agentarch.New(ref, a.options(onEvent)...)
}

// runnerFor returns a cached runner for ref.
func (a *app) runnerFor(ref string) (*runner.Runner, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.runners[ref]; ok {
		return r, nil
	}
	r, err := a.newRunner(ref, nil)
	if err != nil {
		return nil, err
	}
	a.runners[ref] = r
	return r, nil
}

func (a *app) Close(ctx context.Context) error {
	return errors.Join(
		a.sessions.Close(),
		a.memory.Close(),
		observability.Shutdown(ctx),
	)
}
