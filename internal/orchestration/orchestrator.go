// Package orchestration implements the custom control loops that sit
// above the built-in workflow agents: blackboard, meta-controller,
// tree-of-thoughts, memory-augmented and simulation-driven agents, and the
// cellular automata solvers.
//
// Orchestrators exchange data with their sub-agents only through session
// state. They read a sub-agent's reply from its output key and fall back
// to a fixed default when the reply is missing or malformed, so a
// misbehaving model never aborts a run.
package orchestration

import (
	"context"
	"fmt"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/observability"
	"github.com/aixgo-dev/agentarch/pkg/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Roles indexes an orchestrator's sub-agents by name.
type Roles struct {
	order  []agent.Agent
	byName map[string]agent.Agent
}

// NewRoles indexes subs.
func NewRoles(subs []agent.Agent) Roles {
	r := Roles{order: subs, byName: make(map[string]agent.Agent, len(subs))}
	for _, s := range subs {
		r.byName[s.Name()] = s
	}
	return r
}

// Get returns the named sub-agent.
func (r Roles) Get(name string) (agent.Agent, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Require returns the named sub-agent or a configuration error.
func (r Roles) Require(pattern, name string) (agent.Agent, error) {
	if a, ok := r.byName[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%s: %w: A '%s' agent must be defined in the config.", pattern, config.ErrMissingSubAgent, name)
}

// Except returns every sub-agent other than the named ones, by name.
func (r Roles) Except(names ...string) map[string]agent.Agent {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	out := make(map[string]agent.Agent, len(r.order))
	for _, a := range r.order {
		if !skip[a.Name()] {
			out[a.Name()] = a
		}
	}
	return out
}

// All returns the sub-agents in declaration order.
func (r Roles) All() []agent.Agent {
	return r.order
}

func startSpan(ctx context.Context, pattern, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("orchestration.pattern", pattern))
	return observability.StartSpanWithOtel(ctx, fmt.Sprintf("orchestration.%s.%s", pattern, name),
		trace.WithAttributes(attrs...))
}

// runSub runs a sub-agent, recording failures on span.
func runSub(ctx context.Context, span trace.Span, inv *agent.Invocation, a agent.Agent) error {
	if err := a.Run(ctx, inv); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%s: %w", a.Name(), err)
	}
	return nil
}

// outputOf reads the reply a sub-agent stored under its output key.
func outputOf(inv *agent.Invocation, a agent.Agent, def string) string {
	key := agent.OutputKeyOf(a)
	if key == "" {
		return def
	}
	return inv.State.GetString(key, def)
}

// setState publishes values to the sub-agents through a state delta.
func setState(inv *agent.Invocation, author string, delta map[string]any) {
	inv.Emit(agent.Event{Author: author, Actions: agent.EventActions{StateDelta: delta}})
}

func emitText(inv *agent.Invocation, author, text string) {
	inv.Emit(agent.TextEvent(author, text))
}
