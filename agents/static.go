package agents

import (
	"context"

	"github.com/aixgo-dev/agentarch/agent"
)

// StaticAgent emits a fixed text. It stands in for a model in demos and
// tests.
type StaticAgent struct {
	agent.Base
	text      string
	outputKey string
}

// NewStaticAgent creates a StaticAgent. When outputKey is set the text is
// also stored in session state under it.
func NewStaticAgent(name, text, outputKey string) *StaticAgent {
	return &StaticAgent{
		Base:      agent.NewBase(name, "static response"),
		text:      text,
		outputKey: outputKey,
	}
}

// OutputKey returns the state key the text is stored under.
func (s *StaticAgent) OutputKey() string {
	return s.outputKey
}

// Run emits the fixed text.
func (s *StaticAgent) Run(ctx context.Context, inv *agent.Invocation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev := agent.TextEvent(s.Name(), s.text)
	if s.outputKey != "" {
		ev.Actions.StateDelta = map[string]any{s.outputKey: s.text}
	}
	inv.Emit(ev)
	return nil
}

// FuncAgent runs a plain function as an agent.
type FuncAgent struct {
	agent.Base
	fn func(context.Context, *agent.Invocation) error
}

// NewFuncAgent wraps fn.
func NewFuncAgent(name string, fn func(context.Context, *agent.Invocation) error) *FuncAgent {
	return &FuncAgent{Base: agent.NewBase(name, ""), fn: fn}
}

// Run calls the wrapped function.
func (f *FuncAgent) Run(ctx context.Context, inv *agent.Invocation) error {
	return f.fn(ctx, inv)
}
