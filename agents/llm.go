package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/llm/provider"
	"github.com/aixgo-dev/agentarch/internal/observability"
	"github.com/aixgo-dev/agentarch/pkg/config"
	"github.com/aixgo-dev/agentarch/pkg/security"
	"github.com/mudler/xlog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCallTimeout bounds a model call when no tool timeout is larger.
const DefaultCallTimeout = 60 * time.Second

// emptyRequestText stands in for the user turn when an agent runs without
// one, since providers reject empty conversations.
const emptyRequestText = "Handle the requests as specified in the System Instruction."

// LLMAgent is a model-backed leaf agent built from an AgentConfig.
type LLMAgent struct {
	agent.Base

	cfg      config.AgentConfig
	resolver provider.Resolver
	limiter  *security.CallLimiter
	timeouts *security.TimeoutPolicy
	tools    []Tool
}

// LLMOption configures an LLMAgent.
type LLMOption func(*LLMAgent)

// WithLimiter shares a call limiter between agents.
func WithLimiter(l *security.CallLimiter) LLMOption {
	return func(a *LLMAgent) {
		a.limiter = l
	}
}

// NewLLMAgent creates an agent from cfg. Models are resolved through
// resolver on every run so that one registry can serve a whole tree.
func NewLLMAgent(cfg *config.AgentConfig, resolver provider.Resolver, opts ...LLMOption) (*LLMAgent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil agent config", agent.ErrInvalidConfig)
	}
	if resolver == nil {
		return nil, fmt.Errorf("agent %s: %w: no provider resolver", cfg.Name, agent.ErrInvalidConfig)
	}
	a := &LLMAgent{
		Base:     agent.NewBase(cfg.Name, cfg.Description),
		cfg:      *cfg,
		resolver: resolver,
		timeouts: security.NewTimeoutPolicy(DefaultCallTimeout, cfg.ToolTimeouts),
		tools:    ResolveTools(cfg.Name, cfg.Tools),
	}
	if a.cfg.MaxTurns <= 0 {
		a.cfg.MaxTurns = config.DefaultMaxTurns
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// OutputKey returns the state key the agent's reply is stored under.
func (a *LLMAgent) OutputKey() string {
	return a.cfg.OutputKey
}

// Model returns the configured model identifier.
func (a *LLMAgent) Model() string {
	return a.cfg.Model
}

// Tools returns the resolved tools.
func (a *LLMAgent) Tools() []Tool {
	return a.tools
}

// Run renders the instruction, calls the model and emits the reply.
func (a *LLMAgent) Run(ctx context.Context, inv *agent.Invocation) error {
	system, err := RenderInstruction(a.cfg.Instruction, inv.State)
	if err != nil {
		return fmt.Errorf("agent %s: %w", a.Name(), err)
	}

	p, err := a.resolver.ForModel(a.cfg.Model)
	if err != nil {
		return fmt.Errorf("agent %s: resolve model %s: %w", a.Name(), a.cfg.Model, err)
	}

	builtins := make([]string, 0, len(a.tools))
	toolNames := make([]string, 0, len(a.tools))
	for _, t := range a.tools {
		toolNames = append(toolNames, t.Name)
		if t.Builtin != "" {
			builtins = append(builtins, t.Builtin)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeouts.CallTimeout(toolNames))
	defer cancel()

	ctx, span := observability.StartSpanWithOtel(ctx, fmt.Sprintf("agent.llm.%s", a.Name()),
		trace.WithAttributes(
			attribute.String("agent.name", a.Name()),
			attribute.String("agent.model", a.cfg.Model),
			attribute.String("invocation.id", inv.ID),
		),
	)
	defer span.End()

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx, a.cfg.Model); err != nil {
			span.RecordError(err)
			return fmt.Errorf("agent %s: %w", a.Name(), err)
		}
	}

	user := inv.UserText()
	if strings.TrimSpace(user) == "" {
		user = emptyRequestText
	}
	messages := append(historyMessages(inv.History, a.cfg.MaxTurns),
		provider.Message{Role: provider.RoleUser, Content: user})

	resp, err := p.CreateCompletion(ctx, provider.CompletionRequest{
		Model:        a.cfg.Model,
		System:       system,
		Messages:     messages,
		Temperature:  a.cfg.Temperature,
		BuiltinTools: builtins,
		Agent:        a.Name(),
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("agent %s: %w", a.Name(), err)
	}

	ev := agent.TextEvent(a.Name(), resp.Content)
	if a.cfg.OutputKey != "" {
		ev.Actions.StateDelta = map[string]any{a.cfg.OutputKey: resp.Content}
	}
	inv.Emit(ev)

	xlog.Debug("Agent replied", "agent", a.Name(), "invocation", inv.ID, "chars", len(resp.Content))
	return nil
}

// historyMessages converts prior session events into chat messages,
// keeping the last maxTurns exchanges. Consecutive messages from the same
// side are merged so that roles alternate.
func historyMessages(events []agent.Event, maxTurns int) []provider.Message {
	var msgs []provider.Message
	for _, ev := range events {
		if !ev.HasText() {
			continue
		}
		role := provider.RoleAssistant
		if ev.Author == agent.RoleUser {
			role = provider.RoleUser
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content += "\n\n" + ev.Text()
			continue
		}
		msgs = append(msgs, provider.Message{Role: role, Content: ev.Text()})
	}

	if limit := maxTurns * 2; len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	// the conversation must open with a user turn
	for len(msgs) > 0 && msgs[0].Role != provider.RoleUser {
		msgs = msgs[1:]
	}
	return msgs
}
