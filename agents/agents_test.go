package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/llm/provider"
	"github.com/aixgo-dev/agentarch/pkg/config"
	"github.com/aixgo-dev/agentarch/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInvocation(text string, state map[string]any) *agent.Invocation {
	return agent.NewInvocation(agent.NewState(state), agent.NewTextContent(agent.RoleUser, text))
}

func TestRenderInstruction(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		state       map[string]any
		want        string
		wantErr     bool
	}{
		{name: "no placeholders", instruction: "plain", want: "plain"},
		{name: "required present", instruction: "Draft: {draft}", state: map[string]any{"draft": "d1"}, want: "Draft: d1"},
		{name: "required missing", instruction: "Draft: {draft}", wantErr: true},
		{name: "optional missing", instruction: "Prior: [{prior?}]", want: "Prior: []"},
		{name: "optional present", instruction: "{prior?}", state: map[string]any{"prior": "x"}, want: "x"},
		{name: "json value", instruction: "Board: {blackboard}", state: map[string]any{"blackboard": map[string]any{"results": map[string]any{}}}, want: `Board: {"results":{}}`},
		{name: "nil value", instruction: "[{k}]", state: map[string]any{"k": nil}, want: "[]"},
		{name: "json literal untouched", instruction: `Reply {"status": "SUCCESS"}`, want: `Reply {"status": "SUCCESS"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderInstruction(tt.instruction, agent.NewState(tt.state))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMissingStateKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveTools(t *testing.T) {
	got := ResolveTools("a", []string{"google_search", "teleport", "code_executor"})
	require.Len(t, got, 2)
	assert.Equal(t, provider.ToolGoogleSearch, got[0].Builtin)
	assert.Equal(t, provider.ToolCodeExecutor, got[1].Builtin)

	RegisterTool(Tool{Name: "calculator", Description: "adds numbers"})
	_, ok := LookupTool("calculator")
	assert.True(t, ok)
	assert.Contains(t, ToolNames(), "calculator")
}

func TestLLMAgent_Run(t *testing.T) {
	mock := provider.NewMockProvider().Script("Writer", "a draft")
	cfg := &config.AgentConfig{
		Name:        "Writer",
		Model:       "mock-model",
		Instruction: "Write about {topic}.",
		OutputKey:   "draft",
		Tools:       []string{"google_search", "unknown_tool"},
		Temperature: 0.3,
	}
	a, err := NewLLMAgent(cfg, provider.Single{Provider: mock}, WithLimiter(security.NewCallLimiter(0, 1)))
	require.NoError(t, err)
	assert.Equal(t, "draft", agent.OutputKeyOf(a))
	assert.Len(t, a.Tools(), 1)

	inv := newInvocation("go", map[string]any{"topic": "otters"})
	require.NoError(t, a.Run(context.Background(), inv))

	assert.Equal(t, "a draft", inv.State.GetString("draft", ""))
	assert.Equal(t, "a draft", inv.FinalText())

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Write about otters.", calls[0].System)
	assert.Equal(t, []string{provider.ToolGoogleSearch}, calls[0].BuiltinTools)
	assert.Equal(t, 0.3, calls[0].Temperature)
	assert.Equal(t, "go", calls[0].LastUserMessage())
}

func TestLLMAgent_Errors(t *testing.T) {
	t.Run("missing state key", func(t *testing.T) {
		a, err := NewLLMAgent(&config.AgentConfig{Name: "A", Model: "mock", Instruction: "{nope}"},
			provider.Single{Provider: provider.NewMockProvider()})
		require.NoError(t, err)
		err = a.Run(context.Background(), newInvocation("x", nil))
		assert.ErrorIs(t, err, ErrMissingStateKey)
	})

	t.Run("provider failure propagates", func(t *testing.T) {
		boom := errors.New("quota")
		mock := provider.NewMockProvider().Fail("A", boom)
		a, err := NewLLMAgent(&config.AgentConfig{Name: "A", Model: "mock", Instruction: "i"}, provider.Single{Provider: mock})
		require.NoError(t, err)
		inv := newInvocation("x", nil)
		assert.ErrorIs(t, a.Run(context.Background(), inv), boom)
		assert.Empty(t, inv.Events())
	})

	t.Run("nil resolver", func(t *testing.T) {
		_, err := NewLLMAgent(&config.AgentConfig{Name: "A"}, nil)
		assert.ErrorIs(t, err, agent.ErrInvalidConfig)
	})

	t.Run("empty user text replaced", func(t *testing.T) {
		mock := provider.NewMockProvider()
		a, err := NewLLMAgent(&config.AgentConfig{Name: "A", Model: "mock", Instruction: "i"}, provider.Single{Provider: mock})
		require.NoError(t, err)
		require.NoError(t, a.Run(context.Background(), newInvocation("", nil)))
		assert.Equal(t, emptyRequestText, mock.Calls()[0].LastUserMessage())
	})
}

func TestHistoryMessages(t *testing.T) {
	events := []agent.Event{
		agent.TextEvent("Critic", "orphan reply"),
		agent.TextEvent(agent.RoleUser, "q1"),
		agent.TextEvent("Drafter", "a1"),
		agent.TextEvent("Critic", "a1b"),
		{Author: "Checker"},
		agent.TextEvent(agent.RoleUser, "q2"),
		agent.TextEvent("Drafter", "a2"),
	}

	t.Run("merges and drops leading assistant", func(t *testing.T) {
		got := historyMessages(events, 8)
		require.Len(t, got, 4)
		assert.Equal(t, provider.Message{Role: provider.RoleUser, Content: "q1"}, got[0])
		assert.Equal(t, provider.Message{Role: provider.RoleAssistant, Content: "a1\n\na1b"}, got[1])
	})

	t.Run("caps to max turns", func(t *testing.T) {
		got := historyMessages(events, 1)
		require.Len(t, got, 2)
		assert.Equal(t, "q2", got[0].Content)
		assert.Equal(t, "a2", got[1].Content)
	})
}

func TestLLMAgent_UsesHistory(t *testing.T) {
	mock := provider.NewMockProvider()
	a, err := NewLLMAgent(&config.AgentConfig{Name: "A", Model: "mock", Instruction: "i", MaxTurns: 1}, provider.Single{Provider: mock})
	require.NoError(t, err)

	inv := agent.NewInvocation(nil, agent.NewTextContent(agent.RoleUser, "now"),
		agent.WithHistory([]agent.Event{
			agent.TextEvent(agent.RoleUser, "old"),
			agent.TextEvent("A", "old reply"),
			agent.TextEvent(agent.RoleUser, "recent"),
			agent.TextEvent("A", "recent reply"),
		}))
	require.NoError(t, a.Run(context.Background(), inv))

	msgs := mock.Calls()[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "recent", msgs[0].Content)
	assert.Equal(t, "now", msgs[2].Content)
}

func TestLLMAgent_SameTurnRepliesReachThroughState(t *testing.T) {
	mock := provider.NewMockProvider().Script("First", "first reply")
	first, err := NewLLMAgent(&config.AgentConfig{Name: "First", Model: "mock", Instruction: "i", OutputKey: "first"}, provider.Single{Provider: mock})
	require.NoError(t, err)
	second, err := NewLLMAgent(&config.AgentConfig{Name: "Second", Model: "mock", Instruction: "Earlier: {first}"}, provider.Single{Provider: mock})
	require.NoError(t, err)

	inv := newInvocation("go", nil)
	require.NoError(t, first.Run(context.Background(), inv))
	require.NoError(t, second.Run(context.Background(), inv))

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Earlier: first reply", calls[1].System)
	require.Len(t, calls[1].Messages, 1)
	assert.Equal(t, "go", calls[1].Messages[0].Content)
}

func TestStaticAgent(t *testing.T) {
	s := NewStaticAgent("Draft", "Draft: placeholder", "draft")
	inv := newInvocation("", nil)
	require.NoError(t, s.Run(context.Background(), inv))
	assert.Equal(t, "Draft: placeholder", inv.FinalText())
	assert.Equal(t, "Draft: placeholder", inv.State.GetString("draft", ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx, inv), context.Canceled)
}

func TestFuncAgent(t *testing.T) {
	f := NewFuncAgent("F", func(_ context.Context, inv *agent.Invocation) error {
		inv.Emit(agent.TextEvent("F", "done"))
		return nil
	})
	inv := newInvocation("", nil)
	require.NoError(t, f.Run(context.Background(), inv))
	assert.Equal(t, "done", inv.FinalText())
}
