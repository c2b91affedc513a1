package architectures

import (
	"context"
	"testing"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/builder"
	"github.com/aixgo-dev/agentarch/internal/llm/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deps(mock *provider.MockProvider) builder.Deps {
	return builder.Deps{Resolver: provider.Single{Provider: mock}}
}

func run(t *testing.T, a agent.Agent, text string) *agent.Invocation {
	t.Helper()
	inv := agent.NewInvocation(nil, agent.NewTextContent(agent.RoleUser, text))
	require.NoError(t, a.Run(context.Background(), inv))
	return inv
}

func TestList(t *testing.T) {
	names := List()
	for _, want := range []string{
		"default", "sequential_example", "loop_example", "parallel_example",
		"routing_poc", "rlhf", "reflection", "tool_use", "react", "planning",
		"multi_agent", "pev", "blackboard", "episodic_semantic",
		"tree_of_thoughts", "mental_loop", "meta_controller", "graph",
		"ensemble", "dry_run", "reflexive_metacognitive",
		"cellular_automata", "cellular_step",
	} {
		assert.Contains(t, names, want)
	}
	assert.IsIncreasing(t, names)
}

func TestEveryEntryBuildsAndRuns(t *testing.T) {
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			mock := provider.NewMockProvider()
			a, err := Build(name, deps(mock))
			require.NoError(t, err)
			assert.NotEmpty(t, a.Name())
			run(t, a, "hello")
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty name is the default", func(t *testing.T) {
		node, err := Load("")
		require.NoError(t, err)
		require.NotNil(t, node.Agent)
		assert.Equal(t, "default_agent", node.Agent.Name)
		assert.Equal(t, 8, node.Agent.MaxTurns)
		assert.Equal(t, []string{"google_search"}, node.Agent.Tools)
	})

	for _, name := range []string{"missing", "../secrets", "catalog/default", "default.yaml"} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(name)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSequentialExample(t *testing.T) {
	mock := provider.NewMockProvider().
		Script("AnalyzerAgent", "needs a greeting").
		Script("ResponderAgent", "Hello!")
	a, err := Build("sequential_example", deps(mock))
	require.NoError(t, err)

	inv := run(t, a, "say hi")
	assert.Equal(t, "Hello!", inv.State.GetString("final_output", ""))
	assert.Equal(t, "Hello!", inv.FinalText())

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].System, "Analysis: needs a greeting")
}

func TestBlackboardEntry(t *testing.T) {
	mock := provider.NewMockProvider().
		Script("Controller", "MarketAnalyst", "SynthesisSpecialist").
		Script("MarketAnalyst", "demand is rising").
		Script("SynthesisSpecialist", "buy")
	a, err := Build("blackboard", deps(mock))
	require.NoError(t, err)

	inv := run(t, a, "should we expand?")
	assert.Equal(t, "buy", inv.FinalText())
	assert.Equal(t, 2, mock.CallsFor("Controller"))

	var synthesis string
	for _, c := range mock.Calls() {
		if c.Agent == "SynthesisSpecialist" {
			synthesis = c.System
		}
	}
	assert.Contains(t, synthesis, "Board:\n")
	assert.Contains(t, synthesis, "demand is rising")
}

func TestEveryEntryLoads(t *testing.T) {
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			node, err := Load(name)
			require.NoError(t, err)
			assert.NotEmpty(t, node.Name())
		})
	}
}

func TestPEVEntryStopsOnSuccess(t *testing.T) {
	mock := provider.NewMockProvider().
		Script("Verifier", `{"status": "RETRY"}`, `{"status": "SUCCESS", "final_result": "done"}`)
	a, err := Build("pev", deps(mock))
	require.NoError(t, err)

	inv := run(t, a, "do it")
	assert.Equal(t, 2, mock.CallsFor("Planner"))
	assert.Equal(t, "done", inv.State.GetString("result", ""))
	assert.False(t, inv.Escalated())
}

func TestRoutingEntry(t *testing.T) {
	mock := provider.NewMockProvider().
		Script("Analyzer", "SEARCH").
		Script("SearchAgent", "found it")
	a, err := Build("routing_poc", deps(mock))
	require.NoError(t, err)

	inv := run(t, a, "latest news")
	assert.Equal(t, "found it", inv.FinalText())
	assert.Zero(t, mock.CallsFor("DirectAgent"))

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{provider.ToolGoogleSearch}, calls[1].BuiltinTools)
}

func TestCellularStepEntry(t *testing.T) {
	a, err := Build("cellular_step", deps(provider.NewMockProvider()))
	require.NoError(t, err)

	inv := run(t, a, "go")
	assert.Contains(t, inv.FinalText(), "Grid stable after 19 steps")
}
