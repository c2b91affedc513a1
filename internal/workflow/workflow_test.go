package workflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/agents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter emits its running count and escalates once it reaches stopAt.
func counter(name string, runs *int32, stopAt int32) agent.Agent {
	return agents.NewFuncAgent(name, func(_ context.Context, inv *agent.Invocation) error {
		n := atomic.AddInt32(runs, 1)
		ev := agent.TextEvent(name, name)
		ev.Actions.Escalate = stopAt > 0 && n >= stopAt
		inv.Emit(ev)
		return nil
	})
}

func authors(inv *agent.Invocation) []string {
	var out []string
	for _, ev := range inv.Events() {
		out = append(out, ev.Author)
	}
	return out
}

func TestSequential(t *testing.T) {
	t.Run("runs in order with output key chaining", func(t *testing.T) {
		seq := NewSequential("Pipeline", "",
			agents.NewStaticAgent("Draft", "v1", "draft"),
			agents.NewFuncAgent("Edit", func(_ context.Context, inv *agent.Invocation) error {
				inv.Emit(agent.TextEvent("Edit", inv.State.GetString("draft", "")+"+edited"))
				return nil
			}),
		)
		inv := agent.NewInvocation(nil, nil)
		require.NoError(t, seq.Run(context.Background(), inv))
		assert.Equal(t, []string{"Draft", "Edit"}, authors(inv))
		assert.Equal(t, "v1+edited", inv.FinalText())
	})

	t.Run("stops on escalation and leaves it set", func(t *testing.T) {
		var runs int32
		seq := NewSequential("S", "", counter("A", &runs, 1), agents.NewStaticAgent("B", "never", ""))
		inv := agent.NewInvocation(nil, nil)
		require.NoError(t, seq.Run(context.Background(), inv))
		assert.Equal(t, []string{"A"}, authors(inv))
		assert.True(t, inv.Escalated())
	})

	t.Run("stops on error", func(t *testing.T) {
		boom := errors.New("boom")
		seq := NewSequential("S", "",
			agents.NewFuncAgent("A", func(context.Context, *agent.Invocation) error { return boom }),
			agents.NewStaticAgent("B", "never", ""),
		)
		inv := agent.NewInvocation(nil, nil)
		err := seq.Run(context.Background(), inv)
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, inv.Events())
	})

	t.Run("append", func(t *testing.T) {
		seq := NewSequential("S", "")
		seq.Append(agents.NewStaticAgent("X", "x", ""))
		require.Len(t, seq.SubAgents(), 1)
	})
}

func TestLoop(t *testing.T) {
	tests := []struct {
		name          string
		maxIterations int
		stopAt        int32
		wantRuns      int32
	}{
		{name: "bounded without escalation", maxIterations: 3, wantRuns: 3},
		{name: "escalation before bound", maxIterations: 5, stopAt: 2, wantRuns: 2},
		{name: "unbounded until escalation", maxIterations: 0, stopAt: 7, wantRuns: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var runs int32
			loop := NewLoop("L", "", tt.maxIterations, counter("C", &runs, tt.stopAt))
			inv := agent.NewInvocation(nil, nil)
			require.NoError(t, loop.Run(context.Background(), inv))
			assert.Equal(t, tt.wantRuns, atomic.LoadInt32(&runs))
			assert.False(t, inv.Escalated(), "escalation must be cleared on exit")
		})
	}
}

func TestLoop_EscalationMidPassSkipsRest(t *testing.T) {
	var a, b int32
	loop := NewLoop("L", "", 4, counter("A", &a, 2), counter("B", &b, 0))
	inv := agent.NewInvocation(nil, nil)
	require.NoError(t, loop.Run(context.Background(), inv))
	assert.Equal(t, int32(2), a)
	assert.Equal(t, int32(1), b)
}

func TestLoop_NestedInSequentialContinues(t *testing.T) {
	var runs int32
	seq := NewSequential("Outer", "",
		NewLoop("Inner", "", 0, counter("C", &runs, 1)),
		agents.NewStaticAgent("After", "after", ""),
	)
	inv := agent.NewInvocation(nil, nil)
	require.NoError(t, seq.Run(context.Background(), inv))
	assert.Equal(t, "after", inv.FinalText())
}

func TestLoop_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32
	loop := NewLoop("L", "", 0, agents.NewFuncAgent("C", func(context.Context, *agent.Invocation) error {
		if atomic.AddInt32(&runs, 1) == 3 {
			cancel()
		}
		return nil
	}))
	err := loop.Run(ctx, agent.NewInvocation(nil, nil))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(3), runs)
}

func TestParallel(t *testing.T) {
	t.Run("shares state", func(t *testing.T) {
		par := NewParallel("Fan", "",
			agents.NewStaticAgent("A", "a", "a_out"),
			agents.NewStaticAgent("B", "b", "b_out"),
			agents.NewStaticAgent("C", "c", "c_out"),
		)
		inv := agent.NewInvocation(nil, nil)
		require.NoError(t, par.Run(context.Background(), inv))
		assert.Len(t, inv.Events(), 3)
		snap := inv.State.Snapshot()
		assert.Equal(t, "a", snap["a_out"])
		assert.Equal(t, "b", snap["b_out"])
		assert.Equal(t, "c", snap["c_out"])
	})

	t.Run("first error cancels siblings", func(t *testing.T) {
		boom := errors.New("boom")
		par := NewParallel("Fan", "",
			agents.NewFuncAgent("Fail", func(context.Context, *agent.Invocation) error { return boom }),
			agents.NewFuncAgent("Slow", func(ctx context.Context, _ *agent.Invocation) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(5 * time.Second):
					return nil
				}
			}),
		)
		start := time.Now()
		err := par.Run(context.Background(), agent.NewInvocation(nil, nil))
		assert.ErrorIs(t, err, boom)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
