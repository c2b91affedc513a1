package runner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/agents"
	"github.com/aixgo-dev/agentarch/internal/workflow"
	"github.com/aixgo-dev/agentarch/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPersistsTurns(t *testing.T) {
	root := workflow.NewSequential("pipeline", "",
		agents.NewStaticAgent("first", "one", "a"),
		agents.NewStaticAgent("second", "two", "b"),
	)
	sessions := session.NewManager(session.NewMemoryBackend())
	r := New(root, sessions, WithAppName("demo"))
	t.Cleanup(func() { _ = r.Close() })
	ctx := context.Background()

	res, err := r.Run(ctx, "alice", "", "hi")
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, "two", res.FinalText)
	assert.Len(t, res.Events, 2)
	assert.Equal(t, "one", res.State["a"])

	sess, err := sessions.Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "demo", sess.AppName)
	assert.Equal(t, "alice", sess.UserID)
	require.Len(t, sess.Events, 3)
	assert.Equal(t, agent.RoleUser, sess.Events[0].Author)
	assert.Equal(t, "hi", sess.Events[0].Text())
	assert.Equal(t, "two", sess.State["b"])

	again, err := r.Run(ctx, "alice", res.SessionID, "more")
	require.NoError(t, err)
	assert.Equal(t, res.SessionID, again.SessionID)

	sess, err = sessions.Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.Events, 6)
}

func TestRunSeesHistoryAndState(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	probe := agents.NewFuncAgent("probe", func(_ context.Context, inv *agent.Invocation) error {
		mu.Lock()
		seen = append(seen, len(inv.History))
		mu.Unlock()
		n, _ := inv.State.Get("count")
		count, _ := n.(int)
		inv.Emit(agent.Event{Author: "probe", Actions: agent.EventActions{StateDelta: map[string]any{"count": count + 1}}})
		return nil
	})
	r := New(probe, nil)
	ctx := context.Background()

	first, err := r.Run(ctx, "u", "fixed", "a")
	require.NoError(t, err)
	second, err := r.Run(ctx, "u", "fixed", "b")
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2}, seen)
	assert.Equal(t, 1, first.State["count"])
	assert.Equal(t, 2, second.State["count"])
}

func TestRunStreamsEvents(t *testing.T) {
	var got []string
	r := New(agents.NewStaticAgent("bot", "hello", ""), nil,
		WithEventHandler(func(ev agent.Event) { got = append(got, ev.Text()) }))

	_, err := r.Run(context.Background(), "u", "", "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, got)
}

func TestRunPersistsEventsBeforeFailure(t *testing.T) {
	boom := errors.New("boom")
	root := workflow.NewSequential("pipeline", "",
		agents.NewStaticAgent("ok", "partial", ""),
		agents.NewFuncAgent("bad", func(context.Context, *agent.Invocation) error { return boom }),
	)
	sessions := session.NewManager(session.NewMemoryBackend())
	r := New(root, sessions)
	ctx := context.Background()

	_, err := r.Run(ctx, "u", "s1", "x")
	require.ErrorIs(t, err, boom)

	sess, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sess.Events, 2)
	assert.Equal(t, "partial", sess.Events[1].Text())
}
