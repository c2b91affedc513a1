package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leaf struct {
	Base
	key string
}

func (l *leaf) Run(ctx context.Context, inv *Invocation) error { return nil }
func (l *leaf) OutputKey() string                               { return l.key }

type group struct {
	Base
	subs []Agent
}

func (g *group) Run(ctx context.Context, inv *Invocation) error { return nil }
func (g *group) SubAgents() []Agent                             { return g.subs }

func TestEmitAppliesStateDelta(t *testing.T) {
	inv := NewInvocation(nil, NewTextContent(RoleUser, "hi"))

	ev := inv.Emit(Event{
		Author:  "writer",
		Content: NewTextContent(RoleModel, "draft text"),
		Actions: EventActions{StateDelta: map[string]any{"draft": "draft text"}},
	})

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, inv.ID, ev.InvocationID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, "draft text", inv.State.GetString("draft", ""))
	assert.False(t, inv.Escalated())
	assert.Equal(t, "hi", inv.UserText())
}

func TestEmitEscalation(t *testing.T) {
	inv := NewInvocation(nil, nil)
	inv.Emit(Event{Author: "checker", Actions: EventActions{Escalate: true}})
	require.True(t, inv.Escalated())

	inv.ClearEscalation()
	assert.False(t, inv.Escalated())
}

func TestEmitSinkAndFinalText(t *testing.T) {
	var seen []string
	inv := NewInvocation(nil, nil, WithSink(func(e Event) { seen = append(seen, e.Author) }))

	inv.Emit(TextEvent("a", "first"))
	inv.Emit(TextEvent("b", "second"))
	inv.Emit(Event{Author: "c"})

	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, "second", inv.FinalText())
	assert.Len(t, inv.Events(), 3)
}

func TestStateGetString(t *testing.T) {
	s := NewState(map[string]any{
		"text":   "plain",
		"nested": map[string]any{"a": 1},
		"nil":    nil,
	})

	tests := []struct {
		key  string
		def  string
		want string
	}{
		{"text", "x", "plain"},
		{"nested", "x", `{"a":1}`},
		{"nil", "fallback", "fallback"},
		{"missing", "{}", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := s.GetString(tt.key, tt.def); got != tt.want {
				t.Errorf("GetString(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	s := NewState(nil)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Apply(map[string]any{"k": i})
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}

func TestFindAndOutputKey(t *testing.T) {
	writer := &leaf{Base: NewBase("Writer", ""), key: "draft"}
	root := &group{Base: NewBase("Root", "root"), subs: []Agent{
		&group{Base: NewBase("Inner", ""), subs: []Agent{writer}},
	}}

	found, ok := Find(root, "Writer")
	require.True(t, ok)
	assert.Equal(t, "draft", OutputKeyOf(found))
	assert.Equal(t, "", OutputKeyOf(root))

	_, ok = Find(root, "Missing")
	assert.False(t, ok)
}
