package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventSink receives every event emitted during an invocation.
type EventSink func(Event)

// Invocation is the context of one run of an agent tree: the user request,
// the session state and the ordered log of emitted events.
type Invocation struct {
	ID        string
	AppName   string
	UserID    string
	SessionID string

	// UserContent is the request that started the invocation.
	UserContent *Content

	// History holds the events of earlier invocations in the same session.
	History []Event

	State *State

	mu        sync.Mutex
	sink      EventSink
	events    []Event
	escalated bool
}

// InvocationOption configures an Invocation.
type InvocationOption func(*Invocation)

// WithSession tags the invocation with session coordinates.
func WithSession(appName, userID, sessionID string) InvocationOption {
	return func(inv *Invocation) {
		inv.AppName = appName
		inv.UserID = userID
		inv.SessionID = sessionID
	}
}

// WithHistory attaches prior session events.
func WithHistory(events []Event) InvocationOption {
	return func(inv *Invocation) {
		inv.History = events
	}
}

// WithSink registers a callback invoked for every emitted event.
func WithSink(sink EventSink) InvocationOption {
	return func(inv *Invocation) {
		inv.sink = sink
	}
}

// NewInvocation creates an invocation over state. A nil state starts empty.
func NewInvocation(state *State, user *Content, opts ...InvocationOption) *Invocation {
	if state == nil {
		state = NewState(nil)
	}
	inv := &Invocation{
		ID:          "e-" + uuid.NewString(),
		UserContent: user,
		State:       state,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// UserText returns the text of the user request, or "" if there is none.
func (inv *Invocation) UserText() string {
	return inv.UserContent.Text()
}

// Emit stamps ev, applies its state delta, records escalation and hands it
// to the sink. It returns the stamped event.
func (inv *Invocation) Emit(ev Event) Event {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.InvocationID = inv.ID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	inv.State.Apply(ev.Actions.StateDelta)
	if ev.Actions.Escalate {
		inv.escalated = true
	}

	inv.events = append(inv.events, ev)
	if inv.sink != nil {
		inv.sink(ev)
	}
	return ev
}

// Escalated reports whether an emitted event asked to stop the enclosing loop.
func (inv *Invocation) Escalated() bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.escalated
}

// ClearEscalation resets the escalation flag once a loop has honoured it.
func (inv *Invocation) ClearEscalation() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.escalated = false
}

// Events returns a copy of the events emitted so far.
func (inv *Invocation) Events() []Event {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]Event, len(inv.events))
	copy(out, inv.events)
	return out
}

// FinalText returns the text of the last event that carried text.
func (inv *Invocation) FinalText() string {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for i := len(inv.events) - 1; i >= 0; i-- {
		if inv.events[i].HasText() {
			return inv.events[i].Text()
		}
	}
	return ""
}
