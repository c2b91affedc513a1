// Package runner executes an agent tree against a persistent session:
// it loads the session, runs the root agent with the session's state and
// history, and appends every emitted event back to the session.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/observability"
	metrics "github.com/aixgo-dev/agentarch/pkg/observability"
	"github.com/aixgo-dev/agentarch/pkg/session"
	"github.com/google/uuid"
	"github.com/mudler/xlog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultAppName tags sessions created without an explicit app name.
const DefaultAppName = "agentarch"

// Runner binds a root agent to a session manager.
type Runner struct {
	appName  string
	root     agent.Agent
	sessions session.Manager
	onEvent  agent.EventSink
}

// Option configures a Runner.
type Option func(*Runner)

// WithAppName sets the app name sessions are filed under.
func WithAppName(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.appName = name
		}
	}
}

// WithEventHandler streams events to fn as they are emitted.
func WithEventHandler(fn agent.EventSink) Option {
	return func(r *Runner) {
		r.onEvent = fn
	}
}

// Result is the outcome of one turn.
type Result struct {
	SessionID string
	Events    []agent.Event
	FinalText string
	State     map[string]any
}

// New creates a runner. A nil manager keeps sessions in memory.
func New(root agent.Agent, sessions session.Manager, opts ...Option) *Runner {
	if sessions == nil {
		sessions = session.NewManager(session.NewMemoryBackend())
	}
	r := &Runner{appName: DefaultAppName, root: root, sessions: sessions}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Agent returns the root agent.
func (r *Runner) Agent() agent.Agent {
	return r.root
}

// Sessions returns the session manager.
func (r *Runner) Sessions() session.Manager {
	return r.sessions
}

// Run executes one user turn. An empty sessionID starts a new session.
// Events emitted before a failure are still persisted.
func (r *Runner) Run(ctx context.Context, userID, sessionID, text string) (*Result, error) {
	ctx, span := observability.StartSpanWithOtel(ctx, "runner.run",
		trace.WithAttributes(
			attribute.String("agent.name", r.root.Name()),
			attribute.String("session.app", r.appName),
		),
	)
	defer span.End()

	sess, err := r.sessions.GetOrCreate(ctx, r.appName, userID, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("runner: %w", err)
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))
	ctx = session.ContextWithSession(ctx, sess)

	history := append([]agent.Event(nil), sess.Events...)
	state := agent.NewState(sess.State)

	content := agent.NewTextContent(agent.RoleUser, text)
	userEvent := agent.Event{
		ID:        uuid.NewString(),
		Author:    agent.RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	opts := []agent.InvocationOption{
		agent.WithSession(r.appName, userID, sess.ID),
		agent.WithHistory(history),
	}
	if r.onEvent != nil {
		opts = append(opts, agent.WithSink(r.onEvent))
	}
	inv := agent.NewInvocation(state, content, opts...)
	userEvent.InvocationID = inv.ID

	if err := r.sessions.AppendEvent(ctx, sess, userEvent); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("runner: %w", err)
	}

	start := time.Now()
	runErr := r.root.Run(ctx, inv)
	metrics.RecordAgentRun(r.root.Name(), runErr, time.Since(start))

	events := inv.Events()
	var persistErr error
	for _, ev := range events {
		if err := r.sessions.AppendEvent(ctx, sess, ev); err != nil {
			persistErr = err
			break
		}
	}

	span.SetAttributes(attribute.Int("runner.events", len(events)))
	if err := errors.Join(runErr, persistErr); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		xlog.Error("Run failed", "agent", r.root.Name(), "session", sess.ID, "error", err)
		return nil, fmt.Errorf("runner: %w", err)
	}

	xlog.Debug("Run finished", "agent", r.root.Name(), "session", sess.ID, "events", len(events), "duration", time.Since(start))
	return &Result{
		SessionID: sess.ID,
		Events:    events,
		FinalText: inv.FinalText(),
		State:     state.Snapshot(),
	}, nil
}

// Close releases the session manager.
func (r *Runner) Close() error {
	return r.sessions.Close()
}
