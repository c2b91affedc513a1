package workflow

import (
	"context"
	"fmt"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/observability"
	metrics "github.com/aixgo-dev/agentarch/pkg/observability"
	"github.com/mudler/xlog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Loop repeats its sub-agents until one escalates or maxIterations full
// passes have run. Zero iterations means no bound.
type Loop struct {
	agent.Base
	subAgents     []agent.Agent
	maxIterations int
}

// NewLoop creates a Loop over subAgents.
func NewLoop(name, description string, maxIterations int, subAgents ...agent.Agent) *Loop {
	return &Loop{
		Base:          agent.NewBase(name, description),
		subAgents:     subAgents,
		maxIterations: maxIterations,
	}
}

// SubAgents returns the loop body.
func (l *Loop) SubAgents() []agent.Agent {
	return l.subAgents
}

// MaxIterations returns the pass bound, 0 when unbounded.
func (l *Loop) MaxIterations() int {
	return l.maxIterations
}

// Run executes the loop body. Escalation is checked after every
// sub-agent and cleared when the loop exits so that enclosing composites
// keep running.
func (l *Loop) Run(ctx context.Context, inv *agent.Invocation) error {
	ctx, span := observability.StartSpanWithOtel(ctx, fmt.Sprintf("workflow.loop.%s", l.Name()),
		trace.WithAttributes(
			attribute.String("workflow.kind", "loop"),
			attribute.Int("workflow.max_iterations", l.maxIterations),
		),
	)
	defer span.End()
	defer inv.ClearEscalation()

	if len(l.subAgents) == 0 {
		return nil
	}
	for iter := 0; l.maxIterations == 0 || iter < l.maxIterations; iter++ {
		for _, sub := range l.subAgents {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := sub.Run(ctx, inv); err != nil {
				span.RecordError(err)
				return fmt.Errorf("%s: iteration %d: %w", l.Name(), iter+1, err)
			}
			if inv.Escalated() {
				span.SetAttributes(
					attribute.Int("workflow.iterations", iter+1),
					attribute.String("workflow.escalated_by", sub.Name()),
				)
				metrics.RecordEscalation(l.Name())
				xlog.Debug("Loop escalated", "workflow", l.Name(), "agent", sub.Name(), "iteration", iter+1, "invocation", inv.ID)
				return nil
			}
		}
	}

	span.SetAttributes(attribute.Int("workflow.iterations", l.maxIterations))
	xlog.Debug("Loop reached max iterations", "workflow", l.Name(), "max_iterations", l.maxIterations, "invocation", inv.ID)
	return nil
}
