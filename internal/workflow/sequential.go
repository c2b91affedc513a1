package workflow

import (
	"context"
	"fmt"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/observability"
	"github.com/mudler/xlog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Sequential runs its sub-agents in order on the shared invocation.
type Sequential struct {
	agent.Base
	subAgents []agent.Agent
}

// NewSequential creates a Sequential over subAgents.
func NewSequential(name, description string, subAgents ...agent.Agent) *Sequential {
	return &Sequential{
		Base:      agent.NewBase(name, description),
		subAgents: subAgents,
	}
}

// SubAgents returns the sub-agents in execution order.
func (s *Sequential) SubAgents() []agent.Agent {
	return s.subAgents
}

// Append adds a sub-agent at the end of the pipeline.
func (s *Sequential) Append(a agent.Agent) {
	s.subAgents = append(s.subAgents, a)
}

// Run executes each sub-agent in turn. It stops at the first error and
// after any sub-agent that escalates; the escalation is left set for an
// enclosing loop to honour.
func (s *Sequential) Run(ctx context.Context, inv *agent.Invocation) error {
	ctx, span := observability.StartSpanWithOtel(ctx, fmt.Sprintf("workflow.sequential.%s", s.Name()),
		trace.WithAttributes(
			attribute.String("workflow.kind", "sequential"),
			attribute.Int("workflow.sub_agents", len(s.subAgents)),
		),
	)
	defer span.End()

	for _, sub := range s.subAgents {
		if err := ctx.Err(); err != nil {
			return err
		}
		xlog.Debug("Running sub-agent", "workflow", s.Name(), "agent", sub.Name(), "invocation", inv.ID)
		if err := sub.Run(ctx, inv); err != nil {
			span.RecordError(err)
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
		if inv.Escalated() {
			span.SetAttributes(attribute.String("workflow.escalated_by", sub.Name()))
			return nil
		}
	}
	return nil
}
