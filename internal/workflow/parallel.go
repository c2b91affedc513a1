package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Parallel runs its sub-agents concurrently against the shared state.
// The first error cancels the remaining branches.
type Parallel struct {
	agent.Base
	subAgents []agent.Agent
}

// NewParallel creates a Parallel over subAgents.
func NewParallel(name, description string, subAgents ...agent.Agent) *Parallel {
	return &Parallel{
		Base:      agent.NewBase(name, description),
		subAgents: subAgents,
	}
}

// SubAgents returns the branches.
func (p *Parallel) SubAgents() []agent.Agent {
	return p.subAgents
}

// Run starts every branch and waits for all of them.
func (p *Parallel) Run(ctx context.Context, inv *agent.Invocation) error {
	ctx, span := observability.StartSpanWithOtel(ctx, fmt.Sprintf("workflow.parallel.%s", p.Name()),
		trace.WithAttributes(
			attribute.String("workflow.kind", "parallel"),
			attribute.Int("workflow.sub_agents", len(p.subAgents)),
		),
	)
	defer span.End()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, sub := range p.subAgents {
		g.Go(func() error {
			if err := sub.Run(gctx, inv); err != nil {
				return fmt.Errorf("%s: branch %s: %w", p.Name(), sub.Name(), err)
			}
			return nil
		})
	}
	err := g.Wait()

	span.SetAttributes(attribute.Int64("workflow.duration_ms", time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
