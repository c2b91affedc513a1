package orchestration

import (
	"context"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/jsonx"
	"github.com/aixgo-dev/agentarch/pkg/memory"
	"github.com/mudler/xlog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	KnowledgeExtractorRole = "KnowledgeExtractor"
	QueryEngineRole        = "QueryEngine"
)

// GraphAgent extracts facts from each request into a knowledge graph and
// answers by querying the accumulated graph.
type GraphAgent struct {
	agent.Base
	extractor agent.Agent
	querier   agent.Agent
	subs      []agent.Agent
	bank      *memory.Bank
}

// NewGraphAgent builds the agent from sub-agents named KnowledgeExtractor
// and QueryEngine.
func NewGraphAgent(name string, subs []agent.Agent, bank *memory.Bank) (*GraphAgent, error) {
	roles := NewRoles(subs)
	g := &GraphAgent{
		Base: agent.NewBase(name, "Answers from an accumulated knowledge graph"),
		subs: subs,
		bank: bank,
	}
	var err error
	if g.extractor, err = roles.Require("graph", KnowledgeExtractorRole); err != nil {
		return nil, err
	}
	if g.querier, err = roles.Require("graph", QueryEngineRole); err != nil {
		return nil, err
	}
	if g.bank == nil {
		g.bank = memory.NewBank(nil, name)
	}
	return g, nil
}

// SubAgents returns the extractor and query engine.
func (g *GraphAgent) SubAgents() []agent.Agent {
	return g.subs
}

// Graph exposes the accumulated knowledge graph.
func (g *GraphAgent) Graph() *memory.KnowledgeGraph {
	return g.bank.Graph
}

// Run extracts, stores and queries.
func (g *GraphAgent) Run(ctx context.Context, inv *agent.Invocation) error {
	ctx, span := startSpan(ctx, "graph", g.Name())
	defer span.End()

	if err := g.bank.Load(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	if err := runSub(ctx, span, inv, g.extractor); err != nil {
		return err
	}

	added := 0
	var triplets []any
	if jsonx.Decode(outputOf(inv, g.extractor, "[]"), &triplets) {
		for _, raw := range triplets {
			if t, ok := memory.ParseTriplet(raw); ok {
				g.bank.Graph.AddTriplet(t)
				added++
			}
		}
	} else {
		xlog.Debug("Ignoring unparseable triplets", "agent", g.Name(), "invocation", inv.ID)
	}
	span.SetAttributes(attribute.Int("memory.triplets_added", added))
	if added > 0 {
		if err := g.bank.Save(ctx); err != nil {
			span.RecordError(err)
			xlog.Warn("Failed to persist knowledge graph", "agent", g.Name(), "error", err)
		}
	}

	setState(inv, g.Name(), map[string]any{"graph": jsonx.Marshal(g.bank.Graph.Snapshot())})
	if err := runSub(ctx, span, inv, g.querier); err != nil {
		return err
	}
	emitText(inv, g.Name(), outputOf(inv, g.querier, ""))
	return nil
}
