package orchestration

import (
	"context"
	"strings"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/mudler/xlog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	AnalyzerRole    = "Analyzer"
	SearchAgentRole = "SearchAgent"
	DirectAgentRole = "DirectAgent"

	// RoutingDecisionKey is where the analyzer leaves its verdict.
	RoutingDecisionKey = "routing_decision"
)

// RoutingNames overrides the role names a ConditionalRoutingAgent looks for.
type RoutingNames struct {
	Analyzer string
	Search   string
	Direct   string
}

func (n RoutingNames) withDefaults() RoutingNames {
	if n.Analyzer == "" {
		n.Analyzer = AnalyzerRole
	}
	if n.Search == "" {
		n.Search = SearchAgentRole
	}
	if n.Direct == "" {
		n.Direct = DirectAgentRole
	}
	return n
}

// ConditionalRoutingAgent lets an analyzer decide whether a request needs
// a web search, then hands it to the search or the direct agent.
type ConditionalRoutingAgent struct {
	agent.Base
	analyzer agent.Agent
	search   agent.Agent
	direct   agent.Agent
	subs     []agent.Agent
}

// NewConditionalRoutingAgent builds the router from its three sub-agents.
func NewConditionalRoutingAgent(name string, subs []agent.Agent, names RoutingNames) (*ConditionalRoutingAgent, error) {
	names = names.withDefaults()
	roles := NewRoles(subs)
	r := &ConditionalRoutingAgent{
		Base: agent.NewBase(name, "Routes to search or a direct answer"),
		subs: subs,
	}
	var err error
	if r.analyzer, err = roles.Require("routing", names.Analyzer); err != nil {
		return nil, err
	}
	if r.search, err = roles.Require("routing", names.Search); err != nil {
		return nil, err
	}
	if r.direct, err = roles.Require("routing", names.Direct); err != nil {
		return nil, err
	}
	return r, nil
}

// SubAgents returns the analyzer and both branches.
func (r *ConditionalRoutingAgent) SubAgents() []agent.Agent {
	return r.subs
}

// Run analyzes and dispatches.
func (r *ConditionalRoutingAgent) Run(ctx context.Context, inv *agent.Invocation) error {
	ctx, span := startSpan(ctx, "routing", r.Name())
	defer span.End()

	if err := runSub(ctx, span, inv, r.analyzer); err != nil {
		return err
	}
	decision := strings.ToUpper(strings.TrimSpace(inv.State.GetString(RoutingDecisionKey, "DIRECT")))
	target := r.direct
	if strings.Contains(decision, "SEARCH") {
		target = r.search
	}
	span.SetAttributes(attribute.String("orchestration.route", target.Name()))
	xlog.Debug("Routing request", "agent", r.Name(), "decision", decision, "route", target.Name(), "invocation", inv.ID)
	return runSub(ctx, span, inv, target)
}
