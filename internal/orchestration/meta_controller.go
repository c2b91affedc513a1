package orchestration

import (
	"context"
	"strings"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/mudler/xlog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// MetaControllerRole is the sub-agent that names the route.
	MetaControllerRole = "MetaController"

	msgNoRoute = "Could not determine a route for the request."
)

// MetaControllerAgent runs a controller once and dispatches the request
// to the specialist it names.
type MetaControllerAgent struct {
	agent.Base
	controller  agent.Agent
	specialists map[string]agent.Agent
	subs        []agent.Agent
}

// NewMetaControllerAgent builds the router. One sub-agent must be named
// MetaController.
func NewMetaControllerAgent(name string, subs []agent.Agent) (*MetaControllerAgent, error) {
	roles := NewRoles(subs)
	controller, err := roles.Require("meta_controller", MetaControllerRole)
	if err != nil {
		return nil, err
	}
	return &MetaControllerAgent{
		Base:        agent.NewBase(name, "Routes each request to one specialist"),
		controller:  controller,
		specialists: roles.Except(MetaControllerRole),
		subs:        subs,
	}, nil
}

// SubAgents returns the controller and specialists.
func (m *MetaControllerAgent) SubAgents() []agent.Agent {
	return m.subs
}

// Run routes the request.
func (m *MetaControllerAgent) Run(ctx context.Context, inv *agent.Invocation) error {
	ctx, span := startSpan(ctx, "meta_controller", m.Name())
	defer span.End()

	if err := runSub(ctx, span, inv, m.controller); err != nil {
		return err
	}
	route := strings.TrimSpace(outputOf(inv, m.controller, ""))
	span.SetAttributes(attribute.String("orchestration.route", route))

	specialist, ok := m.specialists[route]
	if !ok {
		xlog.Debug("No route for request", "agent", m.Name(), "route", route, "invocation", inv.ID)
		emitText(inv, m.Name(), msgNoRoute)
		return nil
	}
	return runSub(ctx, span, inv, specialist)
}
