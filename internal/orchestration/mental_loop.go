package orchestration

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aixgo-dev/agentarch/agent"
	"go.opentelemetry.io/otel/attribute"
)

const (
	ProposerRole  = "Proposer"
	SimulatorRole = "Simulator"
	RefinerRole   = "Refiner"

	// InitialMarketPrice is the simulated price before any trade.
	InitialMarketPrice = 100
	marketStep         = 10
)

// MarketSimulator is a toy world model whose price moves with the
// proposals it is shown.
type MarketSimulator struct {
	mu    sync.Mutex
	price int
}

// NewMarketSimulator creates a market at InitialMarketPrice.
func NewMarketSimulator() *MarketSimulator {
	return &MarketSimulator{price: InitialMarketPrice}
}

// Simulate applies action to the market and describes the outcome.
// "buy" takes precedence over "sell" when both appear.
func (m *MarketSimulator) Simulate(action string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	lower := strings.ToLower(action)
	switch {
	case strings.Contains(lower, "buy"):
		m.price += marketStep
		return fmt.Sprintf("Price increased to %d.", m.price)
	case strings.Contains(lower, "sell"):
		m.price -= marketStep
		return fmt.Sprintf("Price decreased to %d.", m.price)
	default:
		return "No market impact."
	}
}

// Price returns the current price.
func (m *MarketSimulator) Price() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.price
}

// MentalLoopAgent tests a proposal against a simulated world before the
// refiner commits to an answer.
type MentalLoopAgent struct {
	agent.Base
	proposer  agent.Agent
	simulator agent.Agent
	refiner   agent.Agent
	subs      []agent.Agent
	world     *MarketSimulator
}

// NewMentalLoopAgent builds the agent from sub-agents named Proposer and
// Refiner. A Simulator sub-agent may be declared but the market model does
// the simulating.
func NewMentalLoopAgent(name string, subs []agent.Agent) (*MentalLoopAgent, error) {
	roles := NewRoles(subs)
	m := &MentalLoopAgent{
		Base:  agent.NewBase(name, "Simulates proposals before refining them"),
		subs:  subs,
		world: NewMarketSimulator(),
	}
	var err error
	if m.proposer, err = roles.Require("mental_loop", ProposerRole); err != nil {
		return nil, err
	}
	if m.refiner, err = roles.Require("mental_loop", RefinerRole); err != nil {
		return nil, err
	}
	m.simulator, _ = roles.Get(SimulatorRole)
	return m, nil
}

// SubAgents returns the declared sub-agents.
func (m *MentalLoopAgent) SubAgents() []agent.Agent {
	return m.subs
}

// World returns the market model.
func (m *MentalLoopAgent) World() *MarketSimulator {
	return m.world
}

// Run proposes, simulates and refines.
func (m *MentalLoopAgent) Run(ctx context.Context, inv *agent.Invocation) error {
	ctx, span := startSpan(ctx, "mental_loop", m.Name())
	defer span.End()

	if err := runSub(ctx, span, inv, m.proposer); err != nil {
		return err
	}
	outcome := m.world.Simulate(outputOf(inv, m.proposer, ""))
	span.SetAttributes(attribute.Int("simulation.price", m.world.Price()))
	setState(inv, m.Name(), map[string]any{"simulation_results": outcome})

	if err := runSub(ctx, span, inv, m.refiner); err != nil {
		return err
	}
	emitText(inv, m.Name(), outputOf(inv, m.refiner, ""))
	return nil
}
