package orchestration

import (
	"context"
	"strings"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/jsonx"
	"github.com/mudler/xlog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// BlackboardController is the role that picks the next specialist.
	BlackboardController = "Controller"
	// BlackboardSynthesizer is the specialist whose output ends the run.
	BlackboardSynthesizer = "SynthesisSpecialist"
	// DefaultBlackboardIterations bounds controller turns.
	DefaultBlackboardIterations = 5

	blackboardKey    = "blackboard"
	finishDecision   = "FINISH"
	synthesisKey     = "synthesis_result"
	msgNoFinalResult = "Process finished without a final result."
	msgInvalidChoice = "Controller chose an invalid specialist. Ending process."
)

// Board is the shared workspace specialists contribute to.
type Board struct {
	CompletedAnalyses []string          `json:"completed_analyses"`
	Results           map[string]string `json:"results"`
}

func (b Board) toState() map[string]any {
	results := make(map[string]any, len(b.Results))
	for k, v := range b.Results {
		results[k] = v
	}
	completed := make([]any, len(b.CompletedAnalyses))
	for i, name := range b.CompletedAnalyses {
		completed[i] = name
	}
	return map[string]any{"completed_analyses": completed, "results": results}
}

// loadBoard reads the board from state. A missing or unreadable board
// starts empty.
func loadBoard(inv *agent.Invocation) Board {
	b := Board{CompletedAnalyses: []string{}, Results: map[string]string{}}
	raw, ok := inv.State.Get(blackboardKey)
	if !ok {
		return b
	}
	var decoded Board
	if jsonx.Decode(agent.Stringify(raw), &decoded) {
		if decoded.CompletedAnalyses != nil {
			b.CompletedAnalyses = decoded.CompletedAnalyses
		}
		if decoded.Results != nil {
			b.Results = decoded.Results
		}
	}
	return b
}

// BlackboardAgent lets a controller repeatedly pick a specialist until it
// answers FINISH, the synthesizer has run, or the iteration bound is hit.
type BlackboardAgent struct {
	agent.Base
	controller    agent.Agent
	specialists   map[string]agent.Agent
	subs          []agent.Agent
	maxIterations int
}

// NewBlackboardAgent builds the orchestrator from its sub-agents. One of
// them must be named Controller; the others are specialists.
func NewBlackboardAgent(name string, subs []agent.Agent, maxIterations int) (*BlackboardAgent, error) {
	roles := NewRoles(subs)
	controller, err := roles.Require("blackboard", BlackboardController)
	if err != nil {
		return nil, err
	}
	if maxIterations <= 0 {
		maxIterations = DefaultBlackboardIterations
	}
	return &BlackboardAgent{
		Base:          agent.NewBase(name, "Controller-driven blackboard of specialists"),
		controller:    controller,
		specialists:   roles.Except(BlackboardController),
		subs:          subs,
		maxIterations: maxIterations,
	}, nil
}

// SubAgents returns the controller and specialists.
func (b *BlackboardAgent) SubAgents() []agent.Agent {
	return b.subs
}

// Run drives the controller loop and emits the final result.
func (b *BlackboardAgent) Run(ctx context.Context, inv *agent.Invocation) error {
	ctx, span := startSpan(ctx, "blackboard", b.Name(),
		attribute.Int("orchestration.max_iterations", b.maxIterations),
		attribute.Int("orchestration.specialists", len(b.specialists)),
	)
	defer span.End()

	board := loadBoard(inv)
	if _, ok := inv.State.Get(blackboardKey); !ok {
		setState(inv, b.Name(), map[string]any{blackboardKey: board.toState()})
	}

	final := ""
	for i := 0; i < b.maxIterations; i++ {
		if err := runSub(ctx, span, inv, b.controller); err != nil {
			return err
		}
		next := strings.TrimSpace(outputOf(inv, b.controller, finishDecision))
		xlog.Debug("Blackboard controller decided", "agent", b.Name(), "next", next, "iteration", i+1, "invocation", inv.ID)

		if next == finishDecision {
			final = msgNoFinalResult
			if r, ok := board.Results[synthesisKey]; ok {
				final = r
			}
			break
		}

		specialist, ok := b.specialists[next]
		if !ok {
			final = msgInvalidChoice
			break
		}
		if err := runSub(ctx, span, inv, specialist); err != nil {
			return err
		}

		key := agent.OutputKeyOf(specialist)
		if key == "" {
			key = specialist.Name()
		}
		output := outputOf(inv, specialist, "")
		board.CompletedAnalyses = append(board.CompletedAnalyses, next)
		board.Results[key] = output
		setState(inv, b.Name(), map[string]any{blackboardKey: board.toState()})

		if next == BlackboardSynthesizer {
			final = output
			break
		}
	}

	span.SetAttributes(attribute.Int("orchestration.completed", len(board.CompletedAnalyses)))
	emitText(inv, b.Name(), final)
	return nil
}
