package orchestration

import (
	"context"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/jsonx"
	"github.com/mudler/xlog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	ThoughtGeneratorRole  = "ThoughtGenerator"
	StateEvaluatorRole    = "StateEvaluator"
	ResponseGeneratorRole = "ResponseGenerator"

	// DefaultThoughtIterations is the search depth.
	DefaultThoughtIterations = 3
)

// TreeOfThoughtsAgent grows reasoning paths one thought at a time and
// keeps the single path the evaluator rates best.
type TreeOfThoughtsAgent struct {
	agent.Base
	generator  agent.Agent
	evaluator  agent.Agent
	responder  agent.Agent
	subs       []agent.Agent
	iterations int
}

// NewTreeOfThoughtsAgent builds the search from sub-agents named
// ThoughtGenerator, StateEvaluator and ResponseGenerator.
func NewTreeOfThoughtsAgent(name string, subs []agent.Agent, iterations int) (*TreeOfThoughtsAgent, error) {
	roles := NewRoles(subs)
	t := &TreeOfThoughtsAgent{
		Base:       agent.NewBase(name, "Beam search over reasoning paths"),
		subs:       subs,
		iterations: iterations,
	}
	var err error
	if t.generator, err = roles.Require("tree_of_thoughts", ThoughtGeneratorRole); err != nil {
		return nil, err
	}
	if t.evaluator, err = roles.Require("tree_of_thoughts", StateEvaluatorRole); err != nil {
		return nil, err
	}
	if t.responder, err = roles.Require("tree_of_thoughts", ResponseGeneratorRole); err != nil {
		return nil, err
	}
	if t.iterations <= 0 {
		t.iterations = DefaultThoughtIterations
	}
	return t, nil
}

// SubAgents returns the generator, evaluator and responder.
func (t *TreeOfThoughtsAgent) SubAgents() []agent.Agent {
	return t.subs
}

// parseThoughts decodes a JSON list of thoughts. Non-string entries are
// skipped.
func parseThoughts(text string) []string {
	var raw []any
	if !jsonx.Decode(text, &raw) {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseBestThought(text string) (string, bool) {
	var v struct {
		BestThought any `json:"best_thought"`
	}
	if !jsonx.Decode(text, &v) {
		return "", false
	}
	s, ok := v.BestThought.(string)
	return s, ok && s != ""
}

// Run performs the search and emits the responder's answer.
func (t *TreeOfThoughtsAgent) Run(ctx context.Context, inv *agent.Invocation) error {
	ctx, span := startSpan(ctx, "tree_of_thoughts", t.Name(),
		attribute.Int("orchestration.iterations", t.iterations))
	defer span.End()

	active := []string{""}
	for i := 0; i < t.iterations; i++ {
		var candidates []string
		for _, path := range active {
			setState(inv, t.Name(), map[string]any{"current_path": path})
			if err := runSub(ctx, span, inv, t.generator); err != nil {
				return err
			}
			for _, thought := range parseThoughts(outputOf(inv, t.generator, "[]")) {
				candidates = append(candidates, path+"\n"+thought)
			}
		}

		if candidates == nil {
			candidates = []string{}
		}
		setState(inv, t.Name(), map[string]any{"thoughts": jsonx.Marshal(candidates)})
		if err := runSub(ctx, span, inv, t.evaluator); err != nil {
			return err
		}

		if best, ok := parseBestThought(outputOf(inv, t.evaluator, "{}")); ok {
			active = []string{best}
		} else if len(candidates) > 0 {
			active = candidates[:1]
		} else {
			active = nil
		}
		xlog.Debug("Thought iteration", "agent", t.Name(), "iteration", i+1, "candidates", len(candidates), "invocation", inv.ID)
	}

	finalPath := ""
	if len(active) > 0 {
		finalPath = active[0]
	}
	setState(inv, t.Name(), map[string]any{"final_path": finalPath})
	if err := runSub(ctx, span, inv, t.responder); err != nil {
		return err
	}
	emitText(inv, t.Name(), outputOf(inv, t.responder, ""))
	return nil
}
