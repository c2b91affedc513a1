package builder

import (
	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/agents"
	"github.com/aixgo-dev/agentarch/internal/orchestration"
	"github.com/aixgo-dev/agentarch/internal/workflow"
	"github.com/aixgo-dev/agentarch/pkg/config"
)

// Pattern names.
const (
	PatternBlackboard       = "blackboard"
	PatternMetaController   = "meta_controller"
	PatternTreeOfThoughts   = "tree_of_thoughts"
	PatternEpisodicSemantic = "episodic_semantic"
	PatternMentalLoop       = "mental_loop"
	PatternGraph            = "graph"
	PatternCellularAutomata = "cellular_automata"
	PatternCellularStep     = "cellular_step"
	PatternRouting          = "routing"
	PatternRLHF             = "rlhf"
)

// RLHF demo texts.
const (
	rlhfDraft    = "Draft: placeholder text for RLHF loop"
	rlhfCritique = "Critique: identify issues A/B/C"
	rlhfRevision = "Revised: applied fixes to A/B/C"

	defaultRLHFRounds = 3
)

func init() {
	Register(PatternBlackboard, func(_ *Builder, wf *config.WorkflowConfig, subs []agent.Agent) (agent.Agent, error) {
		return orchestration.NewBlackboardAgent(wf.Name, subs, wf.MaxIterations)
	})
	Register(PatternMetaController, func(_ *Builder, wf *config.WorkflowConfig, subs []agent.Agent) (agent.Agent, error) {
		return orchestration.NewMetaControllerAgent(wf.Name, subs)
	})
	Register(PatternTreeOfThoughts, func(_ *Builder, wf *config.WorkflowConfig, subs []agent.Agent) (agent.Agent, error) {
		return orchestration.NewTreeOfThoughtsAgent(wf.Name, subs, wf.MaxIterations)
	})
	Register(PatternEpisodicSemantic, func(b *Builder, wf *config.WorkflowConfig, subs []agent.Agent) (agent.Agent, error) {
		return orchestration.NewEpisodicSemanticAgent(wf.Name, subs, b.Bank(wf))
	})
	Register(PatternMentalLoop, func(_ *Builder, wf *config.WorkflowConfig, subs []agent.Agent) (agent.Agent, error) {
		return orchestration.NewMentalLoopAgent(wf.Name, subs)
	})
	Register(PatternGraph, func(b *Builder, wf *config.WorkflowConfig, subs []agent.Agent) (agent.Agent, error) {
		return orchestration.NewGraphAgent(wf.Name, subs, b.Bank(wf))
	})
	Register(PatternCellularAutomata, func(_ *Builder, wf *config.WorkflowConfig, _ []agent.Agent) (agent.Agent, error) {
		return orchestration.NewCellularAutomataAgent(wf.Name), nil
	})
	Register(PatternCellularStep, func(_ *Builder, wf *config.WorkflowConfig, _ []agent.Agent) (agent.Agent, error) {
		return orchestration.NewCellularStepAgent(wf.Name, wf.IntOption("grid_size", orchestration.DefaultStepGridSize)), nil
	})
	Register(PatternRouting, func(_ *Builder, wf *config.WorkflowConfig, subs []agent.Agent) (agent.Agent, error) {
		return orchestration.NewConditionalRoutingAgent(wf.Name, subs, orchestration.RoutingNames{
			Analyzer: wf.StringOption("analyzer", ""),
			Search:   wf.StringOption("search_agent", ""),
			Direct:   wf.StringOption("direct_agent", ""),
		})
	})
	Register(PatternRLHF, buildRLHF)
}

// buildRLHF assembles the draft, critique and revise demo from static
// agents: a draft followed by a bounded critique/revision loop.
func buildRLHF(_ *Builder, wf *config.WorkflowConfig, _ []agent.Agent) (agent.Agent, error) {
	rounds := wf.MaxIterations
	if rounds <= 0 {
		rounds = defaultRLHFRounds
	}
	cycle := workflow.NewSequential("rlhf_inner_cycle", "Critique then revise",
		agents.NewStaticAgent("critic_agent", rlhfCritique, "critique"),
		agents.NewStaticAgent("revise_agent", rlhfRevision, "draft"),
	)
	return workflow.NewSequential(wf.Name, wf.Description,
		agents.NewStaticAgent("draft_agent", rlhfDraft, "draft"),
		workflow.NewLoop("rlhf_loop", "Refinement rounds", rounds, cycle),
	), nil
}
