package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/jsonx"
	"github.com/aixgo-dev/agentarch/pkg/memory"
	"github.com/mudler/xlog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	MemoryRetrieverRole = "MemoryRetriever"
	MemoryUpdaterRole   = "MemoryUpdater"
)

// EpisodicSemanticAgent answers with the help of two long-lived memories:
// a log of past interactions and a knowledge graph. After every answer an
// updater distills the exchange into new memories.
type EpisodicSemanticAgent struct {
	agent.Base
	retriever agent.Agent
	generator agent.Agent
	updater   agent.Agent
	subs      []agent.Agent
	bank      *memory.Bank
	recall    int
}

// NewEpisodicSemanticAgent builds the agent from sub-agents named
// MemoryRetriever, ResponseGenerator and MemoryUpdater. A nil bank keeps
// memories for the lifetime of the agent only.
func NewEpisodicSemanticAgent(name string, subs []agent.Agent, bank *memory.Bank) (*EpisodicSemanticAgent, error) {
	roles := NewRoles(subs)
	e := &EpisodicSemanticAgent{
		Base:   agent.NewBase(name, "Answers using episodic and semantic memory"),
		subs:   subs,
		bank:   bank,
		recall: memory.DefaultRecall,
	}
	var err error
	if e.retriever, err = roles.Require("episodic_semantic", MemoryRetrieverRole); err != nil {
		return nil, err
	}
	if e.generator, err = roles.Require("episodic_semantic", ResponseGeneratorRole); err != nil {
		return nil, err
	}
	if e.updater, err = roles.Require("episodic_semantic", MemoryUpdaterRole); err != nil {
		return nil, err
	}
	if e.bank == nil {
		e.bank = memory.NewBank(nil, name)
	}
	return e, nil
}

// SubAgents returns the retriever, generator and updater.
func (e *EpisodicSemanticAgent) SubAgents() []agent.Agent {
	return e.subs
}

// Bank exposes the agent's memories.
func (e *EpisodicSemanticAgent) Bank() *memory.Bank {
	return e.bank
}

// Run retrieves, answers and then updates memory.
func (e *EpisodicSemanticAgent) Run(ctx context.Context, inv *agent.Invocation) error {
	ctx, span := startSpan(ctx, "episodic_semantic", e.Name())
	defer span.End()

	if err := e.bank.Load(ctx); err != nil {
		span.RecordError(err)
		return err
	}

	setState(inv, e.Name(), map[string]any{
		"episodic_memory": episodesJSON(e.bank.Episodes.Recent(e.recall)),
		"semantic_memory": jsonx.Marshal(e.bank.Graph.Snapshot()),
	})
	if err := runSub(ctx, span, inv, e.retriever); err != nil {
		return err
	}
	if err := runSub(ctx, span, inv, e.generator); err != nil {
		return err
	}

	response := outputOf(inv, e.generator, "")
	setState(inv, e.Name(), map[string]any{
		"conversation_history": fmt.Sprintf("User: %s\nAgent: %s", inv.UserText(), response),
	})
	if err := runSub(ctx, span, inv, e.updater); err != nil {
		return err
	}

	added := e.applyUpdate(outputOf(inv, e.updater, "{}"))
	span.SetAttributes(
		attribute.Int("memory.episodes", e.bank.Episodes.Len()),
		attribute.Int("memory.triplets_added", added),
	)
	if err := e.bank.Save(ctx); err != nil {
		span.RecordError(err)
		xlog.Warn("Failed to persist memory", "agent", e.Name(), "error", err)
	}

	emitText(inv, e.Name(), response)
	return nil
}

// applyUpdate merges the updater's JSON into memory and returns the number
// of triplets added. The episode and the triplets are applied independently,
// so a malformed semantic field still records the episode.
func (e *EpisodicSemanticAgent) applyUpdate(text string) int {
	var u map[string]any
	if !jsonx.Decode(text, &u) {
		xlog.Debug("Ignoring unparseable memory update", "agent", e.Name())
		return 0
	}
	if ep, ok := u["episodic"]; ok && ep != nil {
		e.bank.Episodes.Add(agent.Stringify(ep))
	}
	facts, ok := u["semantic"].([]any)
	if !ok {
		if u["semantic"] != nil {
			xlog.Debug("Ignoring non-list semantic update", "agent", e.Name())
		}
		return 0
	}
	added := 0
	for _, raw := range facts {
		if t, ok := memory.ParseTriplet(raw); ok {
			e.bank.Graph.AddTriplet(t)
			added++
		}
	}
	return added
}

// episodesJSON renders episodes as a JSON list. Episodes recorded from JSON
// objects or lists are embedded as such rather than as quoted strings.
func episodesJSON(episodes []string) string {
	out := make([]any, len(episodes))
	for i, ep := range episodes {
		trimmed := strings.TrimSpace(ep)
		if (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) && json.Valid([]byte(trimmed)) {
			out[i] = json.RawMessage(trimmed)
			continue
		}
		out[i] = ep
	}
	return jsonx.Marshal(out)
}
