package agent

import (
	"context"
	"errors"
)

// ErrAgentNotFound is returned when a named sub-agent cannot be resolved.
var ErrAgentNotFound = errors.New("agent not found")

// ErrInvalidConfig is returned when an agent is constructed with
// unusable settings.
var ErrInvalidConfig = errors.New("invalid agent configuration")

// Agent is the interface implemented by every unit in an agent tree:
// model-backed agents, composite workflows and custom orchestrators.
//
// Run executes the agent against a single invocation. Results are
// published by emitting events on the invocation; state changes travel
// as event state deltas so that every write is visible to the runner.
type Agent interface {
	// Name returns the agent name. Names are unique within one tree.
	Name() string

	// Description returns a short human readable description.
	Description() string

	// Run executes the agent. It blocks until the agent finishes, the
	// context is canceled or an error occurs.
	Run(ctx context.Context, inv *Invocation) error
}

// Composite is implemented by agents that delegate to sub-agents.
type Composite interface {
	Agent
	SubAgents() []Agent
}

// OutputKeyer is implemented by agents that publish their final text
// under a session state key.
type OutputKeyer interface {
	OutputKey() string
}

// OutputKeyOf returns the output key of a, or "" if it has none.
func OutputKeyOf(a Agent) string {
	if ok, is := a.(OutputKeyer); is {
		return ok.OutputKey()
	}
	return ""
}

// Base carries the name and description shared by all agents.
// Embed it to satisfy the Name and Description methods.
type Base struct {
	name        string
	description string
}

// NewBase creates a Base.
func NewBase(name, description string) Base {
	return Base{name: name, description: description}
}

// Name returns the agent name
func (b Base) Name() string {
	return b.name
}

// Description returns the agent description
func (b Base) Description() string {
	return b.description
}

// Find walks the tree rooted at root depth-first and returns the agent
// with the given name.
func Find(root Agent, name string) (Agent, bool) {
	if root == nil {
		return nil, false
	}
	if root.Name() == name {
		return root, true
	}
	if c, ok := root.(Composite); ok {
		for _, sub := range c.SubAgents() {
			if found, ok := Find(sub, name); ok {
				return found, true
			}
		}
	}
	return nil, false
}
