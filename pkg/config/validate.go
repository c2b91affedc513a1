package config

import (
	"fmt"
	"sort"
	"sync"
)

var (
	archMu sync.RWMutex
	// architectures accepted in workflow records; orchestrator patterns
	// register themselves on top of the built-in composites.
	architectures = map[string]bool{
		ArchSequential: true,
		ArchLoop:       true,
		ArchParallel:   true,
		ArchCustom:     true,
	}
)

// RegisterArchitecture marks arch as a valid workflow architecture.
func RegisterArchitecture(arch string) {
	archMu.Lock()
	defer archMu.Unlock()
	architectures[arch] = true
}

// IsKnownArchitecture reports whether arch may appear in a workflow record.
func IsKnownArchitecture(arch string) bool {
	archMu.RLock()
	defer archMu.RUnlock()
	return architectures[arch]
}

// Architectures returns the registered architecture names, sorted.
func Architectures() []string {
	archMu.RLock()
	defer archMu.RUnlock()
	names := make([]string, 0, len(architectures))
	for name := range architectures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks required fields, value ranges, architectures and name
// uniqueness across the whole tree.
func Validate(root *Node) error {
	seen := make(map[string]bool)
	return validateNode(root, seen)
}

func validateNode(n *Node, seen map[string]bool) error {
	name := n.Name()
	if name == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	if seen[name] {
		return fmt.Errorf("%w: %s", ErrDuplicateAgent, name)
	}
	seen[name] = true

	if n.Agent != nil {
		return validateAgent(n.Agent)
	}
	return validateWorkflow(n.Workflow, seen)
}

func validateAgent(a *AgentConfig) error {
	if a.Model == "" {
		return fmt.Errorf("agent %s: %w: model", a.Name, ErrMissingField)
	}
	if a.Instruction == "" {
		return fmt.Errorf("agent %s: %w: instruction", a.Name, ErrMissingField)
	}
	if a.MaxIterations < 0 {
		return fmt.Errorf("agent %s: %w: max_iterations must be >= 0", a.Name, ErrInvalidValue)
	}
	for tool, secs := range a.ToolTimeouts {
		if secs < 0 {
			return fmt.Errorf("agent %s: %w: tool_timeouts[%s] must be >= 0", a.Name, ErrInvalidValue, tool)
		}
	}
	return nil
}

func validateWorkflow(w *WorkflowConfig, seen map[string]bool) error {
	if !IsKnownArchitecture(w.Architecture) {
		return &UnknownArchitectureError{Name: w.Architecture}
	}
	if w.Architecture == ArchCustom {
		if w.Pattern == "" {
			return fmt.Errorf("workflow %s: %w: pattern", w.Name, ErrMissingField)
		}
		if !IsKnownArchitecture(w.Pattern) {
			return fmt.Errorf("workflow %s: %w", w.Name, &UnknownArchitectureError{Name: w.Pattern})
		}
	}
	if w.MaxIterations < 0 {
		return fmt.Errorf("workflow %s: %w: max_iterations must be >= 0", w.Name, ErrInvalidValue)
	}
	switch w.Architecture {
	case ArchSequential, ArchLoop, ArchParallel:
		if len(w.SubAgents) == 0 {
			return fmt.Errorf("workflow %s: %w: sub_agents", w.Name, ErrMissingField)
		}
	}
	for i := range w.SubAgents {
		if err := validateNode(&w.SubAgents[i], seen); err != nil {
			return err
		}
	}
	return nil
}
