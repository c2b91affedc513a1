package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Node is one entry of a definition tree: exactly one of Agent or Workflow
// is set. An entry carrying an architecture other than "single" is a
// workflow; everything else is an agent.
type Node struct {
	Agent    *AgentConfig
	Workflow *WorkflowConfig
}

// Name returns the name of whichever record is set.
func (n *Node) Name() string {
	switch {
	case n.Workflow != nil:
		return n.Workflow.Name
	case n.Agent != nil:
		return n.Agent.Name
	}
	return ""
}

// IsWorkflow reports whether the node is a composite.
func (n *Node) IsWorkflow() bool {
	return n.Workflow != nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.DocumentNode && len(value.Content) > 0 {
		value = value.Content[0]
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: agent entry must be a mapping", value.Line)
	}

	if isWorkflowEntry(yamlArchitecture(value)) {
		var wf WorkflowConfig
		if err := value.Decode(&wf); err != nil {
			return err
		}
		n.Workflow = &wf
		return nil
	}

	var ac AgentConfig
	if err := value.Decode(&ac); err != nil {
		return err
	}
	n.Agent = &ac
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	var arch string
	raw, present := probe["architecture"]
	if present {
		// a non-string architecture surfaces as a decode error below
		_ = json.Unmarshal(raw, &arch)
	}

	if isWorkflowEntry(arch, present) {
		var wf WorkflowConfig
		if err := json.Unmarshal(data, &wf); err != nil {
			return err
		}
		n.Workflow = &wf
		return nil
	}

	var ac AgentConfig
	if err := json.Unmarshal(data, &ac); err != nil {
		return err
	}
	n.Agent = &ac
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.Workflow != nil {
		return json.Marshal(n.Workflow)
	}
	return json.Marshal(n.Agent)
}

// MarshalYAML implements yaml.Marshaler.
func (n Node) MarshalYAML() (any, error) {
	if n.Workflow != nil {
		return n.Workflow, nil
	}
	return n.Agent, nil
}

func yamlArchitecture(m *yaml.Node) (string, bool) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == "architecture" {
			return m.Content[i+1].Value, true
		}
	}
	return "", false
}

func isWorkflowEntry(arch string, present bool) bool {
	return present && arch != ArchSingle
}

func (n *Node) applyDefaults() {
	if n.Agent != nil {
		if n.Agent.Architecture == "" {
			n.Agent.Architecture = ArchSingle
		}
		if n.Agent.MaxTurns <= 0 {
			n.Agent.MaxTurns = DefaultMaxTurns
		}
		if n.Agent.Tools == nil {
			n.Agent.Tools = []string{}
		}
		if n.Agent.ToolTimeouts == nil {
			n.Agent.ToolTimeouts = map[string]int{}
		}
	}
	if n.Workflow != nil {
		for i := range n.Workflow.SubAgents {
			n.Workflow.SubAgents[i].applyDefaults()
		}
	}
}
