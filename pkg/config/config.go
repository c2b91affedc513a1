// Package config loads agent and workflow definitions from YAML or JSON.
//
// A definition file describes either a single model-backed agent or a
// workflow whose sub_agents are agents or nested workflows. Unknown fields
// are ignored; missing required fields fail at load time.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aixgo-dev/agentarch/pkg/security"
)

// Architecture identifiers.
const (
	ArchSingle     = "single"
	ArchSequential = "sequential"
	ArchLoop       = "loop"
	ArchParallel   = "parallel"
	ArchCustom     = "custom"
)

// Defaults applied to agent records.
const (
	DefaultTemperature = 0.0
	DefaultMaxTurns    = 8
)

// ConfigEnvVar overrides the default config path when set.
const ConfigEnvVar = "AGENT_CONFIG"

var (
	// ErrMissingField is returned when a required field is absent or empty.
	ErrMissingField = errors.New("missing required field")
	// ErrUnknownArchitecture is returned for an unrecognised architecture.
	ErrUnknownArchitecture = errors.New("unknown architecture")
	// ErrDuplicateAgent is returned when two agents in a tree share a name.
	ErrDuplicateAgent = errors.New("duplicate agent name")
	// ErrInvalidValue is returned for out-of-range values.
	ErrInvalidValue = errors.New("invalid value")
	// ErrMissingSubAgent is returned when a pattern lacks a required role.
	ErrMissingSubAgent = errors.New("missing sub-agent")
)

// UnknownArchitectureError names the architecture that failed to resolve.
// It matches ErrUnknownArchitecture with errors.Is.
type UnknownArchitectureError struct {
	Name string
}

func (e *UnknownArchitectureError) Error() string {
	return "Unknown architecture: " + e.Name
}

// Is reports whether target is ErrUnknownArchitecture.
func (e *UnknownArchitectureError) Is(target error) bool {
	return target == ErrUnknownArchitecture
}

// AgentConfig describes one model-backed agent.
type AgentConfig struct {
	Name         string         `yaml:"name" json:"name"`
	Model        string         `yaml:"model" json:"model"`
	Instruction  string         `yaml:"instruction" json:"instruction"`
	Description  string         `yaml:"description,omitempty" json:"description,omitempty"`
	Tools        []string       `yaml:"tools,omitempty" json:"tools,omitempty"`
	OutputKey    string         `yaml:"output_key,omitempty" json:"output_key,omitempty"`
	Temperature  float64        `yaml:"temperature" json:"temperature"`
	MaxTurns     int            `yaml:"max_turns,omitempty" json:"max_turns,omitempty"`
	ToolTimeouts map[string]int `yaml:"tool_timeouts,omitempty" json:"tool_timeouts,omitempty"`

	// Architecture is "single" for a standalone agent file.
	Architecture  string `yaml:"architecture,omitempty" json:"architecture,omitempty"`
	MaxIterations int    `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`

	// Extra collects unknown YAML keys. They are kept for inspection only.
	Extra map[string]any `yaml:",inline" json:"-"`
}

// WorkflowConfig describes a composite agent.
type WorkflowConfig struct {
	Name          string `yaml:"name" json:"name"`
	Architecture  string `yaml:"architecture" json:"architecture"`
	Description   string `yaml:"description,omitempty" json:"description,omitempty"`
	SubAgents     []Node `yaml:"sub_agents,omitempty" json:"sub_agents,omitempty"`
	MaxIterations int    `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`

	// Pattern names the orchestrator used when Architecture is "custom".
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	// Options carries pattern-specific parameters.
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`

	Extra map[string]any `yaml:",inline" json:"-"`
}

// EffectivePattern returns the orchestrator pattern: Pattern for custom
// workflows, Architecture otherwise.
func (w *WorkflowConfig) EffectivePattern() string {
	if w.Architecture == ArchCustom && w.Pattern != "" {
		return w.Pattern
	}
	return w.Architecture
}

// IntOption returns Options[key] as an int, or def.
func (w *WorkflowConfig) IntOption(key string, def int) int {
	switch v := w.Options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// StringOption returns Options[key] as a string, or def.
func (w *WorkflowConfig) StringOption(key, def string) string {
	if v, ok := w.Options[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Format is a definition file encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the encoding from the file extension: YAML for .yaml
// and .yml, JSON for everything else.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Loader reads definition files with YAML resource limits.
type Loader struct {
	yaml *security.SafeYAMLParser
}

// NewLoader creates a Loader with the default YAML limits.
func NewLoader() *Loader {
	return &Loader{yaml: security.NewSafeYAMLParser(security.DefaultYAMLLimits())}
}

var defaultLoader = NewLoader()

// Load reads path and returns the validated root node.
func Load(path string) (*Node, error) {
	return defaultLoader.Load(path)
}

// LoadAgentConfig reads a single-agent definition.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	node, err := Load(path)
	if err != nil {
		return nil, err
	}
	if node.Agent == nil {
		return nil, fmt.Errorf("load config %s: %w: expected a single agent, got architecture %q",
			path, ErrInvalidValue, node.Workflow.Architecture)
	}
	return node.Agent, nil
}

// LoadWorkflowConfig reads a workflow definition.
func LoadWorkflowConfig(path string) (*WorkflowConfig, error) {
	node, err := Load(path)
	if err != nil {
		return nil, err
	}
	if node.Workflow == nil {
		return nil, fmt.Errorf("load config %s: %w: expected a workflow, got a single agent", path, ErrInvalidValue)
	}
	return node.Workflow, nil
}

// Load reads path and returns the validated root node.
func (l *Loader) Load(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	node, err := l.Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return node, nil
}

// Parse decodes data, applies defaults and validates the tree.
func (l *Loader) Parse(data []byte, format Format) (*Node, error) {
	var node Node
	switch format {
	case FormatYAML:
		if err := l.yaml.UnmarshalYAML(data, &node); err != nil {
			return nil, err
		}
	default:
		if err := node.UnmarshalJSON(data); err != nil {
			return nil, fmt.Errorf("JSON parse error: %w", err)
		}
	}
	if node.Agent == nil && node.Workflow == nil {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}
	node.applyDefaults()
	if err := Validate(&node); err != nil {
		return nil, err
	}
	return &node, nil
}

// ResolvePath returns the AGENT_CONFIG environment value if set, def otherwise.
func ResolvePath(def string) string {
	if p := os.Getenv(ConfigEnvVar); p != "" {
		return p
	}
	return def
}
