package agents

import (
	"sort"
	"sync"

	"github.com/aixgo-dev/agentarch/internal/llm/provider"
	"github.com/mudler/xlog"
)

// Tool is a capability an agent definition can name in its tools list.
// Builtin tools are executed by the model provider itself.
type Tool struct {
	Name        string
	Description string
	// Builtin is the provider-native tool identifier.
	Builtin string
}

var (
	toolsMu sync.RWMutex
	tools   = map[string]Tool{
		"google_search": {
			Name:        "google_search",
			Description: "Grounds answers in Google Search results",
			Builtin:     provider.ToolGoogleSearch,
		},
		"code_executor": {
			Name:        "code_executor",
			Description: "Lets the model write and run code",
			Builtin:     provider.ToolCodeExecutor,
		},
	}
)

// RegisterTool adds or replaces a tool in the registry.
func RegisterTool(t Tool) {
	toolsMu.Lock()
	defer toolsMu.Unlock()
	tools[t.Name] = t
}

// LookupTool returns the named tool.
func LookupTool(name string) (Tool, bool) {
	toolsMu.RLock()
	defer toolsMu.RUnlock()
	t, ok := tools[name]
	return t, ok
}

// ToolNames returns the registered tool names, sorted.
func ToolNames() []string {
	toolsMu.RLock()
	defer toolsMu.RUnlock()
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveTools maps names to registered tools. Unknown names are dropped.
func ResolveTools(agentName string, names []string) []Tool {
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		t, ok := LookupTool(name)
		if !ok {
			xlog.Debug("Dropping unknown tool", "agent", agentName, "tool", name)
			continue
		}
		out = append(out, t)
	}
	return out
}
