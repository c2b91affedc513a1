// Package architectures ships the built-in catalog of agent definitions.
// Each entry is a YAML definition tree that the builder turns into a
// runnable agent.
package architectures

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/builder"
	"github.com/aixgo-dev/agentarch/pkg/config"
)

//go:embed catalog/*.yaml
var catalogFS embed.FS

// ErrNotFound is returned for names missing from the catalog.
var ErrNotFound = errors.New("architecture not in catalog")

// Default is the entry used when none is named.
const Default = "default"

// List returns the catalog entry names, sorted.
func List() []string {
	entries, err := fs.ReadDir(catalogFS, "catalog")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Source returns the raw YAML of an entry.
func Source(name string) ([]byte, error) {
	if name == "" {
		name = Default
	}
	if strings.ContainsAny(name, `/\.`) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	data, err := catalogFS.ReadFile(path.Join("catalog", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, nil
}

// Load parses and validates an entry.
func Load(name string) (*config.Node, error) {
	data, err := Source(name)
	if err != nil {
		return nil, err
	}
	node, err := config.NewLoader().Parse(data, config.FormatYAML)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", name, err)
	}
	return node, nil
}

// Build loads an entry and constructs its agent tree.
func Build(name string, deps builder.Deps) (agent.Agent, error) {
	node, err := Load(name)
	if err != nil {
		return nil, err
	}
	return builder.Build(node, deps)
}
