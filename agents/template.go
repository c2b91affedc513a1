package agents

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aixgo-dev/agentarch/agent"
)

// ErrMissingStateKey is returned when an instruction references a state
// key that has not been set.
var ErrMissingStateKey = errors.New("missing state key")

// placeholder matches {key} and {key?}. JSON examples embedded in
// instructions, such as {"status": "SUCCESS"}, do not match.
var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(\?)?\}`)

// RenderInstruction substitutes state values into instruction. A {key}
// placeholder is required; {key?} renders as "" when key is unset.
// Non-string values are rendered as JSON.
func RenderInstruction(instruction string, state *agent.State) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(instruction, func(m string) string {
		sub := placeholder.FindStringSubmatch(m)
		key, optional := sub[1], sub[2] == "?"

		v, ok := state.Get(key)
		if !ok {
			if !optional {
				missing = append(missing, key)
			}
			return ""
		}
		if v == nil {
			return ""
		}
		return agent.Stringify(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingStateKey, strings.Join(missing, ", "))
	}
	return out, nil
}
