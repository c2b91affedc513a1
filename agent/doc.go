// Package agent provides the core types for building agent trees.
//
// An agent tree is a root Agent whose composite nodes delegate to
// sub-agents. A tree is executed against an Invocation, which carries the
// user request and the session State shared by every agent in the tree.
//
// # Events and state
//
// Agents never return results directly. They emit events:
//
//	inv.Emit(agent.Event{
//	    Author:  a.Name(),
//	    Content: agent.NewTextContent(agent.RoleModel, text),
//	    Actions: agent.EventActions{
//	        StateDelta: map[string]any{"draft": text},
//	    },
//	})
//
// Emit merges the state delta into the shared state before the event is
// delivered, so a downstream agent reading "draft" observes the value.
//
// # Escalation
//
// An event with Actions.Escalate set raises the invocation's escalation
// flag. Loop agents check the flag after every sub-agent and stop when it
// is raised. This is how a checker agent ends a bounded retry loop early.
package agent
