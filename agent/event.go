package agent

import (
	"strings"
	"time"
)

// Roles used in Content.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is a single piece of content. Only text parts are modelled.
type Part struct {
	Text string `json:"text,omitempty"`
}

// Content is a role-tagged list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// NewTextContent creates a Content holding one text part.
func NewTextContent(role, text string) *Content {
	return &Content{Role: role, Parts: []Part{{Text: text}}}
}

// Text concatenates the text of all parts.
func (c *Content) Text() string {
	if c == nil {
		return ""
	}
	if len(c.Parts) == 1 {
		return c.Parts[0].Text
	}
	var sb strings.Builder
	for _, p := range c.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// EventActions are the side effects attached to an event.
type EventActions struct {
	// StateDelta is merged into session state when the event is emitted.
	StateDelta map[string]any `json:"state_delta,omitempty"`

	// Escalate asks the enclosing loop to stop.
	Escalate bool `json:"escalate,omitempty"`
}

// Event is the unit of output produced by agents during an invocation.
type Event struct {
	ID           string       `json:"id"`
	InvocationID string       `json:"invocation_id"`
	Author       string       `json:"author"`
	Content      *Content     `json:"content,omitempty"`
	Actions      EventActions `json:"actions"`
	Timestamp    time.Time    `json:"timestamp"`
}

// TextEvent creates a model-authored event carrying text.
func TextEvent(author, text string) Event {
	return Event{
		Author:  author,
		Content: NewTextContent(RoleModel, text),
	}
}

// Text returns the event's text content.
func (e Event) Text() string {
	return e.Content.Text()
}

// HasText reports whether the event carries non-empty text.
func (e Event) HasText() bool {
	return e.Content != nil && e.Content.Text() != ""
}
