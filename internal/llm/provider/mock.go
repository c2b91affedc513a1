package provider

import (
	"context"
	"fmt"
	"sync"
)

func init() {
	RegisterFactory("mock", func(map[string]any) (Provider, error) {
		return NewMockProvider(), nil
	})
}

// MockProvider returns scripted responses per calling agent. It backs
// tests and offline runs of the catalog with "mock-*" models.
type MockProvider struct {
	mu       sync.Mutex
	scripts  map[string][]string
	failures map[string]error
	fallback func(CompletionRequest) string
	calls    []CompletionRequest
}

// NewMockProvider creates an empty mock. Unscripted agents receive an echo
// of the last user message.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		scripts:  make(map[string][]string),
		failures: make(map[string]error),
	}
}

// Script queues responses for agent. Each call consumes one response; the
// last one repeats once the queue is drained.
func (m *MockProvider) Script(agent string, responses ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[agent] = append(m.scripts[agent], responses...)
	return m
}

// Fail makes every call from agent return err.
func (m *MockProvider) Fail(agent string, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[agent] = err
	return m
}

// Fallback sets the responder for unscripted agents.
func (m *MockProvider) Fallback(fn func(CompletionRequest) string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = fn
	return m
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	return "mock"
}

// CreateCompletion returns the next scripted response for req.Agent
func (m *MockProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)

	if err, ok := m.failures[req.Agent]; ok {
		return nil, err
	}

	var content string
	switch queue := m.scripts[req.Agent]; {
	case len(queue) > 1:
		content = queue[0]
		m.scripts[req.Agent] = queue[1:]
	case len(queue) == 1:
		content = queue[0]
	case m.fallback != nil:
		content = m.fallback(req)
	default:
		content = fmt.Sprintf("[%s] %s", req.Agent, req.LastUserMessage())
	}

	return &CompletionResponse{
		Content:      content,
		FinishReason: "stop",
		Usage:        Usage{PromptTokens: len(req.System) / 4, CompletionTokens: len(content) / 4},
	}, nil
}

// Calls returns every request received, in order.
func (m *MockProvider) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsFor counts the requests made by agent.
func (m *MockProvider) CallsFor(agent string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Agent == agent {
			n++
		}
	}
	return n
}
