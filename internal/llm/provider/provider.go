package provider

import (
	"context"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// CreateCompletion sends the conversation and returns the model's text
	CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name (e.g., "gemini", "openai")
	Name() string
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider-native tool names.
const (
	ToolGoogleSearch = "google_search"
	ToolCodeExecutor = "code_executor"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents a completion request
type CompletionRequest struct {
	// Model is the model identifier as written in the agent definition
	Model string `json:"model"`

	// System is the rendered agent instruction
	System string `json:"system,omitempty"`

	// Messages is the conversation, oldest first, ending with the user turn
	Messages []Message `json:"messages"`

	// Temperature controls randomness; 0 is deterministic
	Temperature float64 `json:"temperature"`

	// MaxTokens caps the response length; 0 means provider default
	MaxTokens int `json:"max_tokens,omitempty"`

	// BuiltinTools names provider-native tools such as "google_search".
	// Providers without native support ignore them.
	BuiltinTools []string `json:"builtin_tools,omitempty"`

	// Agent is the name of the calling agent, used for tracing and tests
	Agent string `json:"agent,omitempty"`
}

// LastUserMessage returns the content of the final user message.
func (r CompletionRequest) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// CompletionResponse represents a completion response
type CompletionResponse struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider      string `json:"provider"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	OriginalError error  `json:"-"`
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.OriginalError != nil {
		return e.Provider + " error: " + e.Message + ": " + e.OriginalError.Error()
	}
	return e.Provider + " error: " + e.Message
}

// Unwrap returns the original error
func (e *ProviderError) Unwrap() error {
	return e.OriginalError
}

// Common error codes
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeAuthentication = "authentication_error"
	ErrorCodeEmptyResponse  = "empty_response"
	ErrorCodeUnknown        = "unknown_error"
)

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, original error) *ProviderError {
	return &ProviderError{
		Provider:      provider,
		Code:          code,
		Message:       message,
		OriginalError: original,
	}
}
