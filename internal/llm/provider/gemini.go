package provider

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/mudler/xlog"
	"google.golang.org/genai"
)

const geminiClientTimeout = 30 * time.Second

func init() {
	RegisterFactory("gemini", func(config map[string]any) (Provider, error) {
		if useVertex(config) {
			project := stringSetting(config, "project_id", "GOOGLE_CLOUD_PROJECT", "")
			if project == "" {
				return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT not set")
			}
			location := stringSetting(config, "location", "GOOGLE_CLOUD_LOCATION", "us-central1")
			return NewGeminiProvider(&genai.ClientConfig{
				Project:  project,
				Location: location,
				Backend:  genai.BackendVertexAI,
			})
		}

		apiKey := stringSetting(config, "api_key", "GOOGLE_API_KEY", "")
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY not set")
		}
		return NewGeminiProvider(&genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
}

// GeminiProvider implements Provider with the Google Gen AI SDK, against
// either the Gemini API or Vertex AI.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider from a client config.
func NewGeminiProvider(cc *genai.ClientConfig) (*GeminiProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), geminiClientTimeout)
	defer cancel()

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gen AI client: %w", err)
	}
	xlog.Debug("Gemini client initialized", "vertexai", cc.Backend == genai.BackendVertexAI)
	return &GeminiProvider{client: client}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// CreateCompletion generates content for the request
func (p *GeminiProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 && req.MaxTokens <= math.MaxInt32 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	config.Tools = geminiTools(req.BuiltinTools)

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, geminiContents(req.Messages), config)
	if err != nil {
		return nil, NewProviderError("gemini", ErrorCodeUnknown, "generate content failed", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, NewProviderError("gemini", ErrorCodeEmptyResponse, "no candidates in response", nil)
	}

	out := &CompletionResponse{
		Content:      resp.Text(),
		FinishReason: strings.ToLower(string(resp.Candidates[0].FinishReason)),
	}
	if md := resp.UsageMetadata; md != nil {
		out.Usage = Usage{
			PromptTokens:     int(md.PromptTokenCount),
			CompletionTokens: int(md.CandidatesTokenCount),
			TotalTokens:      int(md.TotalTokenCount),
		}
	}
	return out, nil
}

func geminiContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}

func geminiTools(names []string) []*genai.Tool {
	var tools []*genai.Tool
	for _, name := range names {
		switch name {
		case ToolGoogleSearch:
			tools = append(tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
		case ToolCodeExecutor:
			tools = append(tools, &genai.Tool{CodeExecution: &genai.ToolCodeExecution{}})
		}
	}
	return tools
}

func useVertex(config map[string]any) bool {
	if v, ok := config["vertexai"].(bool); ok {
		return v
	}
	v := strings.ToLower(os.Getenv("GOOGLE_GENAI_USE_VERTEXAI"))
	return v == "true" || v == "1"
}

// stringSetting reads key from config, then env, then def.
func stringSetting(config map[string]any, key, env, def string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}
