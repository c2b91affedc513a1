package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

func init() {
	RegisterFactory("bedrock", func(config map[string]any) (Provider, error) {
		cfg, err := loadAWSConfig(context.Background(), stringSetting(config, "region", "AWS_REGION", ""))
		if err != nil {
			return nil, err
		}
		return NewBedrockProvider(bedrockruntime.NewFromConfig(cfg)), nil
	})
}

// ConverseClient is the subset of the Bedrock runtime client used here
type ConverseClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockProvider implements Provider with the Bedrock Converse API
type BedrockProvider struct {
	client ConverseClient
}

// NewBedrockProvider creates a provider over client
func NewBedrockProvider(client ConverseClient) *BedrockProvider {
	return &BedrockProvider{client: client}
}

// Name returns the provider name
func (p *BedrockProvider) Name() string {
	return "bedrock"
}

// CreateCompletion runs a Converse call
func (p *BedrockProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(strings.TrimPrefix(req.Model, "bedrock/")),
		Messages: make([]types.Message, 0, len(req.Messages)),
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(float32(req.Temperature)),
		},
	}
	if req.MaxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(int32(req.MaxTokens))
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}
	for _, m := range req.Messages {
		role := types.ConversationRoleUser
		if m.Role == RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		input.Messages = append(input.Messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}

	out, err := p.client.Converse(ctx, input)
	if err != nil {
		return nil, NewProviderError("bedrock", ErrorCodeUnknown, "converse failed", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, NewProviderError("bedrock", ErrorCodeEmptyResponse, "no message in converse output", nil)
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}

	resp := &CompletionResponse{
		Content:      sb.String(),
		FinishReason: string(out.StopReason),
	}
	if u := out.Usage; u != nil {
		resp.Usage = Usage{
			PromptTokens:     int(aws.ToInt32(u.InputTokens)),
			CompletionTokens: int(aws.ToInt32(u.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(u.TotalTokens)),
		}
	}
	return resp, nil
}

// ListBedrockModels returns the foundation model ids available in region
func ListBedrockModels(ctx context.Context, region string) ([]string, error) {
	cfg, err := loadAWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	out, err := bedrock.NewFromConfig(cfg).ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	if err != nil {
		return nil, fmt.Errorf("list foundation models: %w", err)
	}
	ids := make([]string, 0, len(out.ModelSummaries))
	for _, s := range out.ModelSummaries {
		ids = append(ids, aws.ToString(s.ModelId))
	}
	sort.Strings(ids)
	return ids, nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return cfg, nil
}
