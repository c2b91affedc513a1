package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gemini-2.5-flash-lite", "gemini"},
		{"models/gemini-2.0-flash", "gemini"},
		{"something-unknown", "gemini"},
		{"mock-model", "mock"},
		{"gpt-4o-mini", "openai"},
		{"o3-mini", "openai"},
		{"claude-sonnet-4", "anthropic"},
		{"bedrock/anthropic.claude-3-haiku", "bedrock"},
		{"anthropic.claude-3-haiku-20240307-v1:0", "bedrock"},
		{"us.amazon.nova-lite-v1:0", "bedrock"},
		{"Meta.Llama3", "bedrock"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectProvider(tt.model))
		})
	}
}

func TestFactories(t *testing.T) {
	names := Factories()
	for _, want := range []string{"anthropic", "bedrock", "gemini", "mock", "openai"} {
		assert.Contains(t, names, want)
	}

	_, err := Create("nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry(t *testing.T) {
	t.Run("creates and caches", func(t *testing.T) {
		r := NewRegistry()
		p1, err := r.ForModel("mock-a")
		require.NoError(t, err)
		p2, err := r.ForModel("mock-b")
		require.NoError(t, err)
		assert.Same(t, p1, p2)
		assert.Equal(t, "mock", p1.Name())
	})

	t.Run("pinned provider", func(t *testing.T) {
		m := NewMockProvider()
		r := NewRegistry(WithProvider("gemini", m))
		p, err := r.ForModel("gemini-2.5-flash-lite")
		require.NoError(t, err)
		assert.Same(t, m, p)
	})

	t.Run("wrapper applied to created providers", func(t *testing.T) {
		r := NewRegistry(WithWrapper(Instrument))
		p, err := r.Get("mock")
		require.NoError(t, err)
		_, ok := p.(*InstrumentedProvider)
		assert.True(t, ok)
	})

	t.Run("factory error surfaces", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		r := NewRegistry()
		_, err := r.ForModel("gpt-4o")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	})
}

func TestSingle(t *testing.T) {
	m := NewMockProvider()
	p, err := Single{Provider: m}.ForModel("anything")
	require.NoError(t, err)
	assert.Same(t, m, p)
}

func TestMockProvider(t *testing.T) {
	ctx := context.Background()
	req := func(agent, text string) CompletionRequest {
		return CompletionRequest{Agent: agent, Messages: []Message{{Role: RoleUser, Content: text}}}
	}

	t.Run("script consumed then last repeats", func(t *testing.T) {
		m := NewMockProvider().Script("A", "one", "two")
		var got []string
		for i := 0; i < 3; i++ {
			resp, err := m.CreateCompletion(ctx, req("A", "hi"))
			require.NoError(t, err)
			got = append(got, resp.Content)
		}
		assert.Equal(t, []string{"one", "two", "two"}, got)
		assert.Equal(t, 3, m.CallsFor("A"))
	})

	t.Run("echo default", func(t *testing.T) {
		resp, err := NewMockProvider().CreateCompletion(ctx, req("B", "hello"))
		require.NoError(t, err)
		assert.Equal(t, "[B] hello", resp.Content)
	})

	t.Run("fallback", func(t *testing.T) {
		m := NewMockProvider().Fallback(func(r CompletionRequest) string { return "fb:" + r.Agent })
		resp, err := m.CreateCompletion(ctx, req("C", "x"))
		require.NoError(t, err)
		assert.Equal(t, "fb:C", resp.Content)
	})

	t.Run("failure", func(t *testing.T) {
		boom := errors.New("boom")
		m := NewMockProvider().Fail("D", boom)
		_, err := m.CreateCompletion(ctx, req("D", "x"))
		assert.ErrorIs(t, err, boom)
		assert.Len(t, m.Calls(), 1)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewMockProvider().CreateCompletion(cctx, req("E", "x"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLastUserMessage(t *testing.T) {
	r := CompletionRequest{Messages: []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
		{Role: RoleAssistant, Content: "tail"},
	}}
	assert.Equal(t, "second", r.LastUserMessage())
	assert.Equal(t, "", CompletionRequest{}.LastUserMessage())
}

type fakeChatClient struct {
	got  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestOpenAIProvider(t *testing.T) {
	fc := &fakeChatClient{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "hi there"},
			FinishReason: openai.FinishReasonStop,
		}},
		Usage: openai.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
	}}
	p := NewOpenAIProvider(fc)

	resp, err := p.CreateCompletion(context.Background(), CompletionRequest{
		Model:  "gpt-4o-mini",
		System: "be brief",
		Messages: []Message{
			{Role: RoleUser, Content: "hello"},
			{Role: RoleAssistant, Content: "hey"},
			{Role: RoleUser, Content: "again"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, 5, resp.Usage.TotalTokens)

	require.Len(t, fc.got.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, fc.got.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, fc.got.Messages[2].Role)

	t.Run("no choices", func(t *testing.T) {
		_, err := NewOpenAIProvider(&fakeChatClient{}).CreateCompletion(context.Background(), CompletionRequest{})
		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, ErrorCodeEmptyResponse, perr.Code)
	})
}

type fakeConverse struct {
	got *bedrockruntime.ConverseInput
	out *bedrockruntime.ConverseOutput
	err error
}

func (f *fakeConverse) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.got = in
	return f.out, f.err
}

func TestBedrockProvider(t *testing.T) {
	fc := &fakeConverse{out: &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role:    types.ConversationRoleAssistant,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: "a"}, &types.ContentBlockMemberText{Value: "b"}},
		}},
		StopReason: types.StopReasonEndTurn,
		Usage:      &types.TokenUsage{InputTokens: aws.Int32(4), OutputTokens: aws.Int32(1), TotalTokens: aws.Int32(5)},
	}}

	resp, err := NewBedrockProvider(fc).CreateCompletion(context.Background(), CompletionRequest{
		Model:    "bedrock/anthropic.claude-3-haiku",
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "q"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ab", resp.Content)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
	assert.Equal(t, "anthropic.claude-3-haiku", aws.ToString(fc.got.ModelId))
	require.Len(t, fc.got.System, 1)

	t.Run("error wrapped", func(t *testing.T) {
		boom := errors.New("throttled")
		_, err := NewBedrockProvider(&fakeConverse{err: boom}).CreateCompletion(context.Background(), CompletionRequest{})
		assert.ErrorIs(t, err, boom)
	})
}

func TestInstrument(t *testing.T) {
	m := NewMockProvider().Script("A", "ok")
	p := Instrument(m)
	assert.Same(t, p, Instrument(p))
	assert.Equal(t, "mock", p.Name())

	resp, err := p.CreateCompletion(context.Background(), CompletionRequest{Agent: "A", Model: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)

	boom := errors.New("boom")
	m.Fail("B", boom)
	_, err = p.CreateCompletion(context.Background(), CompletionRequest{Agent: "B", Model: "mock"})
	assert.ErrorIs(t, err, boom)
}
