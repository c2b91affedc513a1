package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/aixgo-dev/agentarch/internal/llm/cost"
	"github.com/aixgo-dev/agentarch/internal/observability"
	metrics "github.com/aixgo-dev/agentarch/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedProvider wraps a Provider with tracing and call metrics
type InstrumentedProvider struct {
	provider Provider
}

// Instrument wraps p. It is usable directly as a Registry wrapper.
func Instrument(p Provider) Provider {
	if _, ok := p.(*InstrumentedProvider); ok {
		return p
	}
	return &InstrumentedProvider{provider: p}
}

// Name returns the wrapped provider's name
func (p *InstrumentedProvider) Name() string {
	return p.provider.Name()
}

// Unwrap returns the wrapped provider
func (p *InstrumentedProvider) Unwrap() Provider {
	return p.provider
}

// CreateCompletion creates a completion inside a span and records its
// duration and token usage
func (p *InstrumentedProvider) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	name := p.provider.Name()
	ctx, span := observability.StartSpanWithOtel(ctx, fmt.Sprintf("llm.%s.completion", name),
		trace.WithAttributes(
			attribute.String("llm.provider", name),
			attribute.String("llm.model", request.Model),
			attribute.String("llm.agent", request.Agent),
			attribute.Float64("llm.temperature", request.Temperature),
			attribute.Int("llm.messages_count", len(request.Messages)),
			attribute.StringSlice("llm.builtin_tools", request.BuiltinTools),
		),
	)
	defer span.End()

	start := time.Now()
	response, err := p.provider.CreateCompletion(ctx, request)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		metrics.RecordModelCall(name, request.Model, err, duration, 0, 0)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", response.Usage.PromptTokens),
		attribute.Int("llm.usage.completion_tokens", response.Usage.CompletionTokens),
		attribute.String("llm.finish_reason", response.FinishReason),
		attribute.Int64("llm.duration_ms", duration.Milliseconds()),
	)
	metrics.RecordModelCall(name, request.Model, nil, duration, response.Usage.PromptTokens, response.Usage.CompletionTokens)
	if usd, ok := cost.DefaultCalculator.Estimate(request.Model, response.Usage.PromptTokens, response.Usage.CompletionTokens); ok {
		span.SetAttributes(attribute.Float64("llm.cost_usd", usd))
		metrics.RecordModelCost(name, request.Model, usd)
	}
	return response, nil
}
