// Package cost estimates the spend of model calls from token usage.
package cost

import (
	"sort"
	"strings"
	"sync"
)

// ModelPricing is the list price of a model family in USD per million tokens.
type ModelPricing struct {
	Model       string
	InputPer1M  float64
	OutputPer1M float64
}

// Calculator maps model identifiers to pricing. Lookups match the exact
// model first, then the longest registered prefix.
type Calculator struct {
	mu       sync.RWMutex
	pricing  map[string]ModelPricing
	prefixes []string
}

// NewCalculator creates a calculator loaded with list prices for the
// supported providers.
func NewCalculator() *Calculator {
	c := &Calculator{pricing: make(map[string]ModelPricing)}
	for _, p := range defaultPricing {
		c.AddPricing(p)
	}
	return c
}

// Prices as of 2025; mock models are free.
var defaultPricing = []ModelPricing{
	{Model: "gemini-2.5-pro", InputPer1M: 1.25, OutputPer1M: 10.0},
	{Model: "gemini-2.5-flash", InputPer1M: 0.30, OutputPer1M: 2.50},
	{Model: "gemini-2.5-flash-lite", InputPer1M: 0.10, OutputPer1M: 0.40},
	{Model: "gemini-2.0-flash", InputPer1M: 0.10, OutputPer1M: 0.40},
	{Model: "gpt-4o", InputPer1M: 2.5, OutputPer1M: 10.0},
	{Model: "gpt-4o-mini", InputPer1M: 0.15, OutputPer1M: 0.60},
	{Model: "gpt-4.1", InputPer1M: 2.0, OutputPer1M: 8.0},
	{Model: "gpt-4.1-mini", InputPer1M: 0.40, OutputPer1M: 1.60},
	{Model: "o3-mini", InputPer1M: 1.10, OutputPer1M: 4.40},
	{Model: "claude-3-5-haiku", InputPer1M: 0.80, OutputPer1M: 4.0},
	{Model: "claude-sonnet-4", InputPer1M: 3.0, OutputPer1M: 15.0},
	{Model: "claude-opus-4", InputPer1M: 15.0, OutputPer1M: 75.0},
	{Model: "bedrock/anthropic.claude-3-5-haiku", InputPer1M: 0.80, OutputPer1M: 4.0},
	{Model: "bedrock/amazon.nova-lite", InputPer1M: 0.06, OutputPer1M: 0.24},
	{Model: "mock", InputPer1M: 0, OutputPer1M: 0},
}

// AddPricing adds or replaces the pricing of p.Model.
func (c *Calculator) AddPricing(p ModelPricing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pricing[p.Model]; !ok {
		c.prefixes = append(c.prefixes, p.Model)
		sort.Slice(c.prefixes, func(i, j int) bool {
			if len(c.prefixes[i]) != len(c.prefixes[j]) {
				return len(c.prefixes[i]) > len(c.prefixes[j])
			}
			return c.prefixes[i] < c.prefixes[j]
		})
	}
	c.pricing[p.Model] = p
}

// Pricing returns the pricing that applies to model.
func (c *Calculator) Pricing(model string) (ModelPricing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.pricing[model]; ok {
		return p, true
	}
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(model, prefix) {
			return c.pricing[prefix], true
		}
	}
	return ModelPricing{}, false
}

// Estimate returns the USD cost of a call, and false for unpriced models.
func (c *Calculator) Estimate(model string, promptTokens, completionTokens int) (float64, bool) {
	p, ok := c.Pricing(model)
	if !ok {
		return 0, false
	}
	usd := float64(promptTokens)/1_000_000*p.InputPer1M +
		float64(completionTokens)/1_000_000*p.OutputPer1M
	return usd, true
}

// Models returns every priced model, sorted.
func (c *Calculator) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	models := make([]string, 0, len(c.pricing))
	for m := range c.pricing {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// DefaultCalculator is the calculator used by instrumented providers.
var DefaultCalculator = NewCalculator()
