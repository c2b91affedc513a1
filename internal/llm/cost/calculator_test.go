package cost

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingLookup(t *testing.T) {
	calc := NewCalculator()
	tests := []struct {
		model string
		want  string
		found bool
	}{
		{"gemini-2.5-flash-lite", "gemini-2.5-flash-lite", true},
		{"gemini-2.5-flash-preview-05", "gemini-2.5-flash", true},
		{"gpt-4o-mini-2024-07-18", "gpt-4o-mini", true},
		{"claude-sonnet-4-20250514", "claude-sonnet-4", true},
		{"mock-offline", "mock", true},
		{"llama3", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p, ok := calc.Pricing(tt.model)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, p.Model)
		})
	}
}

func TestEstimate(t *testing.T) {
	calc := &Calculator{pricing: map[string]ModelPricing{}}
	calc.AddPricing(ModelPricing{Model: "m", InputPer1M: 2, OutputPer1M: 10})

	usd, ok := calc.Estimate("m", 500_000, 100_000)
	require.True(t, ok)
	assert.InDelta(t, 2.0, usd, 1e-9)

	_, ok = calc.Estimate("other", 1, 1)
	assert.False(t, ok)
}

func TestAddPricingConcurrent(t *testing.T) {
	calc := NewCalculator()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			calc.AddPricing(ModelPricing{Model: "custom", InputPer1M: float64(i)})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = calc.Pricing("custom-v2")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, countOf(calc.Models(), "custom"))
}

func countOf(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}
