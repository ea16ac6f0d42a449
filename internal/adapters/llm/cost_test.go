package llm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEstimateCostUsesKnownModelRate(t *testing.T) {
	got := EstimateCost("openai", "gpt-4o-mini", 1_000_000, 1_000_000)
	want := decimal.NewFromFloat(0.15).Add(decimal.NewFromFloat(0.60))
	assert.True(t, got.Equal(want))
}

func TestEstimateCostFallsBackToProviderDefault(t *testing.T) {
	got := EstimateCost("anthropic", "some-future-model", 1_000_000, 0)
	assert.True(t, got.Equal(decimal.NewFromFloat(3.0)))
}

func TestEstimateCostFallsBackToGenericDefault(t *testing.T) {
	got := EstimateCost("unknown-provider", "unknown-model", 1_000_000, 0)
	assert.True(t, got.Equal(decimal.NewFromFloat(1.0)))
}
