package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
)

func equalWeights(string) float64 { return 1.0 }

func TestCombineScenario1PositiveYesEdge(t *testing.T) {
	forecasts := []ModelForecast{
		{Model: "a", RawProbability: 0.75, Entropy: 2.0},
		{Model: "b", RawProbability: 0.72, Entropy: 2.0},
		{Model: "c", RawProbability: 0.70, Entropy: 2.0},
	}
	r := Combine(forecasts, equalWeights, equalWeights, 4.0)
	assert.InDelta(t, 0.7233, r.Probability, 1e-3)
	assert.InDelta(t, 2.0, r.Entropy, 1e-9)
	assert.Equal(t, domain.TierHigh, r.Tier)
}

func TestCombineScenario2NegativeEdge(t *testing.T) {
	forecasts := []ModelForecast{
		{Model: "a", RawProbability: 0.60, Entropy: 2.0},
		{Model: "b", RawProbability: 0.55, Entropy: 2.0},
		{Model: "c", RawProbability: 0.50, Entropy: 2.0},
	}
	r := Combine(forecasts, equalWeights, equalWeights, 4.0)
	assert.InDelta(t, 0.55, r.Probability, 1e-9)
	assert.Equal(t, domain.TierHigh, r.Tier)
}

func TestCombineScenario3LowTierBlocksTrade(t *testing.T) {
	forecasts := []ModelForecast{
		{Model: "a", RawProbability: 0.75, Entropy: 7.0},
		{Model: "b", RawProbability: 0.72, Entropy: 7.0},
		{Model: "c", RawProbability: 0.70, Entropy: 7.0},
	}
	r := Combine(forecasts, equalWeights, equalWeights, 4.0)
	assert.Equal(t, domain.TierLow, r.Tier)
}

func TestCombineNoForecastsFallback(t *testing.T) {
	r := Combine(nil, equalWeights, equalWeights, 4.0)
	assert.Equal(t, FallbackProbability, r.Probability)
	assert.Equal(t, FallbackEntropy, r.Entropy)
	assert.Equal(t, domain.TierLow, r.Tier)
}

func TestCombineAllModelsKilledFallback(t *testing.T) {
	forecasts := []ModelForecast{
		{Model: "a", RawProbability: 0.6, Entropy: 2.0},
		{Model: "b", RawProbability: 0.8, Entropy: 2.0},
	}
	zero := func(string) float64 { return 0 }
	r := Combine(forecasts, zero, equalWeights, 4.0)
	assert.InDelta(t, 0.7, r.Probability, 1e-9) // arithmetic mean fallback
	assert.Equal(t, ZeroWeightEntropy, r.Entropy)
	assert.Equal(t, domain.TierLow, r.Tier)
}

func TestCombineInvariantProbabilityAndEntropyBounds(t *testing.T) {
	forecasts := []ModelForecast{
		{Model: "a", RawProbability: 0.3, Entropy: 1.5},
		{Model: "b", RawProbability: 0.9, Entropy: 3.5},
	}
	r := Combine(forecasts, equalWeights, equalWeights, 4.0)
	assert.GreaterOrEqual(t, r.Probability, 0.0)
	assert.LessOrEqual(t, r.Probability, 1.0)
	assert.GreaterOrEqual(t, r.Entropy, 0.0)
}
