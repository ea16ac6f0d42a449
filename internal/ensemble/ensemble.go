// Package ensemble combines per-model forecasts into a single ensemble
// probability, entropy, and confidence tier using model x domain weights.
package ensemble

import (
	"log/slog"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/entropy"
)

// ModelForecast is one model's raw output, the minimal input the ensemble
// needs from a domain.Forecast.
type ModelForecast struct {
	Model          string
	RawProbability float64
	Entropy        float64
}

// FallbackProbability and FallbackEntropy, with domain.TierLow, are
// returned when there are no forecasts to combine at all.
const (
	FallbackProbability = 0.5
	FallbackEntropy     = 6.0
)

// ZeroWeightEntropy is used when every model's weight resolves to zero
// (e.g. all models killed), distinct from the no-forecasts fallback.
const ZeroWeightEntropy = 5.0

// Result is the combined ensemble output.
type Result struct {
	Probability float64
	Entropy     float64
	Tier        domain.ConfidenceTier
}

// Combine weights each forecast by modelWeight(model) * domainWeight(model)
// (both defaulting to 1.0 when missing), averages probability and entropy,
// and derives the confidence tier from the domain's entropy threshold tau.
func Combine(forecasts []ModelForecast, modelWeight func(model string) float64, domainWeight func(model string) float64, tau float64) Result {
	if len(forecasts) == 0 {
		return Result{Probability: FallbackProbability, Entropy: FallbackEntropy, Tier: domain.TierLow}
	}

	var weightedSum, weightTotal, entropySum float64
	for _, f := range forecasts {
		mw := 1.0
		if modelWeight != nil {
			mw = modelWeight(f.Model)
		}
		dw := 1.0
		if domainWeight != nil {
			dw = domainWeight(f.Model)
		}
		w := mw * dw
		if w <= 0 {
			continue
		}
		weightedSum += f.RawProbability * w
		entropySum += f.Entropy * w
		weightTotal += w
	}

	if weightTotal <= 0 {
		sum := 0.0
		for _, f := range forecasts {
			sum += f.RawProbability
		}
		return Result{Probability: sum / float64(len(forecasts)), Entropy: ZeroWeightEntropy, Tier: domain.TierLow}
	}

	prob := weightedSum / weightTotal
	ent := entropySum / weightTotal
	tier := entropy.Tier(ent, tau)

	slog.Debug("ensemble combined", "models", len(forecasts), "probability", prob, "entropy", ent, "tier", tier)
	return Result{Probability: prob, Entropy: ent, Tier: tier}
}
