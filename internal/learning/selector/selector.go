// Package selector reranks models by rolling Brier score and applies the
// kill switch for models that consistently forecast worse than random.
package selector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

const rollingWindowDays = 30

// MinSkill is the floor applied to a surviving model's skill score so a
// weak window (mean Brier at or near 0.25) never zeroes out its future
// rotation share.
const MinSkill = 0.01

// Run computes rolling 30-day Brier per active model, applies
// killBrier as the kill-switch cutoff, normalises surviving weights to sum
// to 1, and persists the result. Returns the new weight per model.
func Run(ctx context.Context, store ports.Store, activeModels []string, killBrier float64) (map[string]float64, error) {
	since := time.Now().UTC().AddDate(0, 0, -rollingWindowDays)
	outcomes, err := store.OutcomesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("selector.Run: outcomes since: %w", err)
	}

	byModel := make(map[string][]float64)
	for _, o := range outcomes {
		if o.Model == "" {
			continue
		}
		b, _ := o.Brier.Float64()
		byModel[o.Model] = append(byModel[o.Model], b)
	}

	existingWeights, err := store.AllModelWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("selector.Run: all model weights: %w", err)
	}
	priorWeight := make(map[string]float64, len(existingWeights))
	for _, w := range existingWeights {
		priorWeight[w.Model] = w.Weight
	}

	weights := make(map[string]float64, len(activeModels))
	meanBrierByModel := make(map[string]*float64, len(activeModels))
	nByModel := make(map[string]int, len(activeModels))

	for _, model := range activeModels {
		briers := byModel[model]
		if len(briers) == 0 {
			prior := priorWeight[model]
			if prior == 0 {
				prior = 1.0
			}
			weights[model] = prior
			nByModel[model] = 0
			continue
		}

		mean := average(briers)
		n := len(briers)
		meanBrierByModel[model] = &mean
		nByModel[model] = n

		if mean > killBrier {
			slog.Warn("selector: kill switch", "model", model, "brier", mean, "kill_brier", killBrier)
			weights[model] = 0
		} else {
			skill := 1.0 - mean/0.25
			if skill < MinSkill {
				skill = MinSkill
			}
			weights[model] = skill
		}
	}

	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total > 0 {
		for model, w := range weights {
			if w > 0 {
				weights[model] = w / total
			}
		}
	}

	for _, model := range activeModels {
		if err := store.UpsertModelWeight(ctx, domain.ModelWeight{
			Model:        model,
			Weight:       weights[model],
			RollingBrier: meanBrierByModel[model],
			NResolved:    nByModel[model],
			UpdatedAt:    time.Now().UTC(),
		}); err != nil {
			return nil, fmt.Errorf("selector.Run: upsert model weight: %w", err)
		}
	}

	slog.Info("selector: model weights updated", "weights", weights)
	return weights, nil
}

// CurrentWeights loads the persisted weight per model, falling back to
// configuredDefault for any model without a stored row.
func CurrentWeights(ctx context.Context, store ports.Store, activeModels []string, configuredDefault func(string) float64) (map[string]float64, error) {
	rows, err := store.AllModelWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("selector.CurrentWeights: all model weights: %w", err)
	}
	stored := make(map[string]float64, len(rows))
	for _, w := range rows {
		stored[w.Model] = w.Weight
	}

	out := make(map[string]float64, len(activeModels))
	for _, model := range activeModels {
		if w, ok := stored[model]; ok {
			out[model] = w
			continue
		}
		if configuredDefault != nil {
			out[model] = configuredDefault(model)
			continue
		}
		out[model] = 1.0
	}
	return out, nil
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
