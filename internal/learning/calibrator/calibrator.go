// Package calibrator derives per-(domain, model) trade weights from recent
// forecast accuracy.
package calibrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

// RandomBaselineBrier is the Brier score of a constant-0.5 forecaster:
// (0.5 - outcome)^2 averaged over outcomes in {0,1} is 0.25.
const RandomBaselineBrier = 0.25

const lookbackDays = 90
const minSamples = 3

// Run groups outcomes from the last 90 days by (domain, model) and, for
// groups with at least 3 samples, updates the calibration row's Brier score
// and domain weight.
func Run(ctx context.Context, store ports.Store, batchSize int) error {
	since := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	outcomes, err := store.OutcomesSince(ctx, since)
	if err != nil {
		return fmt.Errorf("calibrator.Run: outcomes since: %w", err)
	}

	if len(outcomes) < batchSize {
		slog.Info("calibrator: skipping, not enough outcomes", "have", len(outcomes), "need", batchSize)
		return nil
	}

	type group struct {
		domain domain.Domain
		model  string
	}
	briers := make(map[group][]float64)
	for _, o := range outcomes {
		b, _ := o.Brier.Float64()
		g := group{domain: o.Domain, model: o.Model}
		briers[g] = append(briers[g], b)
	}

	for g, bs := range briers {
		if len(bs) < minSamples {
			continue
		}
		mean := average(bs)
		weight := brierToWeight(mean)

		state := domain.CalibrationState{
			Domain:       g.domain,
			Model:        g.model,
			BrierScore:   mean,
			NResolved:    len(bs),
			DomainWeight: weight,
			UpdatedAt:    time.Now().UTC(),
		}
		if existing, err := store.GetCalibration(ctx, g.domain, g.model); err == nil && existing != nil {
			state.EntropyThreshold = existing.EntropyThreshold
		}
		if err := store.UpsertCalibration(ctx, state); err != nil {
			return fmt.Errorf("calibrator.Run: upsert calibration: %w", err)
		}

		if mean > RandomBaselineBrier {
			slog.Warn("calibrator: domain underperforming random baseline",
				"domain", g.domain, "model", g.model, "brier", mean, "weight", weight)
		} else {
			slog.Info("calibrator: updated",
				"domain", g.domain, "model", g.model, "brier", mean, "n", len(bs), "weight", weight)
		}
	}

	return nil
}

func brierToWeight(brier float64) float64 {
	switch {
	case brier < 0.15:
		return 1.5
	case brier < 0.20:
		return 1.2
	case brier < RandomBaselineBrier:
		return 1.0
	case brier < 0.28:
		return 0.7
	default:
		return 0.3
	}
}

// BestWeight returns the model-weight-weighted average domain_weight across
// all calibration rows for a domain. Used by the forecast pipeline's
// domain-weight lookup, since a forecast is scored against an ensemble of
// models rather than a single one. Defaults to 1.0 when no calibration data
// exists for the domain.
func BestWeight(ctx context.Context, store ports.Store, d domain.Domain, modelWeight func(string) float64) (float64, error) {
	all, err := store.CalibrationsForDomain(ctx, d)
	if err != nil {
		return 0, fmt.Errorf("calibrator.BestWeight: calibrations: %w", err)
	}
	if len(all) == 0 {
		return 1.0, nil
	}

	var weightedSum, totalWeight float64
	for _, c := range all {
		mw := 1.0
		if modelWeight != nil {
			if w := modelWeight(c.Model); w > 0 {
				mw = w
			}
		}
		weightedSum += mw * c.DomainWeight
		totalWeight += mw
	}
	if totalWeight <= 0 {
		return 1.0, nil
	}
	return weightedSum / totalWeight, nil
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
