// Package thresholds adapts each domain's confidence-entropy cutoff by
// comparing forecast accuracy above and below the current threshold.
package thresholds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

const (
	// CorrectBrierCutoff is the Brier score below which an outcome counts
	// as "correct" for separation scoring.
	CorrectBrierCutoff = 0.20

	// MinOutcomesForAdaptation is the minimum number of (outcome, entropy)
	// pairs required before a domain's threshold is touched.
	MinOutcomesForAdaptation = 20

	thresholdStep = 0.25
	minThreshold  = 1.0
	maxThreshold  = 8.0
	lookbackDays  = 60

	tightenSeparation = 0.10
	loosenSeparation  = 0.05
)

// Run adapts the entropy threshold for every domain with enough recent
// history, writing the new value to every (domain, model) calibration row
// that already exists for that domain. Domains with no existing calibration
// row cannot acquire a threshold this way — see the design note on Open
// Question (c).
func Run(ctx context.Context, store ports.Store, defaultThreshold float64) (map[domain.Domain]float64, error) {
	since := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	outcomes, err := store.OutcomesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("thresholds.Run: outcomes since: %w", err)
	}
	calibrations, err := store.AllCalibrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("thresholds.Run: all calibrations: %w", err)
	}

	currentThreshold := averageThresholdPerDomain(calibrations)

	type point struct {
		entropy float64
		correct bool
	}
	byDomain := make(map[domain.Domain][]point)
	for _, o := range outcomes {
		brier, _ := o.Brier.Float64()
		byDomain[o.Domain] = append(byDomain[o.Domain], point{
			entropy: o.Entropy,
			correct: brier < CorrectBrierCutoff,
		})
	}

	calsByDomain := make(map[domain.Domain][]domain.CalibrationState)
	for _, c := range calibrations {
		calsByDomain[c.Domain] = append(calsByDomain[c.Domain], c)
	}

	newThresholds := make(map[domain.Domain]float64)

	for d, points := range byDomain {
		if len(points) < MinOutcomesForAdaptation {
			slog.Debug("thresholds: not enough points", "domain", d, "have", len(points), "need", MinOutcomesForAdaptation)
			continue
		}

		tau := currentThreshold[d]
		if tau == 0 {
			tau = defaultThreshold
		}

		var below, above []bool
		for _, p := range points {
			if p.entropy < tau {
				below = append(below, p.correct)
			} else {
				above = append(above, p.correct)
			}
		}
		if len(below) == 0 || len(above) == 0 {
			continue
		}

		separation := fraction(below) - fraction(above)
		newTau := tau
		switch {
		case separation > tightenSeparation:
			newTau = tau - thresholdStep
			if newTau < minThreshold {
				newTau = minThreshold
			}
		case separation < loosenSeparation:
			newTau = tau + thresholdStep
			if newTau > maxThreshold {
				newTau = maxThreshold
			}
		}
		newThresholds[d] = newTau

		for _, c := range calsByDomain[d] {
			tauCopy := newTau
			c.EntropyThreshold = &tauCopy
			c.UpdatedAt = time.Now().UTC()
			if err := store.UpsertCalibration(ctx, c); err != nil {
				return nil, fmt.Errorf("thresholds.Run: upsert calibration: %w", err)
			}
		}

		slog.Info("thresholds: adapted", "domain", d, "from", tau, "to", newTau, "separation", separation)
	}

	return newThresholds, nil
}

func averageThresholdPerDomain(cals []domain.CalibrationState) map[domain.Domain]float64 {
	sums := make(map[domain.Domain]float64)
	counts := make(map[domain.Domain]int)
	for _, c := range cals {
		if c.EntropyThreshold == nil {
			continue
		}
		sums[c.Domain] += *c.EntropyThreshold
		counts[c.Domain]++
	}
	out := make(map[domain.Domain]float64, len(sums))
	for d, sum := range sums {
		out[d] = sum / float64(counts[d])
	}
	return out
}

func fraction(bs []bool) float64 {
	if len(bs) == 0 {
		return 0
	}
	var n int
	for _, b := range bs {
		if b {
			n++
		}
	}
	return float64(n) / float64(len(bs))
}
