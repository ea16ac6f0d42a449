// Package tracker polls exchange adapters for newly resolved markets and
// records per-forecast Brier scores as Outcome rows.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

// LookbackHours bounds how far back each adapter is asked to report
// resolutions, wide enough to tolerate a missed tick of the check job.
const LookbackHours = 26

// CheckNewOutcomes asks every adapter for markets resolved since now minus
// LookbackHours, marks them resolved in the store, and inserts one Outcome
// per existing Forecast on that market. Returns the number of outcomes
// recorded. A single adapter's failure is logged and does not prevent the
// others from being processed.
func CheckNewOutcomes(ctx context.Context, store ports.Store, adapters []ports.ExchangeAdapter) (int, error) {
	since := time.Now().UTC().Add(-LookbackHours * time.Hour)

	var mu sync.Mutex
	var allResolved []domain.Market
	var wg sync.WaitGroup
	for _, adapter := range adapters {
		wg.Add(1)
		go func(a ports.ExchangeAdapter) {
			defer wg.Done()
			markets, err := a.ListResolved(ctx, since)
			if err != nil {
				slog.Error("tracker: resolution check failed", "exchange", a.Name(), "err", err)
				return
			}
			mu.Lock()
			allResolved = append(allResolved, markets...)
			mu.Unlock()
		}(adapter)
	}
	wg.Wait()

	newOutcomes := 0
	for _, m := range allResolved {
		if m.Outcome == nil {
			continue
		}

		existing, err := store.GetMarket(ctx, m.ID)
		if err != nil {
			return newOutcomes, fmt.Errorf("tracker.CheckNewOutcomes: get market %s: %w", m.ID, err)
		}
		if existing != nil && existing.Resolved {
			// Already processed on a prior tick; adapters keep reporting
			// resolved markets for the whole lookback window.
			continue
		}

		if err := store.UpsertMarket(ctx, m); err != nil {
			return newOutcomes, fmt.Errorf("tracker.CheckNewOutcomes: upsert market %s: %w", m.ID, err)
		}

		forecasts, err := store.ForecastsForMarket(ctx, m.ID)
		if err != nil {
			return newOutcomes, fmt.Errorf("tracker.CheckNewOutcomes: forecasts for %s: %w", m.ID, err)
		}

		for _, f := range forecasts {
			brier := domain.Brier(f.RawProbability, *m.Outcome)
			outcome := domain.Outcome{
				MarketID:      m.ID,
				ForecastID:    f.ID,
				Domain:        m.Domain,
				Model:         f.Model,
				PromptVersion: f.PromptVersion,
				PredictedProb: f.RawProbability,
				ActualOutcome: *m.Outcome,
				Brier:         brier,
				Entropy:       f.Entropy,
				ResolvedAt:    time.Now().UTC(),
			}
			if err := store.InsertOutcome(ctx, outcome); err != nil {
				return newOutcomes, fmt.Errorf("tracker.CheckNewOutcomes: insert outcome: %w", err)
			}
			newOutcomes++
		}
	}

	if newOutcomes > 0 {
		slog.Info("tracker: recorded new outcomes", "count", newOutcomes)
	}
	return newOutcomes, nil
}
