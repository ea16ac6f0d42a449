// Package forecaster runs the per-market forecast pipeline: classify,
// build news context, select a prompt, fan the roster out to the
// configured LLMs, combine via the ensemble, persist, and hand off to the
// trading executor.
package forecaster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdelacruz-oss/forecastbot/internal/classifier"
	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ensemble"
	"github.com/mdelacruz-oss/forecastbot/internal/learning/calibrator"
	"github.com/mdelacruz-oss/forecastbot/internal/learning/prompts"
	"github.com/mdelacruz-oss/forecastbot/internal/metrics"
	"github.com/mdelacruz-oss/forecastbot/internal/news"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
	"github.com/mdelacruz-oss/forecastbot/internal/trading/edge"
	"github.com/mdelacruz-oss/forecastbot/internal/trading/executor"
)

// LLMConcurrency bounds how many models are asked for a forecast
// simultaneously for a single market.
const LLMConcurrency = 3

// Pipeline bundles the dependencies needed to forecast and (optionally)
// trade every market handed to Run.
type Pipeline struct {
	Store     ports.Store
	LLM       ports.LLMProvider
	News      ports.NewsProvider
	Roster    []ports.ModelConfig
	Filter    edge.Filter
	PaperMode bool
	Metrics   *metrics.Registry

	// Semaphore gates concurrent LLM calls; normally the process-wide one
	// held on a core.Core. A nil Semaphore falls back to a pipeline-local
	// one sized by Concurrency (or LLMConcurrency), which is only safe
	// when no other pipeline run can be in flight at the same time.
	Semaphore   chan struct{}
	Concurrency int
}

// Run executes the ordered nine-step pipeline (§4.3) for one market. An
// unrecoverable step aborts only this market; the error is returned for
// the caller to log and move on. The returned summary is nil when an error
// aborted the run, and also (with a nil error) when no model produced a
// usable forecast.
func (p Pipeline) Run(ctx context.Context, market domain.Market, exchange ports.ExchangeAdapter) (*ports.ForecastSummary, error) {
	sem := p.Semaphore
	if sem == nil {
		concurrency := p.Concurrency
		if concurrency <= 0 {
			concurrency = LLMConcurrency
		}
		sem = make(chan struct{}, concurrency)
	}
	met := p.Metrics
	if met == nil {
		met = metrics.Default()
	}

	if market.Domain == domain.DomainUnknown {
		d, _, err := classifier.Classify(ctx, p.LLM, market.Question)
		if err != nil {
			return nil, fmt.Errorf("forecaster.Run: classify: %w", err)
		}
		market.Domain = d
		if err := p.Store.UpsertMarket(ctx, market); err != nil {
			return nil, fmt.Errorf("forecaster.Run: persist classification: %w", err)
		}
	}

	newsCtx, err := news.Build(ctx, p.News, market.Question, market.Domain)
	if err != nil {
		return nil, fmt.Errorf("forecaster.Run: news: %w", err)
	}

	prompt, err := prompts.Select(ctx, p.Store, market.Domain)
	if err != nil {
		return nil, fmt.Errorf("forecaster.Run: select prompt: %w", err)
	}

	modelWeights, err := p.Store.AllModelWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("forecaster.Run: model weights: %w", err)
	}
	weightByModel := make(map[string]float64, len(modelWeights))
	for _, w := range modelWeights {
		weightByModel[w.Model] = w.Weight
	}

	calibrations, err := p.Store.CalibrationsForDomain(ctx, market.Domain)
	if err != nil {
		return nil, fmt.Errorf("forecaster.Run: calibrations: %w", err)
	}
	domainWeightByModel := make(map[string]float64, len(calibrations))
	var tauSum float64
	var tauCount int
	for _, c := range calibrations {
		domainWeightByModel[c.Model] = c.DomainWeight
		tauSum += c.Threshold()
		tauCount++
	}
	tau := domain.DefaultEntropyThreshold
	if tauCount > 0 {
		tau = tauSum / float64(tauCount)
	}

	roster := make([]ports.ModelConfig, 0, len(p.Roster))
	for _, m := range p.Roster {
		w := m.Weight
		if configured, ok := weightByModel[m.Name]; ok {
			w = configured
		}
		if w > 0 {
			roster = append(roster, m)
		}
	}

	marketPriceStr := market.Price.StringFixed(4)
	userPrompt := prompt.Render(market.Question, string(market.Domain), newsCtx.Body, marketPriceStr)

	results := fanOut(ctx, p.LLM, roster, newsCtx.SystemPrefix, userPrompt, sem, met)

	if len(results) == 0 {
		slog.Warn("forecaster: no usable forecasts", "market", market.ID)
		return nil, nil
	}

	modelForecasts := make([]ensemble.ModelForecast, 0, len(results))
	for _, r := range results {
		modelForecasts = append(modelForecasts, ensemble.ModelForecast{
			Model:          r.model,
			RawProbability: r.result.Probability,
			Entropy:        r.result.Entropy,
		})
	}

	combined := ensemble.Combine(
		modelForecasts,
		func(model string) float64 {
			if w, ok := weightByModel[model]; ok {
				return w
			}
			return 1.0
		},
		func(model string) float64 {
			if w, ok := domainWeightByModel[model]; ok {
				return w
			}
			return 1.0
		},
		tau,
	)
	met.RecordEnsemble(string(market.Domain), combined.Probability, combined.Entropy)

	var lastForecastID int64
	forecasts := make([]domain.Forecast, 0, len(results))
	for _, r := range results {
		f := domain.Forecast{
			MarketID:            market.ID,
			Model:               r.model,
			PromptVersion:       prompt.PromptVersion,
			RawProbability:      decimal.NewFromFloat(r.result.Probability),
			Entropy:             r.result.Entropy,
			EnsembleProbability: decimal.NewFromFloat(combined.Probability),
			ConfidenceTier:      combined.Tier,
			ReasoningExcerpt:    domain.TruncateReasoning(r.result.Reasoning),
			NewsUsed:            newsCtx.UseNews,
			CreatedAt:           time.Now().UTC(),
		}
		id, err := p.Store.InsertForecast(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("forecaster.Run: insert forecast: %w", err)
		}
		f.ID = id
		lastForecastID = id
		forecasts = append(forecasts, f)
		met.RecordForecast(r.model, string(combined.Tier))
	}

	domainWeight, err := calibrator.BestWeight(ctx, p.Store, market.Domain, func(model string) float64 {
		if w, ok := weightByModel[model]; ok {
			return w
		}
		return 1.0
	})
	if err != nil {
		return nil, fmt.Errorf("forecaster.Run: best domain weight: %w", err)
	}

	intent := executor.Intent{
		Market:         market,
		ForecastID:     lastForecastID,
		EnsembleProb:   combined.Probability,
		ConfidenceTier: combined.Tier,
		DomainWeight:   domainWeight,
	}
	decision, err := executor.MaybeTrade(ctx, p.Store, exchange, p.Filter, p.PaperMode, intent)
	if err != nil {
		return nil, fmt.Errorf("forecaster.Run: maybe trade: %w", err)
	}
	if decision.Trade != nil {
		slog.Info("forecaster: traded", "market", market.ID, "side", decision.Trade.Side)
		mode := "live"
		if decision.Trade.IsPaper {
			mode = "paper"
		}
		edgeVal, _ := decision.Trade.Edge.Float64()
		met.RecordTrade(string(decision.Trade.Side), mode, edgeVal)
	} else if decision.Rejection != "" {
		slog.Debug("forecaster: no trade", "market", market.ID, "reason", decision.Rejection)
	}

	return &ports.ForecastSummary{
		Market:    market,
		Forecasts: forecasts,
		Trade:     decision.Trade,
		Rejection: decision.Rejection,
	}, nil
}

type modelResult struct {
	model  string
	result *ports.ForecastResult
}

// fanOut asks each roster model for a forecast under a shared concurrency
// semaphore. A model that errors or returns nil is dropped silently — the
// per-model failure taxonomy is "skip this model for this market", not a
// pipeline failure.
func fanOut(ctx context.Context, llm ports.LLMProvider, roster []ports.ModelConfig, systemPrompt, userPrompt string, sem chan struct{}, met *metrics.Registry) []modelResult {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var out []modelResult

	for _, cfg := range roster {
		wg.Add(1)
		go func(cfg ports.ModelConfig) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			res, err := llm.ForecastOne(ctx, cfg, systemPrompt, userPrompt)
			met.ObserveForecastLatency(cfg.Name, time.Since(start).Seconds())
			if err != nil {
				slog.Warn("forecaster: model failed", "model", cfg.Name, "err", err)
				met.RecordLLMError(cfg.Name, cfg.Provider)
				return
			}
			if res == nil {
				return
			}
			mu.Lock()
			out = append(out, modelResult{model: cfg.Name, result: res})
			mu.Unlock()
		}(cfg)
	}
	wg.Wait()
	return out
}
