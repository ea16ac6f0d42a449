// Package orchestrator schedules the six periodic jobs that drive the
// forecasting and trading loop: market scanning, price refresh, resolution
// tracking, forecasting, and the two learning cadences. Each job is
// isolated — a failure is logged and never propagates to another job or a
// later fire of the same one.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mdelacruz-oss/forecastbot/internal/core"
	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/forecaster"
	"github.com/mdelacruz-oss/forecastbot/internal/learning/calibrator"
	"github.com/mdelacruz-oss/forecastbot/internal/learning/prompts"
	"github.com/mdelacruz-oss/forecastbot/internal/learning/selector"
	"github.com/mdelacruz-oss/forecastbot/internal/learning/thresholds"
	"github.com/mdelacruz-oss/forecastbot/internal/learning/tracker"
	"github.com/mdelacruz-oss/forecastbot/internal/metrics"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
	"github.com/mdelacruz-oss/forecastbot/internal/scanner"
	"github.com/mdelacruz-oss/forecastbot/internal/trading/edge"
)

// Config holds every cadence and threshold the orchestrator needs to run
// its jobs, typically populated straight from environment configuration.
type Config struct {
	ScanInterval            time.Duration
	PriceUpdateInterval     time.Duration
	ResolutionCheckInterval time.Duration
	ForecastInterval        time.Duration
	SelfImprovementHour     int // 0-23 UTC
	PromptTournamentHour    int // 0-23 UTC, fires Monday

	ScanFilter  scanner.Filter
	TradeFilter edge.Filter
	Roster      []ports.ModelConfig
	PaperMode   bool

	CalibrationBatchSize      int
	ModelKillBrier            float64
	EntropyThresholdDefault   float64
	PromptTournamentMinTrials int
	RetireBrierGap            float64
	MaxVariantsPerDomain      int
}

// Orchestrator wires the Store, LLM roster, exchange adapters and notifier
// into the six scheduled jobs described by Config.
type Orchestrator struct {
	Store     ports.Store
	LLM       ports.LLMProvider
	News      ports.NewsProvider
	Exchanges []ports.ExchangeAdapter
	Notifier  ports.Notifier
	Metrics   *metrics.Registry
	Core      *core.Core
	Config    Config

	locks struct {
		scan        sync.Mutex
		prices      sync.Mutex
		resolutions sync.Mutex
		forecasts   sync.Mutex
		improvement sync.Mutex
		tournament  sync.Mutex
	}
}

// startup initialises the Store, seeds prompts, loads model weights, and
// fires one scan+forecast pair, matching the documented startup sequence.
func (o *Orchestrator) startup(ctx context.Context) error {
	if err := o.Store.Init(ctx); err != nil {
		return fmt.Errorf("orchestrator.startup: init store: %w", err)
	}
	if err := prompts.Seed(ctx, o.Store); err != nil {
		slog.Error("orchestrator: seed prompts failed", "err", err)
	}
	weights, err := o.Store.AllModelWeights(ctx)
	if err != nil {
		slog.Error("orchestrator: load model weights failed", "err", err)
	}
	slog.Info("orchestrator: starting", "models", len(o.Config.Roster), "weights", len(weights))

	o.runJob(ctx, "scan_markets", &o.locks.scan, o.scanMarkets)
	o.runJob(ctx, "run_forecasts", &o.locks.forecasts, o.runForecasts)
	return nil
}

// RunOnce performs the startup sequence (init, seed, load weights, one
// scan+forecast pair) and returns without scheduling any further jobs. Used
// by the CLI's --once mode.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	return o.startup(ctx)
}

// Run performs the startup sequence then blocks, firing jobs on their
// configured cadences until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.startup(ctx); err != nil {
		return err
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(fmt.Sprintf("0 %d * * *", o.Config.SelfImprovementHour), func() {
		o.runJob(ctx, "self_improvement", &o.locks.improvement, o.selfImprovement)
	}); err != nil {
		return fmt.Errorf("orchestrator.Run: schedule self_improvement: %w", err)
	}
	if _, err := c.AddFunc(fmt.Sprintf("0 %d * * 1", o.Config.PromptTournamentHour), func() {
		o.runJob(ctx, "prompt_tournament", &o.locks.tournament, o.promptTournament)
	}); err != nil {
		return fmt.Errorf("orchestrator.Run: schedule prompt_tournament: %w", err)
	}
	c.Start()
	defer c.Stop()

	scanTicker := time.NewTicker(o.Config.ScanInterval)
	defer scanTicker.Stop()
	priceTicker := time.NewTicker(o.Config.PriceUpdateInterval)
	defer priceTicker.Stop()
	resolutionTicker := time.NewTicker(o.Config.ResolutionCheckInterval)
	defer resolutionTicker.Stop()
	forecastTicker := time.NewTicker(o.Config.ForecastInterval)
	defer forecastTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("orchestrator: stopped")
			return nil
		case <-scanTicker.C:
			o.runJob(ctx, "scan_markets", &o.locks.scan, o.scanMarkets)
		case <-priceTicker.C:
			o.runJob(ctx, "update_prices", &o.locks.prices, o.updatePrices)
		case <-resolutionTicker.C:
			o.runJob(ctx, "check_resolutions", &o.locks.resolutions, o.checkResolutions)
		case <-forecastTicker.C:
			o.runJob(ctx, "run_forecasts", &o.locks.forecasts, o.runForecasts)
		}
	}
}

// runJob enforces max_instances=1 via a per-job TryLock, times the call,
// logs the outcome and records it to metrics. A job already in flight is
// skipped rather than queued.
func (o *Orchestrator) runJob(ctx context.Context, name string, mu *sync.Mutex, fn func(context.Context) error) {
	if !mu.TryLock() {
		slog.Debug("orchestrator: job still running, skipping fire", "job", name)
		return
	}
	defer mu.Unlock()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	met := o.Metrics
	if met == nil {
		met = metrics.Default()
	}
	status := "success"
	if err != nil {
		status = "failure"
		slog.Error("orchestrator: job failed", "job", name, "err", err, "duration", duration)
	} else {
		slog.Info("orchestrator: job completed", "job", name, "duration", duration)
	}
	met.RecordJob(name, status, duration.Seconds())
}

func (o *Orchestrator) scanMarkets(ctx context.Context) error {
	n, err := scanner.Scan(ctx, o.Exchanges, o.Store, o.Config.ScanFilter)
	if err != nil {
		return fmt.Errorf("orchestrator.scanMarkets: %w", err)
	}
	slog.Info("orchestrator: scan complete", "markets", n)
	return nil
}

func (o *Orchestrator) updatePrices(ctx context.Context) error {
	if err := scanner.RefreshPrices(ctx, o.Exchanges, o.Store); err != nil {
		return fmt.Errorf("orchestrator.updatePrices: %w", err)
	}
	return nil
}

func (o *Orchestrator) checkResolutions(ctx context.Context) error {
	n, err := tracker.CheckNewOutcomes(ctx, o.Store, o.Exchanges)
	if err != nil {
		return fmt.Errorf("orchestrator.checkResolutions: %w", err)
	}
	slog.Info("orchestrator: resolutions checked", "new_outcomes", n)

	if o.Core.RecordOutcomes(n) {
		slog.Info("orchestrator: incremental learning triggered")
		if err := calibrator.Run(ctx, o.Store, o.Config.CalibrationBatchSize); err != nil {
			return fmt.Errorf("orchestrator.checkResolutions: incremental calibration: %w", err)
		}
		if _, err := thresholds.Run(ctx, o.Store, o.Config.EntropyThresholdDefault); err != nil {
			return fmt.Errorf("orchestrator.checkResolutions: incremental thresholds: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) runForecasts(ctx context.Context) error {
	since := time.Now().Add(-o.Config.ForecastInterval)
	markets, err := o.Store.MarketsNeedingForecast(ctx, since)
	if err != nil {
		return fmt.Errorf("orchestrator.runForecasts: markets needing forecast: %w", err)
	}

	pipeline := forecaster.Pipeline{
		Store:     o.Store,
		LLM:       o.LLM,
		News:      o.News,
		Roster:    o.Config.Roster,
		Filter:    o.Config.TradeFilter,
		PaperMode: o.Config.PaperMode,
		Metrics:   o.Metrics,
		Semaphore: o.Core.Semaphore,
	}

	var failures int
	for _, m := range markets {
		exchange := o.exchangeFor(m.Exchange)
		summary, err := pipeline.Run(ctx, m, exchange)
		if err != nil {
			slog.Error("orchestrator: forecast failed", "market", m.ID, "err", err)
			failures++
			continue
		}
		if summary == nil {
			continue
		}
		if o.Notifier != nil {
			if err := o.Notifier.NotifyForecast(ctx, *summary); err != nil {
				slog.Warn("orchestrator: notify forecast failed", "market", m.ID, "err", err)
			}
		}
	}
	if failures > 0 && failures == len(markets) && len(markets) > 0 {
		return fmt.Errorf("orchestrator.runForecasts: all %d markets failed", failures)
	}
	return nil
}

func (o *Orchestrator) selfImprovement(ctx context.Context) error {
	if err := calibrator.Run(ctx, o.Store, o.Config.CalibrationBatchSize); err != nil {
		return fmt.Errorf("orchestrator.selfImprovement: calibrator: %w", err)
	}

	activeModels := make([]string, 0, len(o.Config.Roster))
	for _, m := range o.Config.Roster {
		activeModels = append(activeModels, m.Name)
	}
	if _, err := selector.Run(ctx, o.Store, activeModels, o.Config.ModelKillBrier); err != nil {
		return fmt.Errorf("orchestrator.selfImprovement: selector: %w", err)
	}

	if _, err := thresholds.Run(ctx, o.Store, o.Config.EntropyThresholdDefault); err != nil {
		return fmt.Errorf("orchestrator.selfImprovement: thresholds: %w", err)
	}
	return nil
}

func (o *Orchestrator) promptTournament(ctx context.Context) error {
	run := func(d *domain.Domain) error {
		return prompts.RunTournament(ctx, o.Store, o.LLM, d, o.Config.PromptTournamentMinTrials, o.Config.RetireBrierGap, o.Config.MaxVariantsPerDomain)
	}

	if err := run(nil); err != nil {
		return fmt.Errorf("orchestrator.promptTournament: global round: %w", err)
	}
	for i := range domain.Domains {
		d := domain.Domains[i]
		if err := run(&d); err != nil {
			return fmt.Errorf("orchestrator.promptTournament: %s round: %w", d, err)
		}
	}
	return nil
}

func (o *Orchestrator) exchangeFor(name string) ports.ExchangeAdapter {
	for _, ex := range o.Exchanges {
		if ex.Name() == name {
			return ex
		}
	}
	return nil
}
