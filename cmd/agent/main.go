// Command agent runs the autonomous forecasting and trading loop: scan
// markets, forecast, trade, track resolutions and continuously recalibrate.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mdelacruz-oss/forecastbot/config"
	"github.com/mdelacruz-oss/forecastbot/internal/adapters/exchange/kalshi"
	"github.com/mdelacruz-oss/forecastbot/internal/adapters/exchange/polymarket"
	"github.com/mdelacruz-oss/forecastbot/internal/adapters/llm"
	"github.com/mdelacruz-oss/forecastbot/internal/adapters/news"
	"github.com/mdelacruz-oss/forecastbot/internal/adapters/notify"
	"github.com/mdelacruz-oss/forecastbot/internal/core"
	"github.com/mdelacruz-oss/forecastbot/internal/forecaster"
	"github.com/mdelacruz-oss/forecastbot/internal/metrics"
	"github.com/mdelacruz-oss/forecastbot/internal/orchestrator"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
	"github.com/mdelacruz-oss/forecastbot/internal/scanner"
	"github.com/mdelacruz-oss/forecastbot/internal/store"
	"github.com/mdelacruz-oss/forecastbot/internal/trading/edge"
)

const requestsPerSec = 5.0

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan+forecast cycle and exit")
	dryRun := flag.Bool("dry-run", false, "list a handful of markets from every adapter and exit")
	paper := flag.Bool("paper", false, "scan once, forecast the first market found, and print the result")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	flag.BoolVar(verbose, "v", false, "shorthand for --verbose")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.New(cfg.Storage.DSN, cfg.VirtualBankrollDecimal())
	if err != nil {
		slog.Error("failed to open store", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer st.Close()
	if err := st.Init(ctx); err != nil {
		slog.Error("failed to init store", "err", err)
		os.Exit(1)
	}

	exchanges := buildExchanges(cfg)
	defer func() {
		for _, ex := range exchanges {
			_ = ex.Close()
		}
	}()

	llmRouter := llm.New(llm.Config{
		OpenAIAPIKey:     cfg.Providers.OpenAIAPIKey,
		AnthropicAPIKey:  cfg.Providers.AnthropicAPIKey,
		DeepSeekAPIKey:   cfg.Providers.DeepSeekAPIKey,
		OpenAIBaseURL:    cfg.Providers.OpenAIBaseURL,
		AnthropicBaseURL: cfg.Providers.AnthropicBaseURL,
		DeepSeekBaseURL:  cfg.Providers.DeepSeekBaseURL,
		ClassifyProvider: cfg.Providers.ClassifyProvider,
		ClassifyModel:    cfg.Providers.ClassifyModel,
		EvolveProvider:   cfg.Providers.EvolveProvider,
		EvolveModel:      cfg.Providers.EvolveModel,
	}, requestsPerSec, st)

	newsProvider := news.New(news.Config{
		SearchProvider: cfg.Trading.NewsSearchProvider,
		TavilyAPIKey:   cfg.Providers.TavilyAPIKey,
		BraveAPIKey:    cfg.Providers.BraveAPIKey,
	})

	roster := defaultRoster()
	tradeFilter := edge.Filter{
		MinEdge:          cfg.Trading.MinEdge,
		MaxOpenPositions: cfg.Trading.MaxOpenPositions,
		MinDomainWeight:  edge.MinDomainWeight,
	}
	met := metrics.Default()
	console := notify.NewConsole(false)

	slog.Info("forecastbot starting",
		"config", *configPath,
		"dry_run", *dryRun,
		"once", *once,
		"paper", *paper,
		"exchanges", len(exchanges),
	)

	switch {
	case *dryRun:
		runDryRun(ctx, exchanges)
	case *paper:
		runPaperOnce(ctx, st, llmRouter, newsProvider, exchanges, roster, tradeFilter, met, console)
	case *once:
		runOrchestratorOnce(ctx, cfg, st, llmRouter, newsProvider, exchanges, roster, tradeFilter, met, console)
	default:
		o := &orchestrator.Orchestrator{
			Store:     st,
			LLM:       llmRouter,
			News:      newsProvider,
			Exchanges: exchanges,
			Notifier:  console,
			Metrics:   met,
			Core:      core.New(cfg.Trading.LLMConcurrency, cfg.Learning.BatchSize),
			Config:    orchestratorConfig(cfg, roster, tradeFilter),
		}
		if err := o.Run(ctx); err != nil {
			slog.Error("orchestrator exited with error", "err", err)
			os.Exit(1)
		}
	}

	slog.Info("forecastbot stopped cleanly")
}

// runDryRun lists a handful of markets from every configured adapter
// without touching the store, to sanity-check credentials and connectivity.
func runDryRun(ctx context.Context, exchanges []ports.ExchangeAdapter) {
	for _, ex := range exchanges {
		markets, err := ex.ListMarkets(ctx)
		if err != nil {
			slog.Error("dry-run: list markets failed", "exchange", ex.Name(), "err", err)
			continue
		}
		fmt.Printf("=== %s (%d markets) ===\n", ex.Name(), len(markets))
		for i, m := range markets {
			if i >= 5 {
				break
			}
			fmt.Printf("  %s  price=%s  %s\n", m.VenueID, m.Price.StringFixed(3), m.Question)
		}
	}
}

// runPaperOnce scans once, forecasts the first market discovered, and
// prints the forecast and portfolio summary without scheduling anything.
func runPaperOnce(
	ctx context.Context,
	st ports.Store,
	llmRouter ports.LLMProvider,
	newsProvider ports.NewsProvider,
	exchanges []ports.ExchangeAdapter,
	roster []ports.ModelConfig,
	tradeFilter edge.Filter,
	met *metrics.Registry,
	console ports.Notifier,
) {
	scanFilter := scanner.Filter{MinVolumeUSD: 0, MinHoursToClose: 0}
	n, err := scanner.Scan(ctx, exchanges, st, scanFilter)
	if err != nil {
		slog.Error("paper: scan failed", "err", err)
		os.Exit(1)
	}
	slog.Info("paper: scan complete", "markets", n)

	markets, err := st.ActiveMarkets(ctx)
	if err != nil || len(markets) == 0 {
		slog.Error("paper: no active markets to forecast", "err", err)
		return
	}

	market := markets[0]
	var exchange ports.ExchangeAdapter
	for _, ex := range exchanges {
		if ex.Name() == market.Exchange {
			exchange = ex
			break
		}
	}

	pipeline := forecaster.Pipeline{
		Store:     st,
		LLM:       llmRouter,
		News:      newsProvider,
		Roster:    roster,
		Filter:    tradeFilter,
		PaperMode: true,
		Metrics:   met,
	}
	summary, err := pipeline.Run(ctx, market, exchange)
	if err != nil {
		slog.Error("paper: forecast failed", "market", market.ID, "err", err)
		return
	}
	if summary == nil {
		fmt.Println("no usable forecasts produced")
		return
	}
	if err := console.NotifyForecast(ctx, *summary); err != nil {
		slog.Warn("paper: notify failed", "err", err)
	}

	portfolio, err := st.GetPortfolio(ctx)
	if err != nil {
		slog.Warn("paper: load portfolio failed", "err", err)
		return
	}
	_ = console.NotifyPortfolio(ctx, portfolio)
}

// runOrchestratorOnce fires exactly one scan+forecast pair through the same
// orchestrator jobs the long-running loop uses, then returns.
func runOrchestratorOnce(
	ctx context.Context,
	cfg *config.Config,
	st ports.Store,
	llmRouter ports.LLMProvider,
	newsProvider ports.NewsProvider,
	exchanges []ports.ExchangeAdapter,
	roster []ports.ModelConfig,
	tradeFilter edge.Filter,
	met *metrics.Registry,
	console ports.Notifier,
) {
	o := &orchestrator.Orchestrator{
		Store:     st,
		LLM:       llmRouter,
		News:      newsProvider,
		Exchanges: exchanges,
		Notifier:  console,
		Metrics:   met,
		Core:      core.New(cfg.Trading.LLMConcurrency, cfg.Learning.BatchSize),
		Config:    orchestratorConfig(cfg, roster, tradeFilter),
	}
	if err := o.RunOnce(ctx); err != nil {
		slog.Error("once: run failed", "err", err)
		os.Exit(1)
	}
}

func orchestratorConfig(cfg *config.Config, roster []ports.ModelConfig, tradeFilter edge.Filter) orchestrator.Config {
	return orchestrator.Config{
		ScanInterval:              cfg.ScanInterval(),
		PriceUpdateInterval:       cfg.PriceUpdateInterval(),
		ResolutionCheckInterval:   cfg.ResolutionCheckInterval(),
		ForecastInterval:          cfg.ForecastInterval(),
		SelfImprovementHour:       cfg.Orchestrator.SelfImprovementHour,
		PromptTournamentHour:      cfg.Orchestrator.PromptTournamentHour,
		ScanFilter:                scanner.Filter{MinVolumeUSD: cfg.Trading.MinVolumeUSD, MinHoursToClose: cfg.Trading.MinHoursToClose},
		TradeFilter:               tradeFilter,
		Roster:                    roster,
		PaperMode:                 cfg.IsPaperMode(),
		CalibrationBatchSize:      cfg.Learning.BatchSize,
		ModelKillBrier:            cfg.Learning.ModelKillBrier,
		EntropyThresholdDefault:   cfg.Learning.EntropyThresholdDefault,
		PromptTournamentMinTrials: cfg.Learning.PromptTournamentMinTrials,
		RetireBrierGap:            cfg.Learning.RetireBrierGap,
		MaxVariantsPerDomain:      cfg.Learning.MaxVariantsPerDomain,
	}
}

func buildExchanges(cfg *config.Config) []ports.ExchangeAdapter {
	exchanges := make([]ports.ExchangeAdapter, 0, 2)
	exchanges = append(exchanges, polymarket.New(
		cfg.Providers.PolymarketGammaBase,
		cfg.Providers.PolymarketCLOBBase,
		cfg.Providers.PolymarketPrivateKey,
		cfg.IsPaperMode(),
	))

	var kalshiKey []byte
	if cfg.Providers.KalshiPrivateKeyPath != "" {
		data, err := os.ReadFile(cfg.Providers.KalshiPrivateKeyPath)
		if err != nil {
			slog.Warn("failed to read kalshi private key, kalshi trading disabled", "err", err)
		} else {
			kalshiKey = data
		}
	}
	exchanges = append(exchanges, kalshi.New(
		cfg.Providers.KalshiHost,
		cfg.Providers.KalshiAPIKey,
		kalshiKey,
		cfg.IsPaperMode(),
	))
	return exchanges
}

// defaultRoster is the fixed three-model ensemble: one per wired LLM
// provider, equally weighted until the calibrator adjusts them.
func defaultRoster() []ports.ModelConfig {
	return []ports.ModelConfig{
		{Name: "gpt-4o-mini", Provider: "openai", Weight: 1.0, HasLogprobs: true},
		{Name: "claude-3-5-sonnet-20241022", Provider: "anthropic", Weight: 1.0, HasLogprobs: false},
		{Name: "deepseek-chat", Provider: "deepseek", Weight: 1.0, HasLogprobs: true},
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
