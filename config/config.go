// Package config loads the agent's full runtime configuration: scan/trade
// thresholds, learning cadences, provider credentials and logging, from a
// YAML file overlaid with environment variables (and an optional .env).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration for the agent process.
type Config struct {
	Trading      TradingConfig      `yaml:"trading"`
	Learning     LearningConfig     `yaml:"learning"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Storage      StorageConfig      `yaml:"storage"`
	Log          LogConfig          `yaml:"log"`
}

// TradingConfig controls scanning, edge filtering and position sizing.
type TradingConfig struct {
	MinVolumeUSD     float64 `yaml:"min_volume_usd"`
	MinHoursToClose  float64 `yaml:"min_hours_to_close"`
	DedupThreshold   int     `yaml:"dedup_threshold"`
	MinEdge          float64 `yaml:"min_edge"`
	KellyFraction    float64 `yaml:"kelly_fraction"`
	MaxPositionPct   float64 `yaml:"max_position_pct"`
	MaxOpenPositions int     `yaml:"max_open_positions"`
	VirtualBankroll  float64 `yaml:"virtual_bankroll"`
	// PaperMode is a pointer so "unset" (nil) can be told apart from an
	// explicit false; the documented default is true, not the bool zero
	// value. Use Config.IsPaperMode to read it.
	PaperMode          *bool  `yaml:"paper_mode"`
	LLMConcurrency     int    `yaml:"llm_concurrency"`
	MaxNewsArticles    int    `yaml:"max_news_articles"`
	NewsSearchProvider string `yaml:"news_search_provider"`
}

// LearningConfig controls calibration, model selection and prompt
// evolution cadences and thresholds.
type LearningConfig struct {
	BatchSize                 int     `yaml:"learning_batch_size"`
	MinOutcomesForAdaptation  int     `yaml:"min_outcomes_for_adaptation"`
	ModelKillBrier            float64 `yaml:"model_kill_brier"`
	EntropyThresholdDefault   float64 `yaml:"entropy_threshold_default"`
	PromptTournamentMinTrials int     `yaml:"prompt_tournament_min_trials"`
	RetireBrierGap            float64 `yaml:"retire_brier_gap"`
	MaxVariantsPerDomain      int     `yaml:"max_variants_per_domain"`
}

// OrchestratorConfig controls the six job cadences.
type OrchestratorConfig struct {
	ScanIntervalHours            int `yaml:"scan_interval_hours"`
	PriceUpdateIntervalMinutes   int `yaml:"price_update_interval_minutes"`
	ResolutionCheckIntervalHours int `yaml:"resolution_check_interval_hours"`
	ForecastIntervalHours        int `yaml:"forecast_interval_hours"`
	SelfImprovementHour          int `yaml:"self_improvement_hour"`
	PromptTournamentHour         int `yaml:"prompt_tournament_hour"`
}

// ProvidersConfig holds every external credential and base URL: LLMs,
// news search and exchange venues.
type ProvidersConfig struct {
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	DeepSeekAPIKey  string `yaml:"deepseek_api_key"`

	OpenAIBaseURL    string `yaml:"openai_base_url"`
	AnthropicBaseURL string `yaml:"anthropic_base_url"`
	DeepSeekBaseURL  string `yaml:"deepseek_base_url"`

	ClassifyProvider string `yaml:"classify_provider"`
	ClassifyModel    string `yaml:"classify_model"`
	EvolveProvider   string `yaml:"evolve_provider"`
	EvolveModel      string `yaml:"evolve_model"`

	TavilyAPIKey string `yaml:"tavily_api_key"`
	BraveAPIKey  string `yaml:"brave_api_key"`

	PolymarketGammaBase   string `yaml:"polymarket_gamma_base"`
	PolymarketCLOBBase    string `yaml:"polymarket_clob_base"`
	PolymarketPrivateKey  string `yaml:"polymarket_private_key"`
	KalshiHost            string `yaml:"kalshi_host"`
	KalshiAPIKey          string `yaml:"kalshi_api_key"`
	KalshiPrivateKeyPath  string `yaml:"kalshi_private_key_path"`
}

// StorageConfig controls where persistent state lives.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // path to the SQLite file, or ":memory:"
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// VirtualBankrollDecimal returns the configured virtual bankroll as a
// decimal.Decimal for store.New.
func (c *Config) VirtualBankrollDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.Trading.VirtualBankroll)
}

// ScanInterval, PriceUpdateInterval, ResolutionCheckInterval and
// ForecastInterval convert the orchestrator's hour/minute configuration
// into time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Orchestrator.ScanIntervalHours) * time.Hour
}

func (c *Config) PriceUpdateInterval() time.Duration {
	return time.Duration(c.Orchestrator.PriceUpdateIntervalMinutes) * time.Minute
}

func (c *Config) ResolutionCheckInterval() time.Duration {
	return time.Duration(c.Orchestrator.ResolutionCheckIntervalHours) * time.Hour
}

func (c *Config) ForecastInterval() time.Duration {
	return time.Duration(c.Orchestrator.ForecastIntervalHours) * time.Hour
}

// IsPaperMode reports whether the agent should simulate trades rather than
// place real ones. Defaults to true when unset by YAML, .env, or the
// environment.
func (c *Config) IsPaperMode() bool {
	if c.Trading.PaperMode == nil {
		return true
	}
	return *c.Trading.PaperMode
}

// Load reads the YAML file at path, then overlays a .env file (if present)
// and process environment variables, then fills in defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	envFloat(&cfg.Trading.MinVolumeUSD, "MIN_VOLUME_USD")
	envFloat(&cfg.Trading.MinHoursToClose, "MIN_HOURS_TO_CLOSE")
	envInt(&cfg.Trading.DedupThreshold, "DEDUP_THRESHOLD")
	envFloat(&cfg.Trading.MinEdge, "MIN_EDGE")
	envFloat(&cfg.Trading.KellyFraction, "KELLY_FRACTION")
	envFloat(&cfg.Trading.MaxPositionPct, "MAX_POSITION_PCT")
	envInt(&cfg.Trading.MaxOpenPositions, "MAX_OPEN_POSITIONS")
	envFloat(&cfg.Trading.VirtualBankroll, "VIRTUAL_BANKROLL")
	envBoolPtr(&cfg.Trading.PaperMode, "PAPER_MODE")
	envInt(&cfg.Trading.LLMConcurrency, "LLM_CONCURRENCY")
	envInt(&cfg.Trading.MaxNewsArticles, "MAX_NEWS_ARTICLES")
	envString(&cfg.Trading.NewsSearchProvider, "NEWS_SEARCH_PROVIDER")

	envInt(&cfg.Learning.BatchSize, "LEARNING_BATCH_SIZE")
	envInt(&cfg.Learning.MinOutcomesForAdaptation, "MIN_OUTCOMES_FOR_ADAPTATION")
	envFloat(&cfg.Learning.ModelKillBrier, "MODEL_KILL_BRIER")
	envFloat(&cfg.Learning.EntropyThresholdDefault, "ENTROPY_THRESHOLD_DEFAULT")
	envInt(&cfg.Learning.PromptTournamentMinTrials, "PROMPT_TOURNAMENT_MIN_TRIALS")
	envFloat(&cfg.Learning.RetireBrierGap, "RETIRE_BRIER_GAP")
	envInt(&cfg.Learning.MaxVariantsPerDomain, "MAX_VARIANTS_PER_DOMAIN")

	envInt(&cfg.Orchestrator.ScanIntervalHours, "SCAN_INTERVAL_HOURS")
	envInt(&cfg.Orchestrator.PriceUpdateIntervalMinutes, "PRICE_UPDATE_INTERVAL_MINUTES")
	envInt(&cfg.Orchestrator.ResolutionCheckIntervalHours, "RESOLUTION_CHECK_INTERVAL_HOURS")
	envInt(&cfg.Orchestrator.ForecastIntervalHours, "FORECAST_INTERVAL_HOURS")
	envInt(&cfg.Orchestrator.SelfImprovementHour, "SELF_IMPROVEMENT_HOUR")
	envInt(&cfg.Orchestrator.PromptTournamentHour, "PROMPT_TOURNAMENT_HOUR")

	envString(&cfg.Providers.OpenAIAPIKey, "OPENAI_API_KEY")
	envString(&cfg.Providers.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envString(&cfg.Providers.DeepSeekAPIKey, "DEEPSEEK_API_KEY")
	envString(&cfg.Providers.OpenAIBaseURL, "OPENAI_BASE_URL")
	envString(&cfg.Providers.AnthropicBaseURL, "ANTHROPIC_BASE_URL")
	envString(&cfg.Providers.DeepSeekBaseURL, "DEEPSEEK_BASE_URL")
	envString(&cfg.Providers.ClassifyProvider, "CLASSIFY_PROVIDER")
	envString(&cfg.Providers.ClassifyModel, "CLASSIFY_MODEL")
	envString(&cfg.Providers.EvolveProvider, "EVOLVE_PROVIDER")
	envString(&cfg.Providers.EvolveModel, "EVOLVE_MODEL")
	envString(&cfg.Providers.TavilyAPIKey, "TAVILY_API_KEY")
	envString(&cfg.Providers.BraveAPIKey, "BRAVE_API_KEY")
	envString(&cfg.Providers.PolymarketGammaBase, "POLYMARKET_GAMMA_BASE")
	envString(&cfg.Providers.PolymarketCLOBBase, "POLYMARKET_CLOB_BASE")
	envString(&cfg.Providers.PolymarketPrivateKey, "POLYMARKET_PRIVATE_KEY")
	envString(&cfg.Providers.KalshiHost, "KALSHI_HOST")
	envString(&cfg.Providers.KalshiAPIKey, "KALSHI_API_KEY")
	envString(&cfg.Providers.KalshiPrivateKeyPath, "KALSHI_PRIVATE_KEY_PATH")

	envString(&cfg.Storage.DSN, "STORAGE_DSN")
	envString(&cfg.Log.Level, "LOG_LEVEL")
	envString(&cfg.Log.Format, "LOG_FORMAT")
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBoolPtr(dst **bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = &b
		}
	}
}

// setDefaults fills in every threshold named by §4 when unset, matching
// the documented defaults exactly.
func setDefaults(cfg *Config) {
	if cfg.Trading.MinVolumeUSD <= 0 {
		cfg.Trading.MinVolumeUSD = 1000
	}
	if cfg.Trading.MinHoursToClose <= 0 {
		cfg.Trading.MinHoursToClose = 24
	}
	if cfg.Trading.DedupThreshold <= 0 {
		cfg.Trading.DedupThreshold = 85
	}
	if cfg.Trading.MinEdge <= 0 {
		cfg.Trading.MinEdge = 0.05
	}
	if cfg.Trading.KellyFraction <= 0 {
		cfg.Trading.KellyFraction = 0.25
	}
	if cfg.Trading.MaxPositionPct <= 0 {
		cfg.Trading.MaxPositionPct = 0.05
	}
	if cfg.Trading.MaxOpenPositions <= 0 {
		cfg.Trading.MaxOpenPositions = 20
	}
	if cfg.Trading.VirtualBankroll <= 0 {
		cfg.Trading.VirtualBankroll = 10000
	}
	if cfg.Trading.PaperMode == nil {
		paperDefault := true
		cfg.Trading.PaperMode = &paperDefault
	}
	if cfg.Trading.LLMConcurrency <= 0 {
		cfg.Trading.LLMConcurrency = 3
	}
	if cfg.Trading.MaxNewsArticles <= 0 {
		cfg.Trading.MaxNewsArticles = 5
	}
	if cfg.Trading.NewsSearchProvider == "" {
		cfg.Trading.NewsSearchProvider = "tavily"
	}

	if cfg.Learning.BatchSize <= 0 {
		cfg.Learning.BatchSize = 10
	}
	if cfg.Learning.MinOutcomesForAdaptation <= 0 {
		cfg.Learning.MinOutcomesForAdaptation = 20
	}
	if cfg.Learning.ModelKillBrier <= 0 {
		cfg.Learning.ModelKillBrier = 0.28
	}
	if cfg.Learning.EntropyThresholdDefault <= 0 {
		cfg.Learning.EntropyThresholdDefault = 4.0
	}
	if cfg.Learning.PromptTournamentMinTrials <= 0 {
		cfg.Learning.PromptTournamentMinTrials = 20
	}
	if cfg.Learning.RetireBrierGap <= 0 {
		cfg.Learning.RetireBrierGap = 0.05
	}
	if cfg.Learning.MaxVariantsPerDomain <= 0 {
		cfg.Learning.MaxVariantsPerDomain = 3
	}

	if cfg.Orchestrator.ScanIntervalHours <= 0 {
		cfg.Orchestrator.ScanIntervalHours = 4
	}
	if cfg.Orchestrator.PriceUpdateIntervalMinutes <= 0 {
		cfg.Orchestrator.PriceUpdateIntervalMinutes = 30
	}
	if cfg.Orchestrator.ResolutionCheckIntervalHours <= 0 {
		cfg.Orchestrator.ResolutionCheckIntervalHours = 1
	}
	if cfg.Orchestrator.ForecastIntervalHours <= 0 {
		cfg.Orchestrator.ForecastIntervalHours = 4
	}
	if cfg.Orchestrator.SelfImprovementHour <= 0 {
		cfg.Orchestrator.SelfImprovementHour = 6
	}
	if cfg.Orchestrator.PromptTournamentHour <= 0 {
		cfg.Orchestrator.PromptTournamentHour = 7
	}

	if cfg.Providers.OpenAIBaseURL == "" {
		cfg.Providers.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if cfg.Providers.AnthropicBaseURL == "" {
		cfg.Providers.AnthropicBaseURL = "https://api.anthropic.com"
	}
	if cfg.Providers.DeepSeekBaseURL == "" {
		cfg.Providers.DeepSeekBaseURL = "https://api.deepseek.com"
	}
	if cfg.Providers.ClassifyProvider == "" {
		cfg.Providers.ClassifyProvider = "openai"
	}
	if cfg.Providers.ClassifyModel == "" {
		cfg.Providers.ClassifyModel = "gpt-4o-mini"
	}
	if cfg.Providers.EvolveProvider == "" {
		cfg.Providers.EvolveProvider = "anthropic"
	}
	if cfg.Providers.EvolveModel == "" {
		cfg.Providers.EvolveModel = "claude-3-5-sonnet-20241022"
	}
	if cfg.Providers.PolymarketGammaBase == "" {
		cfg.Providers.PolymarketGammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Providers.PolymarketCLOBBase == "" {
		cfg.Providers.PolymarketCLOBBase = "https://clob.polymarket.com"
	}
	if cfg.Providers.KalshiHost == "" {
		cfg.Providers.KalshiHost = "https://trading-api.kalshi.com"
	}

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "forecastbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
