package ports

import (
	"context"
	"time"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
)

// Store is the single durable-state boundary. Every other component is
// stateless between ticks and reads/writes exclusively through this
// interface.
type Store interface {
	// Init applies the schema idempotently and seeds the singleton
	// portfolio row if absent.
	Init(ctx context.Context) error

	// Markets

	UpsertMarket(ctx context.Context, m domain.Market) error
	GetMarket(ctx context.Context, id string) (*domain.Market, error)
	ActiveMarkets(ctx context.Context) ([]domain.Market, error)
	// MarketsNeedingForecast returns unresolved markets with no forecast
	// newer than since.
	MarketsNeedingForecast(ctx context.Context, since time.Time) ([]domain.Market, error)

	// Forecasts

	InsertForecast(ctx context.Context, f domain.Forecast) (int64, error)
	ForecastsForMarket(ctx context.Context, marketID string) ([]domain.Forecast, error)

	// Trades

	InsertTrade(ctx context.Context, t domain.Trade) (int64, error)
	HasOpenTrade(ctx context.Context, marketID string) (bool, error)
	OpenPositionsCount(ctx context.Context) (int, error)
	OpenTrades(ctx context.Context) ([]domain.Trade, error)

	// Outcomes

	InsertOutcome(ctx context.Context, o domain.Outcome) error
	OutcomesSince(ctx context.Context, since time.Time) ([]domain.Outcome, error)

	// Calibration

	UpsertCalibration(ctx context.Context, c domain.CalibrationState) error
	GetCalibration(ctx context.Context, dom domain.Domain, model string) (*domain.CalibrationState, error)
	CalibrationsForDomain(ctx context.Context, dom domain.Domain) ([]domain.CalibrationState, error)
	AllCalibrations(ctx context.Context) ([]domain.CalibrationState, error)

	// Model weights

	UpsertModelWeight(ctx context.Context, w domain.ModelWeight) error
	AllModelWeights(ctx context.Context) ([]domain.ModelWeight, error)

	// Prompt experiments

	UpsertPrompt(ctx context.Context, p domain.PromptExperiment) error
	ActivePrompts(ctx context.Context, dom *domain.Domain) ([]domain.PromptExperiment, error)
	AllPrompts(ctx context.Context) ([]domain.PromptExperiment, error)

	// Portfolio

	GetPortfolio(ctx context.Context) (domain.PortfolioState, error)
	UpdatePortfolio(ctx context.Context, p domain.PortfolioState) error

	// LLM cost

	InsertLLMCost(ctx context.Context, c domain.LLMCost) error

	Close() error
}
