package ports

import (
	"context"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
)

// ForecastSummary is what the paper/dry-run CLI modes print after running
// the pipeline once.
type ForecastSummary struct {
	Market    domain.Market
	Forecasts []domain.Forecast
	Trade     *domain.Trade
	Rejection string // non-empty if the trade was declined, e.g. "confidence tier is 'low'"
}

// Notifier renders a run's results to the operator.
type Notifier interface {
	NotifyForecast(ctx context.Context, s ForecastSummary) error
	NotifyPortfolio(ctx context.Context, p domain.PortfolioState) error
}
