package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

func TestNotifyForecastCompactWithNoForecasts(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	err := c.NotifyForecast(context.Background(), ports.ForecastSummary{
		Market: domain.Market{Question: "Will X happen?"},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no forecasts produced")
}

func TestNotifyForecastCompactWithTrade(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	err := c.NotifyForecast(context.Background(), ports.ForecastSummary{
		Market: domain.Market{Question: "Will X happen?"},
		Forecasts: []domain.Forecast{
			{Model: "gpt-4o-mini", EnsembleProbability: decimal.NewFromFloat(0.62), ConfidenceTier: domain.TierHigh},
		},
		Trade: &domain.Trade{Side: domain.SideYES, SizeUnits: decimal.NewFromFloat(10), Price: decimal.NewFromFloat(0.6)},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "TRADED")
}

func TestNotifyForecastCompactWithRejection(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	err := c.NotifyForecast(context.Background(), ports.ForecastSummary{
		Market:    domain.Market{Question: "Will X happen?"},
		Forecasts: []domain.Forecast{{Model: "gpt-4o-mini", ConfidenceTier: domain.TierLow}},
		Rejection: "confidence tier is 'low'",
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no trade: confidence tier is 'low'")
}

func TestNotifyForecastFullRendersTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, true)

	err := c.NotifyForecast(context.Background(), ports.ForecastSummary{
		Market:    domain.Market{Question: "Will X happen?"},
		Forecasts: []domain.Forecast{{Model: "gpt-4o-mini", PromptVersion: "v1-baseline", ConfidenceTier: domain.TierHigh}},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "gpt-4o-mini")
}

func TestNotifyPortfolioPrintsCashAndTotal(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	err := c.NotifyPortfolio(context.Background(), domain.PortfolioState{
		Cash:       decimal.NewFromFloat(900),
		TotalValue: decimal.NewFromFloat(1000),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "cash=900.00")
	assert.Contains(t, buf.String(), "total_value=1000.00")
}
