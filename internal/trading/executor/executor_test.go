package executor

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/storetest"
	"github.com/mdelacruz-oss/forecastbot/internal/trading/edge"
)

func seedMarket(t *testing.T, s *storetest.Store, price string) domain.Market {
	t.Helper()
	m := domain.Market{
		ID:        "polymarket:abc",
		Exchange:  "polymarket",
		VenueID:   "abc",
		Question:  "Will it happen?",
		Domain:    domain.DomainPolitics,
		Price:     decimal.RequireFromString(price),
		CloseTime: time.Now().Add(48 * time.Hour),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, s.UpsertMarket(context.Background(), m))
	return m
}

func TestMaybeTradePaperModeScenario1(t *testing.T) {
	s := storetest.New()
	s.SeedPortfolio(domain.PortfolioState{Cash: decimal.NewFromInt(10000), TotalValue: decimal.NewFromInt(10000)})
	m := seedMarket(t, s, "0.40")

	intent := Intent{Market: m, ForecastID: 1, EnsembleProb: 0.7233, ConfidenceTier: domain.TierHigh, DomainWeight: 1.0}
	dec, err := MaybeTrade(context.Background(), s, nil, edge.DefaultFilter(), true, intent)
	require.NoError(t, err)
	require.NotNil(t, dec.Trade)
	assert.Equal(t, domain.SideYES, dec.Trade.Side)
	assert.True(t, dec.Trade.IsPaper)

	p, err := s.GetPortfolio(context.Background())
	require.NoError(t, err)
	assert.True(t, p.Cash.LessThan(decimal.NewFromInt(10000)))
}

func TestMaybeTradeDeclinedLowTier(t *testing.T) {
	s := storetest.New()
	s.SeedPortfolio(domain.PortfolioState{Cash: decimal.NewFromInt(10000), TotalValue: decimal.NewFromInt(10000)})
	m := seedMarket(t, s, "0.40")

	intent := Intent{Market: m, ForecastID: 1, EnsembleProb: 0.7233, ConfidenceTier: domain.TierLow, DomainWeight: 1.0}
	dec, err := MaybeTrade(context.Background(), s, nil, edge.DefaultFilter(), true, intent)
	require.NoError(t, err)
	assert.Nil(t, dec.Trade)
	assert.Contains(t, dec.Rejection, "confidence tier is 'low'")
}

func TestMaybeTradeDeclinedPriorTradeExists(t *testing.T) {
	s := storetest.New()
	s.SeedPortfolio(domain.PortfolioState{Cash: decimal.NewFromInt(10000), TotalValue: decimal.NewFromInt(10000)})
	m := seedMarket(t, s, "0.40")

	intent := Intent{Market: m, ForecastID: 1, EnsembleProb: 0.7233, ConfidenceTier: domain.TierHigh, DomainWeight: 1.0}
	_, err := MaybeTrade(context.Background(), s, nil, edge.DefaultFilter(), true, intent)
	require.NoError(t, err)

	dec, err := MaybeTrade(context.Background(), s, nil, edge.DefaultFilter(), true, intent)
	require.NoError(t, err)
	assert.Nil(t, dec.Trade)
}
