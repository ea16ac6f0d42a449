package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/storetest"
)

func TestDeductCashFloorsAtZero(t *testing.T) {
	s := storetest.New()
	s.SeedPortfolio(domain.PortfolioState{Cash: decimal.NewFromInt(10)})
	cash, err := DeductCash(context.Background(), s, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, cash.Equal(decimal.Zero))
}

func TestRevalueSumsOpenPositions(t *testing.T) {
	s := storetest.New()
	s.SeedPortfolio(domain.PortfolioState{Cash: decimal.NewFromInt(1000)})
	m := domain.Market{ID: "polymarket:x", Price: decimal.NewFromFloat(0.6), UpdatedAt: time.Now()}
	require.NoError(t, s.UpsertMarket(context.Background(), m))
	_, err := s.InsertTrade(context.Background(), domain.Trade{
		MarketID: m.ID, Side: domain.SideYES, SizeUnits: decimal.NewFromInt(100), Price: decimal.NewFromFloat(0.4),
	})
	require.NoError(t, err)

	p, err := Revalue(context.Background(), s)
	require.NoError(t, err)
	// cash 1000 + 100 units * 0.6 = 1060
	assert.True(t, p.TotalValue.Equal(decimal.NewFromInt(1060)))
}
