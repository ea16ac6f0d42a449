package kalshi

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrderPaperModeReturnsFilledStub(t *testing.T) {
	a := New("", "", nil, true)
	order, err := a.PlaceOrder(context.Background(), "TICKER", "YES", decimal.NewFromFloat(10), decimal.NewFromFloat(0.5))
	require.NoError(t, err)
	assert.Equal(t, "filled", order.Status)
}

func TestPlaceOrderLiveWithoutKeyErrors(t *testing.T) {
	a := New("", "", nil, false)
	_, err := a.PlaceOrder(context.Background(), "TICKER", "YES", decimal.NewFromFloat(10), decimal.NewFromFloat(0.5))
	require.Error(t, err)
}

func TestToMarketRejectsMissingTicker(t *testing.T) {
	_, ok := toMarket(kalshiMarket{}, time.Now())
	assert.False(t, ok)
}

func TestMidpointAveragesBidAsk(t *testing.T) {
	p := midpoint(kalshiMarket{YesBid: 40, YesAsk: 60})
	assert.True(t, p.Equal(decimal.NewFromFloat(0.5)))
}

func TestMidpointDefaultsWhenNoQuotes(t *testing.T) {
	p := midpoint(kalshiMarket{})
	assert.True(t, p.Equal(decimal.NewFromFloat(0.5)))
}

func TestResultOutcomeParsesYesNo(t *testing.T) {
	yes := resultOutcome("yes")
	require.NotNil(t, yes)
	assert.Equal(t, 1, *yes)

	no := resultOutcome("no")
	require.NotNil(t, no)
	assert.Equal(t, 0, *no)

	assert.Nil(t, resultOutcome(""))
}
