package polymarket

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrderPaperModeReturnsFilledStub(t *testing.T) {
	a := New("", "", "", true)
	order, err := a.PlaceOrder(context.Background(), "abc", "YES", decimal.NewFromFloat(10), decimal.NewFromFloat(0.5))
	require.NoError(t, err)
	assert.Equal(t, "filled", order.Status)
}

func TestPlaceOrderLiveWithoutKeyErrors(t *testing.T) {
	a := New("", "", "", false)
	_, err := a.PlaceOrder(context.Background(), "abc", "YES", decimal.NewFromFloat(10), decimal.NewFromFloat(0.5))
	require.Error(t, err)
}

func TestToMarketRejectsNonBinaryTokenSets(t *testing.T) {
	m := gammaMarket{ConditionID: "x", Question: "q", Tokens: nil}
	_, ok := toMarket(m, time.Now())
	assert.False(t, ok)
}
