package edge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
)

func TestBestSideScenario1YES(t *testing.T) {
	side, e := BestSide(0.7233, 0.40)
	assert.Equal(t, domain.SideYES, side)
	assert.InDelta(t, 0.3233, e, 1e-3)
}

func TestBestSideScenario2NO(t *testing.T) {
	side, e := BestSide(0.55, 0.80)
	assert.Equal(t, domain.SideNO, side)
	assert.InDelta(t, 0.25, e, 1e-9)
}

func TestIsTradeableScenario3TierBlocksTrade(t *testing.T) {
	f := DefaultFilter()
	ok, reason := f.IsTradeable(0.7233, 0.40, domain.TierLow, 1.0, 0, false)
	assert.False(t, ok)
	assert.Contains(t, reason, "confidence tier is 'low'")
}

func TestIsTradeablePassesAllFilters(t *testing.T) {
	f := DefaultFilter()
	ok, reason := f.IsTradeable(0.7233, 0.40, domain.TierHigh, 1.0, 0, false)
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestIsTradeableMaxOpenPositions(t *testing.T) {
	f := DefaultFilter()
	ok, reason := f.IsTradeable(0.7233, 0.40, domain.TierHigh, 1.0, 20, false)
	assert.False(t, ok)
	assert.Contains(t, reason, "max open positions")
}

func TestIsTradeablePriorTrade(t *testing.T) {
	f := DefaultFilter()
	ok, _ := f.IsTradeable(0.7233, 0.40, domain.TierHigh, 1.0, 0, true)
	assert.False(t, ok)
}

func TestIsTradeableLowDomainWeight(t *testing.T) {
	f := DefaultFilter()
	ok, reason := f.IsTradeable(0.7233, 0.40, domain.TierHigh, 0.3, 0, false)
	assert.False(t, ok)
	assert.Contains(t, reason, "domain weight")
}
