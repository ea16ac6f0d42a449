// Package kelly implements fractional Kelly criterion position sizing for
// binary prediction-market bets.
package kelly

import (
	"math"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
)

// KellyFraction is the multiplier applied to full Kelly to trade growth
// rate for lower variance.
const KellyFraction = 0.25

// MaxPositionPct caps the fraction of bankroll allocated to a single
// position.
const MaxPositionPct = 0.05

// Fraction computes the fraction of bankroll to bet on side, given the
// (always non-negative) edge magnitude and the market's YES price. Returns
// 0 for degenerate prices (price <= 0 or price >= 1 on the traded side).
func Fraction(edgeMagnitude, marketPrice float64, side domain.Side) float64 {
	price := marketPrice
	if side == domain.SideNO {
		price = 1.0 - marketPrice
	}
	if price <= 0 || price >= 1 {
		return 0
	}

	fullKelly := edgeMagnitude / (1.0 - price)
	fk := fullKelly * KellyFraction
	if fk > MaxPositionPct {
		fk = MaxPositionPct
	}
	if fk < 0 {
		fk = 0
	}
	return fk
}

// SizeFromFraction converts a Kelly fraction of bankroll into a number of
// units at the given fill price, floored at 1 unit.
func SizeFromFraction(fraction, bankroll, price float64) float64 {
	if price <= 0 {
		return 0
	}
	usdToSpend := bankroll * fraction
	contracts := usdToSpend / price
	contracts = math.Round(contracts*100) / 100
	if contracts < 1.0 {
		return 1.0
	}
	return contracts
}
