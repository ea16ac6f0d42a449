package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an order the executor placed against a forecast, paper or live.
// Immutable once inserted.
type Trade struct {
	ID             int64
	MarketID       string
	ForecastID     int64
	Exchange       string
	Side           Side
	SizeUnits      decimal.Decimal
	Price          decimal.Decimal
	KellyFraction  decimal.Decimal
	Edge           decimal.Decimal
	IsPaper        bool
	CreatedAt      time.Time
}

// CostBasis is the cash committed to this trade: size * price.
func (t Trade) CostBasis() decimal.Decimal {
	return t.SizeUnits.Mul(t.Price)
}
