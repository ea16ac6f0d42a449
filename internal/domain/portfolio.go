package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioState is the singleton (id=1) cash/total-value tracker.
type PortfolioState struct {
	Cash       decimal.Decimal
	TotalValue decimal.Decimal
	UpdatedAt  time.Time
}
