// Package portfolio tracks paper/live cash and produces a read-only
// mark-to-market revaluation of open positions.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

// DeductCash subtracts amount from cash, floored at 0, and persists the
// result. It never credits winners back (see Revalue) — this is the only
// path that mutates cash in the trading core.
func DeductCash(ctx context.Context, store ports.Store, amount decimal.Decimal) (decimal.Decimal, error) {
	p, err := store.GetPortfolio(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("portfolio.DeductCash: get: %w", err)
	}
	newCash := p.Cash.Sub(amount)
	if newCash.IsNegative() {
		newCash = decimal.Zero
	}
	p.Cash = newCash
	p.UpdatedAt = time.Now().UTC()
	if err := store.UpdatePortfolio(ctx, p); err != nil {
		return decimal.Zero, fmt.Errorf("portfolio.DeductCash: update: %w", err)
	}
	return newCash, nil
}

// Revalue recomputes TotalValue as cash plus the mark-to-market value of
// every open (unresolved) trade, paper or live, at the market's current price. This
// is read-only with respect to cash: resolved positions are never credited
// back (Open Question (a) — no settle-on-resolution).
func Revalue(ctx context.Context, store ports.Store) (domain.PortfolioState, error) {
	p, err := store.GetPortfolio(ctx)
	if err != nil {
		return domain.PortfolioState{}, fmt.Errorf("portfolio.Revalue: get portfolio: %w", err)
	}

	open, err := store.OpenTrades(ctx)
	if err != nil {
		return domain.PortfolioState{}, fmt.Errorf("portfolio.Revalue: open trades: %w", err)
	}

	openValue := decimal.Zero
	for _, t := range open {
		m, err := store.GetMarket(ctx, t.MarketID)
		if err != nil || m == nil {
			continue
		}
		if t.Side == domain.SideYES {
			openValue = openValue.Add(t.SizeUnits.Mul(m.Price))
		} else {
			openValue = openValue.Add(t.SizeUnits.Mul(decimal.NewFromInt(1).Sub(m.Price)))
		}
	}

	p.TotalValue = p.Cash.Add(openValue)
	p.UpdatedAt = time.Now().UTC()
	if err := store.UpdatePortfolio(ctx, p); err != nil {
		return domain.PortfolioState{}, fmt.Errorf("portfolio.Revalue: update: %w", err)
	}
	return p, nil
}
