// Package executor evaluates the tradeable filter and, if the market
// passes, sizes and executes a trade — paper (store-only) or live (via the
// exchange adapter).
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
	"github.com/mdelacruz-oss/forecastbot/internal/trading/edge"
	"github.com/mdelacruz-oss/forecastbot/internal/trading/kelly"
	"github.com/mdelacruz-oss/forecastbot/internal/trading/portfolio"
)

// Intent bundles the ensemble output for one market's trading decision.
type Intent struct {
	Market         domain.Market
	ForecastID     int64
	EnsembleProb   float64
	ConfidenceTier domain.ConfidenceTier
	DomainWeight   float64
}

// Decision is the outcome of MaybeTrade: either a Trade was placed, or
// Rejection explains why not.
type Decision struct {
	Trade     *domain.Trade
	Rejection string
}

// MaybeTrade evaluates the tradeable filter, sizes via fractional Kelly, and
// executes. In paper mode it only writes the Trade row and deducts cash. In
// live mode it submits via exchange first; on failure nothing is written.
func MaybeTrade(ctx context.Context, store ports.Store, exchange ports.ExchangeAdapter, filter edge.Filter, paperMode bool, intent Intent) (Decision, error) {
	market := intent.Market

	openCount, err := store.OpenPositionsCount(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("executor.MaybeTrade: open positions: %w", err)
	}
	hasPrior, err := store.HasOpenTrade(ctx, market.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("executor.MaybeTrade: has open trade: %w", err)
	}

	marketPrice, _ := market.Price.Float64()
	side, edgeVal := edge.BestSide(intent.EnsembleProb, marketPrice)

	tradeable, reason := filter.IsTradeable(intent.EnsembleProb, marketPrice, intent.ConfidenceTier, intent.DomainWeight, openCount, hasPrior)
	if !tradeable {
		slog.Debug("no trade", "market", market.ID, "reason", reason)
		return Decision{Rejection: reason}, nil
	}

	p, err := store.GetPortfolio(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("executor.MaybeTrade: get portfolio: %w", err)
	}
	cash, _ := p.Cash.Float64()

	fillPrice := marketPrice
	if side == domain.SideNO {
		fillPrice = 1.0 - marketPrice
	}
	frac := kelly.Fraction(edgeVal, marketPrice, side)
	size := kelly.SizeFromFraction(frac, cash, fillPrice)
	cost := size * fillPrice

	if cost > cash {
		reason := fmt.Sprintf("insufficient cash: need %.2f have %.2f", cost, cash)
		slog.Warn("trade declined", "market", market.ID, "reason", reason)
		return Decision{Rejection: reason}, nil
	}

	trade := domain.Trade{
		MarketID:      market.ID,
		ForecastID:    intent.ForecastID,
		Exchange:      market.Exchange,
		Side:          side,
		SizeUnits:     decimal.NewFromFloat(size),
		Price:         decimal.NewFromFloat(fillPrice),
		KellyFraction: decimal.NewFromFloat(frac),
		Edge:          decimal.NewFromFloat(edgeVal),
		IsPaper:       paperMode,
		CreatedAt:     time.Now().UTC(),
	}

	if !paperMode {
		order, err := exchange.PlaceOrder(ctx, market.VenueID, side, trade.SizeUnits, trade.Price)
		if err != nil {
			slog.Error("live order failed", "market", market.ID, "err", err)
			return Decision{}, nil
		}
		slog.Info("live trade placed", "market", market.ID, "order_id", order.OrderID, "side", side)
	}

	id, err := store.InsertTrade(ctx, trade)
	if err != nil {
		return Decision{}, fmt.Errorf("executor.MaybeTrade: insert trade: %w", err)
	}
	trade.ID = id

	if _, err := portfolio.DeductCash(ctx, store, decimal.NewFromFloat(cost)); err != nil {
		return Decision{}, fmt.Errorf("executor.MaybeTrade: deduct cash: %w", err)
	}

	slog.Info("trade executed", "market", market.ID, "side", side, "size", size, "price", fillPrice, "paper", paperMode)
	return Decision{Trade: &trade}, nil
}
