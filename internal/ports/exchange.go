package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
)

// PlacedOrder is the result of a successful order submission.
type PlacedOrder struct {
	OrderID string
	Status  string
}

// ExchangeAdapter is the uniform boundary the core consumes over each
// prediction-market venue. The implementations in this module log a failed
// market or resolution listing and return an empty result rather than an
// error; Price and live PlaceOrder do return errors.
type ExchangeAdapter interface {
	// Name is the venue identifier used as the "{exchange}" prefix of
	// market keys ("polymarket", "kalshi").
	Name() string

	// ListMarkets returns all currently listed markets on this venue.
	ListMarkets(ctx context.Context) ([]domain.Market, error)

	// Price returns the current YES probability for a market.
	Price(ctx context.Context, venueID string) (decimal.Decimal, error)

	// PlaceOrder submits an order for one side of a market.
	PlaceOrder(ctx context.Context, venueID string, side domain.Side, size, price decimal.Decimal) (PlacedOrder, error)

	// ListResolved returns markets resolved since the given time.
	ListResolved(ctx context.Context, since time.Time) ([]domain.Market, error)

	// Close releases any underlying connections.
	Close() error
}
