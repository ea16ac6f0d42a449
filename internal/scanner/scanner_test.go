package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
	"github.com/mdelacruz-oss/forecastbot/internal/storetest"
)

type fakeAdapter struct {
	name    string
	markets []domain.Market
	prices  map[string]decimal.Decimal
}

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) ListMarkets(ctx context.Context) ([]domain.Market, error) {
	return f.markets, nil
}
func (f *fakeAdapter) Price(ctx context.Context, venueID string) (decimal.Decimal, error) {
	return f.prices[venueID], nil
}
func (f *fakeAdapter) PlaceOrder(ctx context.Context, venueID string, side domain.Side, size, price decimal.Decimal) (ports.PlacedOrder, error) {
	return ports.PlacedOrder{}, nil
}
func (f *fakeAdapter) ListResolved(ctx context.Context, since time.Time) ([]domain.Market, error) {
	return nil, nil
}
func (f *fakeAdapter) Close() error { return nil }

func TestScanFiltersByVolumeAndCloseTime(t *testing.T) {
	s := storetest.New()
	poly := &fakeAdapter{name: "polymarket", markets: []domain.Market{
		{ID: "polymarket:a", Exchange: "polymarket", VenueID: "a", Question: "Will X happen?", VolumeUSD: decimal.NewFromInt(10000), CloseTime: time.Now().Add(72 * time.Hour)},
		{ID: "polymarket:b", Exchange: "polymarket", VenueID: "b", Question: "Will Y happen?", VolumeUSD: decimal.NewFromInt(10), CloseTime: time.Now().Add(72 * time.Hour)},
		{ID: "polymarket:c", Exchange: "polymarket", VenueID: "c", Question: "Will Z happen?", VolumeUSD: decimal.NewFromInt(10000), CloseTime: time.Now().Add(time.Minute)},
	}}

	n, err := Scan(context.Background(), []ports.ExchangeAdapter{poly}, s, Filter{MinVolumeUSD: 1000, MinHoursToClose: 24})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	active, err := s.ActiveMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "polymarket:a", active[0].ID)
}

func TestScanLinksCrossExchangeDuplicates(t *testing.T) {
	s := storetest.New()
	poly := &fakeAdapter{name: "polymarket", markets: []domain.Market{
		{ID: "polymarket:a", Exchange: "polymarket", VenueID: "a", Question: "Will the incumbent president win reelection?", VolumeUSD: decimal.NewFromInt(5000), CloseTime: time.Now().Add(72 * time.Hour)},
	}}
	kalshi := &fakeAdapter{name: "kalshi", markets: []domain.Market{
		{ID: "kalshi:x", Exchange: "kalshi", VenueID: "x", Question: "Will president incumbent win the reelection", VolumeUSD: decimal.NewFromInt(5000), CloseTime: time.Now().Add(72 * time.Hour)},
	}}

	_, err := Scan(context.Background(), []ports.ExchangeAdapter{poly, kalshi}, s, Filter{MinVolumeUSD: 1000, MinHoursToClose: 24})
	require.NoError(t, err)

	a, err := s.GetMarket(context.Background(), "polymarket:a")
	require.NoError(t, err)
	b, err := s.GetMarket(context.Background(), "kalshi:x")
	require.NoError(t, err)
	require.NotNil(t, a.DedupGroup)
	require.NotNil(t, b.DedupGroup)
	assert.Equal(t, *a.DedupGroup, *b.DedupGroup)
}

func TestRefreshPricesUpdatesActiveMarkets(t *testing.T) {
	s := storetest.New()
	m := domain.Market{ID: "polymarket:a", Exchange: "polymarket", VenueID: "a", Price: decimal.NewFromFloat(0.3), UpdatedAt: time.Now()}
	require.NoError(t, s.UpsertMarket(context.Background(), m))

	poly := &fakeAdapter{name: "polymarket", prices: map[string]decimal.Decimal{"a": decimal.NewFromFloat(0.55)}}
	require.NoError(t, RefreshPrices(context.Background(), []ports.ExchangeAdapter{poly}, s))

	updated, err := s.GetMarket(context.Background(), "polymarket:a")
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.NewFromFloat(0.55)))
}
