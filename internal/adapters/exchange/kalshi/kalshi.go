package kalshi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

// kalshiMarket is the subset of Kalshi's /markets response this adapter
// needs. Prices are quoted in integer cents.
type kalshiMarket struct {
	Ticker    string `json:"ticker"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	YesBid    int    `json:"yes_bid"`
	YesAsk    int    `json:"yes_ask"`
	Volume    int64  `json:"volume"`
	CloseTime string `json:"close_time"`
	Result    string `json:"result"`
}

type marketsResponse struct {
	Markets []kalshiMarket `json:"markets"`
	Cursor  string         `json:"cursor"`
}

// Adapter implements ports.ExchangeAdapter against Kalshi's v2 REST API.
// Live order placement is not implemented: outside paper mode PlaceOrder
// always returns an error (a missing-key error when no RSA private key is
// configured, a not-implemented error otherwise), matching the Polymarket
// adapter.
type Adapter struct {
	client    *client
	paperMode bool
	hasKey    bool
}

// New builds a Kalshi adapter. host empty falls back to production.
// privateKeyPEM is the PKCS1/PKCS8 PEM-encoded RSA key used to sign
// outgoing requests; an empty value sends them unsigned. The adapter is
// read-only either way.
func New(host, apiKey string, privateKeyPEM []byte, paperMode bool) *Adapter {
	c := newClient(host, apiKey, privateKeyPEM, 10)
	return &Adapter{
		client:    c,
		paperMode: paperMode,
		hasKey:    c.privateKey != nil,
	}
}

func (a *Adapter) Name() string { return "kalshi" }

func (a *Adapter) ListMarkets(ctx context.Context) ([]domain.Market, error) {
	markets := make([]domain.Market, 0)
	cursor := ""
	for page := 0; page < 10; page++ {
		path := "/markets?status=open&limit=200"
		if cursor != "" {
			path += "&cursor=" + cursor
		}
		var resp marketsResponse
		if err := a.client.get(ctx, path, &resp); err != nil {
			slog.Error("kalshi: list markets failed", "err", err)
			break
		}
		now := time.Now().UTC()
		for _, m := range resp.Markets {
			mkt, ok := toMarket(m, now)
			if !ok {
				continue
			}
			markets = append(markets, mkt)
		}
		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}
	slog.Info("kalshi: listed markets", "count", len(markets))
	return markets, nil
}

func (a *Adapter) Price(ctx context.Context, venueID string) (decimal.Decimal, error) {
	var resp struct {
		Market kalshiMarket `json:"market"`
	}
	path := fmt.Sprintf("/markets/%s", venueID)
	if err := a.client.get(ctx, path, &resp); err != nil {
		return decimal.NewFromFloat(0.5), fmt.Errorf("kalshi.Price: %w", err)
	}
	return midpoint(resp.Market), nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, venueID string, side domain.Side, size, price decimal.Decimal) (ports.PlacedOrder, error) {
	if a.paperMode {
		return ports.PlacedOrder{
			OrderID: fmt.Sprintf("paper-kalshi-%s-%s", venueID, side),
			Status:  "filled",
		}, nil
	}
	if !a.hasKey {
		return ports.PlacedOrder{}, fmt.Errorf("kalshi.PlaceOrder: no private key configured for live trading")
	}
	return ports.PlacedOrder{}, fmt.Errorf("kalshi.PlaceOrder: live order placement not implemented")
}

func (a *Adapter) ListResolved(ctx context.Context, since time.Time) ([]domain.Market, error) {
	var resp marketsResponse
	if err := a.client.get(ctx, "/markets?status=finalized&limit=200", &resp); err != nil {
		slog.Error("kalshi: list resolved failed", "err", err)
		return nil, nil
	}

	resolved := make([]domain.Market, 0)
	for _, m := range resp.Markets {
		closedAt := parseTime(m.CloseTime)
		if closedAt.Before(since) {
			continue
		}
		outcome := resultOutcome(m.Result)
		if outcome == nil {
			continue
		}
		mkt, ok := toMarket(m, time.Now().UTC())
		if !ok {
			continue
		}
		mkt.Resolved = true
		mkt.Outcome = outcome
		resolved = append(resolved, mkt)
	}
	return resolved, nil
}

func (a *Adapter) Close() error { return nil }

func toMarket(m kalshiMarket, now time.Time) (domain.Market, bool) {
	if m.Ticker == "" {
		return domain.Market{}, false
	}
	closeTime := parseTime(m.CloseTime)
	if closeTime.IsZero() {
		closeTime = now.AddDate(0, 0, 30)
	}
	return domain.Market{
		ID:        "kalshi:" + m.Ticker,
		Exchange:  "kalshi",
		VenueID:   m.Ticker,
		Question:  m.Title,
		Price:     midpoint(m),
		VolumeUSD: decimal.NewFromInt(m.Volume),
		CloseTime: closeTime,
		UpdatedAt: now,
	}, true
}

func midpoint(m kalshiMarket) decimal.Decimal {
	if m.YesBid == 0 && m.YesAsk == 0 {
		return decimal.NewFromFloat(0.5)
	}
	cents := decimal.NewFromInt(int64(m.YesBid + m.YesAsk)).Div(decimal.NewFromInt(2))
	return cents.Div(decimal.NewFromInt(100))
}

func resultOutcome(result string) *int {
	outcome := 0
	switch strings.ToLower(result) {
	case "yes":
		outcome = 1
	case "no":
		outcome = 0
	default:
		return nil
	}
	return &outcome
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.999999Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
