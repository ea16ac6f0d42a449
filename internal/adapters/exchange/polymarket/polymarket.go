package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

// gammaMarket is the subset of Gamma's /markets response this adapter
// needs. Gamma returns several numeric fields as JSON strings.
type gammaMarket struct {
	ConditionID string      `json:"conditionId"`
	Question    string      `json:"question"`
	Slug        string      `json:"slug"`
	EndDateISO  string      `json:"endDateIso"`
	Volume      json.Number `json:"volume"`
	Closed      bool        `json:"closed"`
	ClosedTime  string      `json:"closedTime"`
	Tokens      []struct {
		Outcome string      `json:"outcome"`
		Price   json.Number `json:"price"`
		Winner  bool        `json:"winner"`
	} `json:"tokens"`
}

// Adapter implements ports.ExchangeAdapter against Polymarket's public
// Gamma API. Order signing (EIP-712) is not implemented: outside paper mode
// PlaceOrder always returns an error (a missing-key error when no private
// key is configured, a not-implemented error otherwise).
type Adapter struct {
	client     *client
	paperMode  bool
	privateKey string
}

// New builds a Polymarket adapter. gammaBase/clobBase empty strings fall
// back to production hosts. privateKey only selects which error a live
// PlaceOrder returns; no live order is sent with or without it.
func New(gammaBase, clobBase, privateKey string, paperMode bool) *Adapter {
	return &Adapter{
		client:     newClient(gammaBase, clobBase),
		paperMode:  paperMode,
		privateKey: privateKey,
	}
}

func (a *Adapter) Name() string { return "polymarket" }

func (a *Adapter) ListMarkets(ctx context.Context) ([]domain.Market, error) {
	var raw []gammaMarket
	url := fmt.Sprintf("%s/markets?active=true&closed=false&limit=500", a.client.gammaBase)
	if err := a.client.get(ctx, a.client.gammaLimiter, url, &raw); err != nil {
		slog.Error("polymarket: list markets failed", "err", err)
		return nil, nil
	}

	now := time.Now().UTC()
	markets := make([]domain.Market, 0, len(raw))
	for _, m := range raw {
		mkt, ok := toMarket(m, now)
		if !ok {
			continue
		}
		markets = append(markets, mkt)
	}
	slog.Info("polymarket: listed markets", "count", len(markets))
	return markets, nil
}

func (a *Adapter) Price(ctx context.Context, venueID string) (decimal.Decimal, error) {
	var raw gammaMarket
	url := fmt.Sprintf("%s/markets/%s", a.client.gammaBase, venueID)
	if err := a.client.get(ctx, a.client.gammaLimiter, url, &raw); err != nil {
		return decimal.NewFromFloat(0.5), fmt.Errorf("polymarket.Price: %w", err)
	}
	if p, ok := yesPrice(raw); ok {
		return p, nil
	}
	return decimal.NewFromFloat(0.5), nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, venueID string, side domain.Side, size, price decimal.Decimal) (ports.PlacedOrder, error) {
	if a.paperMode {
		return ports.PlacedOrder{
			OrderID: fmt.Sprintf("paper-polymarket-%s-%s", venueID, side),
			Status:  "filled",
		}, nil
	}
	if a.privateKey == "" {
		return ports.PlacedOrder{}, fmt.Errorf("polymarket.PlaceOrder: no private key configured for live trading")
	}
	return ports.PlacedOrder{}, fmt.Errorf("polymarket.PlaceOrder: live order signing not implemented")
}

func (a *Adapter) ListResolved(ctx context.Context, since time.Time) ([]domain.Market, error) {
	var raw []gammaMarket
	url := fmt.Sprintf("%s/markets?closed=true&limit=500", a.client.gammaBase)
	if err := a.client.get(ctx, a.client.gammaLimiter, url, &raw); err != nil {
		slog.Error("polymarket: list resolved failed", "err", err)
		return nil, nil
	}

	resolved := make([]domain.Market, 0)
	for _, m := range raw {
		closedAt := parseTime(m.ClosedTime)
		if closedAt.IsZero() {
			closedAt = parseTime(m.EndDateISO)
		}
		if closedAt.Before(since) {
			continue
		}
		outcome := winningOutcome(m)
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

func toMarket(m gammaMarket, now time.Time) (domain.Market, bool) {
	if m.ConditionID == "" || len(m.Tokens) != 2 {
		return domain.Market{}, false
	}
	price, ok := yesPrice(m)
	if !ok {
		price = decimal.NewFromFloat(0.5)
	}
	volume, _ := decimal.NewFromString(m.Volume.String())
	closeTime := parseTime(m.EndDateISO)
	if closeTime.IsZero() {
		closeTime = now.AddDate(0, 0, 30)
	}

	return domain.Market{
		ID:        "polymarket:" + m.ConditionID,
		Exchange:  "polymarket",
		VenueID:   m.ConditionID,
		Question:  m.Question,
		Price:     price,
		VolumeUSD: volume,
		CloseTime: closeTime,
		UpdatedAt: now,
	}, true
}

func yesPrice(m gammaMarket) (decimal.Decimal, bool) {
	for _, t := range m.Tokens {
		if strings.EqualFold(t.Outcome, "YES") {
			p, err := decimal.NewFromString(t.Price.String())
			if err != nil {
				return decimal.Decimal{}, false
			}
			return p, true
		}
	}
	return decimal.Decimal{}, false
}

func winningOutcome(m gammaMarket) *int {
	for _, t := range m.Tokens {
		if !t.Winner {
			continue
		}
		outcome := 0
		if strings.EqualFold(t.Outcome, "YES") {
			outcome = 1
		}
		return &outcome
	}
	return nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.999999Z", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
