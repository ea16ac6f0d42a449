// Package scanner sweeps every exchange adapter for listed markets, filters
// by volume and time-to-close, cross-matches near-duplicate questions
// across venues, and keeps quoted prices fresh.
package scanner

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

// DedupThreshold is the minimum token-sort fuzzy ratio (0-100) for two
// markets on different venues to be linked by dedup_group.
const DedupThreshold = 85

// Filter bounds which fetched markets are kept.
type Filter struct {
	MinVolumeUSD    float64
	MinHoursToClose float64
}

// Scan fetches every adapter's market list concurrently, applies Filter,
// cross-matches pairs from different venues, and upserts everything to
// store. One adapter's failure does not abort the sweep — its list is
// treated as empty.
func Scan(ctx context.Context, adapters []ports.ExchangeAdapter, store ports.Store, filter Filter) (int, error) {
	markets := fetchAll(ctx, adapters)

	kept := make([]domain.Market, 0, len(markets))
	now := time.Now().UTC()
	for _, m := range markets {
		vol, _ := m.VolumeUSD.Float64()
		if vol < filter.MinVolumeUSD {
			continue
		}
		if m.HoursToClose(now) < filter.MinHoursToClose {
			continue
		}
		kept = append(kept, m)
	}

	crossMatch(kept)

	for _, m := range kept {
		if err := store.UpsertMarket(ctx, m); err != nil {
			return 0, err
		}
	}

	slog.Info("scanner: sweep complete", "fetched", len(markets), "kept", len(kept))
	return len(kept), nil
}

// RefreshPrices updates the quoted price for every active market via its
// venue's adapter. A per-market failure is swallowed at debug level; it
// does not interrupt the rest of the refresh.
func RefreshPrices(ctx context.Context, adapters []ports.ExchangeAdapter, store ports.Store) error {
	byName := make(map[string]ports.ExchangeAdapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}

	active, err := store.ActiveMarkets(ctx)
	if err != nil {
		return err
	}

	for _, m := range active {
		adapter, ok := byName[m.Exchange]
		if !ok {
			continue
		}
		price, err := adapter.Price(ctx, m.VenueID)
		if err != nil {
			slog.Debug("scanner: price refresh failed", "market", m.ID, "err", err)
			continue
		}
		m.Price = price
		m.UpdatedAt = time.Now().UTC()
		if err := store.UpsertMarket(ctx, m); err != nil {
			slog.Debug("scanner: price upsert failed", "market", m.ID, "err", err)
		}
	}
	return nil
}

func fetchAll(ctx context.Context, adapters []ports.ExchangeAdapter) []domain.Market {
	var mu sync.Mutex
	var all []domain.Market
	var wg sync.WaitGroup

	for _, adapter := range adapters {
		wg.Add(1)
		go func(a ports.ExchangeAdapter) {
			defer wg.Done()
			markets, err := a.ListMarkets(ctx)
			if err != nil {
				slog.Error("scanner: list markets failed", "exchange", a.Name(), "err", err)
				return
			}
			mu.Lock()
			all = append(all, markets...)
			mu.Unlock()
		}(adapter)
	}
	wg.Wait()
	return all
}

// crossMatch links markets from different venues whose normalised question
// scores >= DedupThreshold on a token-sort fuzzy ratio, recording the group
// bidirectionally (both markets point at the same group key).
func crossMatch(markets []domain.Market) {
	for i := range markets {
		for j := i + 1; j < len(markets); j++ {
			if markets[i].Exchange == markets[j].Exchange {
				continue
			}
			if markets[i].DedupGroup != nil && markets[j].DedupGroup != nil {
				continue
			}
			if tokenSortRatio(markets[i].Question, markets[j].Question) < DedupThreshold {
				continue
			}

			group := groupKey(markets[i], markets[j])
			markets[i].DedupGroup = &group
			markets[j].DedupGroup = &group
		}
	}
}

func groupKey(a, b domain.Market) string {
	keys := []string{a.Key(), b.Key()}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

// tokenSortRatio normalises both questions, sorts their tokens
// alphabetically, and scores the resulting strings by Levenshtein distance
// normalised to 0-100 — a token-order-insensitive fuzzy match.
func tokenSortRatio(a, b string) int {
	sa := sortedTokens(domain.NormalizedQuestion(a))
	sb := sortedTokens(domain.NormalizedQuestion(b))
	if sa == "" && sb == "" {
		return 100
	}

	dist := levenshtein.ComputeDistance(sa, sb)
	lenSum := len(sa) + len(sb)
	if lenSum == 0 {
		return 100
	}
	ratio := float64(lenSum-dist) / float64(lenSum) * 100
	if ratio < 0 {
		ratio = 0
	}
	return int(ratio)
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
