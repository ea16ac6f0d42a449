package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market is a binary prediction market tracked by the agent. Its key at the
// store boundary is "{exchange}:{venue_id}".
type Market struct {
	ID         string // "{exchange}:{venue_id}"
	Exchange   string
	VenueID    string
	Question   string
	Domain     Domain
	Price      decimal.Decimal // market-quoted probability of YES, in [0,1]
	VolumeUSD  decimal.Decimal
	CloseTime  time.Time
	Resolved   bool
	Outcome    *int // 0 or 1, nil until resolved
	DedupGroup *string
	UpdatedAt  time.Time
}

// Key returns the store-boundary identifier "{exchange}:{venue_id}".
func (m Market) Key() string {
	return m.Exchange + ":" + m.VenueID
}

// HoursToClose returns the hours remaining until CloseTime, 0 if already past.
func (m Market) HoursToClose(now time.Time) float64 {
	if m.CloseTime.IsZero() {
		return 0
	}
	h := m.CloseTime.Sub(now).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// NormalizedQuestion lowercases and strips punctuation, used as the input to
// cross-exchange fuzzy deduplication.
func NormalizedQuestion(question string) string {
	out := make([]rune, 0, len(question))
	for _, r := range question {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			out = append(out, r)
		default:
			out = append(out, ' ')
		}
	}
	return string(out)
}
