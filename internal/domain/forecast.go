package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Forecast is one model's probability estimate for one market, plus the
// ensemble result computed alongside it (every Forecast row produced in the
// same run carries the same ensemble fields). Immutable after insert.
type Forecast struct {
	ID                 int64
	MarketID           string
	Model              string
	PromptVersion      string
	RawProbability     decimal.Decimal
	Entropy            float64 // bits, >= 0
	EnsembleProbability decimal.Decimal
	ConfidenceTier     ConfidenceTier
	ReasoningExcerpt   string // truncated to 500 chars
	NewsUsed           bool
	CreatedAt          time.Time
}

const maxReasoningExcerpt = 500

// TruncateReasoning clamps a reasoning string to the Forecast column limit.
func TruncateReasoning(s string) string {
	if len(s) <= maxReasoningExcerpt {
		return s
	}
	return s[:maxReasoningExcerpt]
}
