package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome records the realized accuracy of one Forecast once its market
// resolves. Created once per (market, forecast) pair.
type Outcome struct {
	ID            int64
	MarketID      string
	ForecastID    int64
	Domain        Domain
	Model         string
	PromptVersion string
	PredictedProb decimal.Decimal
	ActualOutcome int // 0 or 1
	Brier         decimal.Decimal
	// Entropy is copied from the originating Forecast at write time so the
	// threshold adapter can evaluate (entropy, correct) pairs without a
	// second lookup against the forecasts table.
	Entropy    float64
	ResolvedAt time.Time
}

// Brier computes (predictedProb - actualOutcome)^2.
func Brier(predictedProb decimal.Decimal, actualOutcome int) decimal.Decimal {
	diff := predictedProb.Sub(decimal.NewFromInt(int64(actualOutcome)))
	return diff.Mul(diff)
}
