package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CallType distinguishes which component made an LLM call, for cost
// attribution.
type CallType string

const (
	CallTypeClassify CallType = "classify"
	CallTypeForecast CallType = "forecast"
	CallTypeEvolve   CallType = "evolve"
)

// LLMCost is an append-only record of every LLM call's token usage and cost.
type LLMCost struct {
	ID           string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      decimal.Decimal
	CallType     CallType
	CreatedAt    time.Time
}
