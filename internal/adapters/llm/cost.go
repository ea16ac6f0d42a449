package llm

import "github.com/shopspring/decimal"

// tokenRate is (input, output) USD per million tokens.
type tokenRate struct {
	input  decimal.Decimal
	output decimal.Decimal
}

// modelRates holds known public pricing for a handful of widely-used model
// families. Anything unlisted falls back to defaultRate for its provider.
var modelRates = map[string]tokenRate{
	"gpt-4o-mini":   {input: decimal.NewFromFloat(0.15), output: decimal.NewFromFloat(0.60)},
	"gpt-4o":        {input: decimal.NewFromFloat(2.50), output: decimal.NewFromFloat(10.0)},
	"deepseek-chat": {input: decimal.NewFromFloat(0.14), output: decimal.NewFromFloat(0.28)},
}

var defaultRateByProvider = map[string]tokenRate{
	"openai":    {input: decimal.NewFromFloat(1.0), output: decimal.NewFromFloat(3.0)},
	"deepseek":  {input: decimal.NewFromFloat(0.5), output: decimal.NewFromFloat(1.0)},
	"anthropic": {input: decimal.NewFromFloat(3.0), output: decimal.NewFromFloat(15.0)},
}

var fallbackRate = tokenRate{input: decimal.NewFromFloat(1.0), output: decimal.NewFromFloat(3.0)}

// EstimateCost returns a rough USD cost for one LLM call given its model,
// provider, and token counts.
func EstimateCost(provider, model string, inputTokens, outputTokens int) decimal.Decimal {
	r, ok := modelRates[model]
	if !ok {
		r, ok = defaultRateByProvider[provider]
		if !ok {
			r = fallbackRate
		}
	}
	million := decimal.NewFromInt(1_000_000)
	in := decimal.NewFromInt(int64(inputTokens)).Div(million).Mul(r.input)
	out := decimal.NewFromInt(int64(outputTokens)).Div(million).Mul(r.output)
	return in.Add(out)
}
