package domain

import "strings"

// PromptExperiment is one candidate prompt template in the A/B tournament.
// At most MaxVariantsPerDomain are active per domain at any time.
type PromptExperiment struct {
	PromptVersion  string
	Domain         *Domain // nil = global, applies to any domain
	PromptTemplate string  // contains {question}, {domain}, {news_context}, {market_price}
	NTrials        int
	NWins          int
	MeanBrier      *float64
	Active         bool
}

// MaxVariantsPerDomain caps the number of simultaneously active prompt
// variants for a single domain (or the global/null domain).
const MaxVariantsPerDomain = 3

// PromptPlaceholders are the named substitution points a template must
// preserve across evolution.
var PromptPlaceholders = []string{"{question}", "{domain}", "{news_context}", "{market_price}"}

// Render substitutes the named placeholders in the template. Unknown
// placeholders are left untouched; this is a plain name-based substitutor,
// not a general string-formatting engine.
func (p PromptExperiment) Render(question, domain, newsContext, marketPrice string) string {
	r := strings.NewReplacer(
		"{question}", question,
		"{domain}", domain,
		"{news_context}", newsContext,
		"{market_price}", marketPrice,
	)
	return r.Replace(p.PromptTemplate)
}
