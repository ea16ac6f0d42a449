// Package classifier maps a prediction-market question to one of six fixed
// domains, ranked by historical LLM forecasting accuracy.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

var jsonObjectRE = regexp.MustCompile(`\{[^}]+\}`)

// nearestDomain maps an off-taxonomy domain string returned by an LLM onto
// the nearest canonical domain via keyword containment, checked in order.
var nearestDomain = []struct {
	keyword string
	domain  domain.Domain
}{
	{"geo", domain.DomainGeopolitics}, {"international", domain.DomainGeopolitics}, {"war", domain.DomainGeopolitics},
	{"election", domain.DomainPolitics}, {"political", domain.DomainPolitics}, {"government", domain.DomainPolitics},
	{"tech", domain.DomainTechnology}, {"ai", domain.DomainTechnology}, {"crypto", domain.DomainFinance},
	{"econ", domain.DomainFinance}, {"economic", domain.DomainFinance}, {"market", domain.DomainFinance},
	{"sport", domain.DomainSports}, {"athlete", domain.DomainSports}, {"celebrity", domain.DomainEntertainment},
	{"movie", domain.DomainEntertainment}, {"tv", domain.DomainEntertainment},
}

// keywordRules is the offline fallback classifier, checked in order.
var keywordRules = []struct {
	domain   domain.Domain
	keywords []string
}{
	{domain.DomainGeopolitics, []string{"war", "nato", "sanction", "geopolit", "treaty"}},
	{domain.DomainPolitics, []string{"election", "president", "congress", "senate", "vote", "poll"}},
	{domain.DomainFinance, []string{"stock", "gdp", "fed ", "inflation", "bitcoin", "earnings"}},
	{domain.DomainSports, []string{"nfl", "nba", "mlb", "soccer", "championship", "super bowl"}},
	{domain.DomainTechnology, []string{"apple", "google", "openai", "ai ", "release", "iphone"}},
	{domain.DomainEntertainment, []string{"oscar", "emmy", "grammy", "celebrity", "netflix", "film"}},
}

// DefaultDomain and DefaultConfidence are returned whenever classification
// cannot be completed: the provider call fails, the response fails to
// parse, or (with no provider configured) no keyword matches.
const (
	DefaultDomain     = domain.DomainPolitics
	DefaultConfidence = 0.3
)

// Classify asks llm for a classification; llm may be nil, in which case the
// offline keyword matcher runs directly.
func Classify(ctx context.Context, llm ports.LLMProvider, question string) (domain.Domain, float64, error) {
	if llm == nil {
		slog.Debug("classifier: no LLM provider configured, using keyword fallback")
		d, c := keywordFallback(question)
		return d, c, nil
	}

	raw, err := llm.Classify(ctx, question)
	if err != nil {
		return DefaultDomain, DefaultConfidence, fmt.Errorf("classifier.Classify: call: %w", err)
	}

	d, conf := parseResponse(raw)
	slog.Debug("classified question", "domain", d, "confidence", conf)
	return d, conf, nil
}

func parseResponse(raw string) (domain.Domain, float64) {
	match := jsonObjectRE.FindString(raw)
	if match == "" {
		return DefaultDomain, DefaultConfidence
	}

	var data struct {
		Domain     string  `json:"domain"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(match), &data); err != nil {
		return DefaultDomain, DefaultConfidence
	}

	d := domain.Domain(strings.ToLower(strings.TrimSpace(data.Domain)))
	if !d.Valid() {
		d = closestDomain(string(d))
	}

	conf := data.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return d, conf
}

func closestDomain(raw string) domain.Domain {
	raw = strings.ToLower(raw)
	for _, m := range nearestDomain {
		if strings.Contains(raw, m.keyword) {
			return m.domain
		}
	}
	return domain.DomainPolitics
}

func keywordFallback(question string) (domain.Domain, float64) {
	text := strings.ToLower(question)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.domain, 0.5
			}
		}
	}
	return DefaultDomain, DefaultConfidence
}
