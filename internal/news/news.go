// Package news builds the per-question news context fed to forecasters,
// applying the three accuracy guards: recency bias, rumor anchoring
// (speculation tagging), and definition drift (key-term surfacing).
package news

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

// MaxArticles caps how many articles are fetched and rendered per question.
const MaxArticles = 5

const maxContentChars = 500

var speculativePatterns = regexp.MustCompile(`(?i)\b(could|may|might|reportedly|sources say|allegedly|rumored|` +
	`anonymous source|unconfirmed|expected to|likely to|possible that|` +
	`potentially|it appears|seems to)\b`)

var quotedTermRE = regexp.MustCompile(`"([^"]+)"`)
var titleCaseRE = regexp.MustCompile(`(?:[A-Z][a-z]+\s){1,3}[A-Z][a-z]+`)

// Context is the opaque pair of strings handed to the forecaster's prompt
// builder: a system prefix and a formatted body of (optionally tagged)
// articles.
type Context struct {
	SystemPrefix string
	Body         string
	UseNews      bool
}

// Build fetches and guards news for a question in the given domain. provider
// may be nil (degrades to an empty result with the no-news prefix).
func Build(ctx context.Context, provider ports.NewsProvider, question string, dom domain.Domain) (Context, error) {
	if domain.NewsNoiseDomains[dom] {
		return Context{
			UseNews: false,
			SystemPrefix: fmt.Sprintf(
				"[DOMAIN NOTE: %s domain — news context is omitted because "+
					"empirical research shows it degrades forecast accuracy for this domain. "+
					"Rely on base rates and structural reasoning only.]", dom),
			Body: "",
		}, nil
	}

	var articles []ports.Article
	if provider != nil {
		fetched, err := provider.Search(ctx, question, MaxArticles)
		if err != nil {
			return Context{}, fmt.Errorf("news.Build: search: %w", err)
		}
		articles = fetched
	}

	if len(articles) == 0 {
		return Context{
			UseNews:      true,
			SystemPrefix: "[No recent news found — rely on base rates.]",
			Body:         "",
		}, nil
	}

	keyTerms := extractKeyTerms(question)

	systemPrefix := "[FORECASTING GUIDELINES]\n" +
		"• Weight base rates equally with recent news. Recent ≠ correct.\n" +
		"• Speculative articles are tagged [SPECULATIVE] — treat as weak signal only.\n" +
		fmt.Sprintf("• Domain: %s. Key resolution terms: %s.\n", dom, strings.Join(keyTerms, ", ")) +
		"• Distinguish confirmed facts from speculation before updating your probability."

	parts := make([]string, 0, len(articles))
	for _, a := range articles {
		parts = append(parts, renderArticle(a))
	}

	return Context{
		UseNews:      true,
		SystemPrefix: systemPrefix,
		Body:         strings.Join(parts, "\n\n---\n\n"),
	}, nil
}

func renderArticle(a ports.Article) string {
	tag := ""
	if isSpeculative(a) {
		tag = "[SPECULATIVE] "
	}
	content := a.Content
	if len(content) > maxContentChars {
		content = content[:maxContentChars]
	}
	return fmt.Sprintf("%s%s\n%s", tag, a.Title, content)
}

// isSpeculative applies the rumor-anchoring guard: an article is tagged when
// its title+content contains at least two hedging-phrase hits (a repeated
// phrase counts once per occurrence).
func isSpeculative(a ports.Article) bool {
	hits := speculativePatterns.FindAllString(a.Title+" "+a.Content, -1)
	return len(hits) >= 2
}

// extractKeyTerms applies the definition-drift guard: quoted phrases and
// 2-4 word Title-Case sequences, deduplicated and capped at 5.
func extractKeyTerms(question string) []string {
	var terms []string
	for _, m := range quotedTermRE.FindAllStringSubmatch(question, -1) {
		terms = append(terms, m[1])
	}
	terms = append(terms, titleCaseRE.FindAllString(question, -1)...)

	seen := make(map[string]bool, len(terms))
	unique := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		unique = append(unique, t)
		if len(unique) == 5 {
			break
		}
	}
	return unique
}
