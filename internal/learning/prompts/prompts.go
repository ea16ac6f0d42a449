// Package prompts runs the forecasting prompt A/B tournament: seeding the
// two built-in templates, selecting an active variant per forecast, and
// periodically retiring laggards and evolving a replacement.
package prompts

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

// BaselineVersion and CoTVersion are the two built-in templates seeded on
// first boot. Both are domain-agnostic (Domain == nil).
const (
	BaselineVersion = "v1-baseline"
	CoTVersion      = "v2-cot"

	lookbackDays = 60
)

var baselineTemplate = `Question: {question}
Domain: {domain}
Market price: {market_price}
{news_context}
Respond with strict JSON: {"probability": <0-1>, "reasoning": "<one paragraph>"}.`

var cotTemplate = `Question: {question}
Domain: {domain}
Market price: {market_price}
{news_context}
Think step by step about base rates, then recent evidence, then arrive at a
final probability. Respond with strict JSON: {"probability": <0-1>, "reasoning": "<your reasoning>"}.`

// Seed idempotently inserts the two built-in templates if they are not
// already present.
func Seed(ctx context.Context, store ports.Store) error {
	existing, err := store.AllPrompts(ctx)
	if err != nil {
		return fmt.Errorf("prompts.Seed: all prompts: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[p.PromptVersion] = true
	}

	seeds := []domain.PromptExperiment{
		{PromptVersion: BaselineVersion, PromptTemplate: baselineTemplate, Active: true},
		{PromptVersion: CoTVersion, PromptTemplate: cotTemplate, Active: true},
	}
	for _, s := range seeds {
		if have[s.PromptVersion] {
			continue
		}
		if err := store.UpsertPrompt(ctx, s); err != nil {
			return fmt.Errorf("prompts.Seed: upsert %s: %w", s.PromptVersion, err)
		}
	}
	return nil
}

// Select picks uniformly at random among active variants for d, falling
// back to global (domain=nil) variants, falling back to the built-in
// baseline if the store has nothing active at all.
func Select(ctx context.Context, store ports.Store, d domain.Domain) (domain.PromptExperiment, error) {
	domainVariants, err := store.ActivePrompts(ctx, &d)
	if err != nil {
		return domain.PromptExperiment{}, fmt.Errorf("prompts.Select: active prompts for domain: %w", err)
	}
	scoped := make([]domain.PromptExperiment, 0, len(domainVariants))
	for _, p := range domainVariants {
		if p.Domain != nil && *p.Domain == d {
			scoped = append(scoped, p)
		}
	}
	if len(scoped) > 0 {
		return scoped[rand.Intn(len(scoped))], nil
	}

	global, err := store.ActivePrompts(ctx, nil)
	if err != nil {
		return domain.PromptExperiment{}, fmt.Errorf("prompts.Select: active global prompts: %w", err)
	}
	if len(global) > 0 {
		return global[rand.Intn(len(global))], nil
	}

	return domain.PromptExperiment{PromptVersion: BaselineVersion, PromptTemplate: baselineTemplate, Active: true}, nil
}

// RunTournament evaluates 60-day outcomes grouped by prompt_version for one
// domain (nil = global), retires variants that lag the best by more than
// retireBrierGap, and — if the active count is below maxVariants — asks the
// evolver LLM to propose a replacement seeded from the worst-performing
// active template.
func RunTournament(ctx context.Context, store ports.Store, llm ports.LLMProvider, d *domain.Domain, minTrials int, retireBrierGap float64, maxVariants int) error {
	since := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	outcomes, err := store.OutcomesSince(ctx, since)
	if err != nil {
		return fmt.Errorf("prompts.RunTournament: outcomes since: %w", err)
	}

	briersByVersion := make(map[string][]float64)
	for _, o := range outcomes {
		if d != nil && o.Domain != *d {
			continue
		}
		b, _ := o.Brier.Float64()
		briersByVersion[o.PromptVersion] = append(briersByVersion[o.PromptVersion], b)
	}

	all, err := store.AllPrompts(ctx)
	if err != nil {
		return fmt.Errorf("prompts.RunTournament: all prompts: %w", err)
	}
	active := make([]domain.PromptExperiment, 0)
	for _, p := range all {
		if !p.Active {
			continue
		}
		if sameDomainScope(p.Domain, d) {
			active = append(active, p)
		}
	}

	type scored struct {
		prompt domain.PromptExperiment
		brier  float64
	}
	evaluated := make([]scored, 0, len(active))
	for _, p := range active {
		briers := briersByVersion[p.PromptVersion]
		if len(briers) < minTrials {
			continue
		}
		evaluated = append(evaluated, scored{prompt: p, brier: average(briers)})
	}
	if len(evaluated) == 0 {
		return nil
	}

	best := evaluated[0]
	for _, s := range evaluated[1:] {
		if s.brier < best.brier {
			best = s
		}
	}

	worstActive := best
	for _, s := range evaluated {
		s.prompt.NTrials = len(briersByVersion[s.prompt.PromptVersion])
		s.prompt.MeanBrier = ptr(s.brier)
		if s.brier > best.brier+retireBrierGap {
			s.prompt.Active = false
			slog.Info("prompts: retiring variant", "version", s.prompt.PromptVersion, "brier", s.brier, "best", best.brier)
		}
		if err := store.UpsertPrompt(ctx, s.prompt); err != nil {
			return fmt.Errorf("prompts.RunTournament: upsert %s: %w", s.prompt.PromptVersion, err)
		}
		if s.brier > worstActive.brier {
			worstActive = s
		}
	}

	stillActive := len(active)
	for _, s := range evaluated {
		if s.brier > best.brier+retireBrierGap {
			stillActive--
		}
	}
	if stillActive >= maxVariants || llm == nil {
		return nil
	}

	evolved, err := llm.Evolve(ctx, worstActive.prompt.PromptTemplate)
	if err != nil {
		return fmt.Errorf("prompts.RunTournament: evolve: %w", err)
	}
	hash := md5.Sum([]byte(evolved))
	version := fmt.Sprintf("v-evolved-%x", hash[:4])

	newVariant := domain.PromptExperiment{
		PromptVersion:  version,
		Domain:         d,
		PromptTemplate: evolved,
		Active:         true,
	}
	if err := store.UpsertPrompt(ctx, newVariant); err != nil {
		return fmt.Errorf("prompts.RunTournament: upsert evolved: %w", err)
	}
	slog.Info("prompts: evolved new variant", "version", version, "seeded_from", worstActive.prompt.PromptVersion)
	return nil
}

func sameDomainScope(a, b *domain.Domain) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func ptr(f float64) *float64 { return &f }
