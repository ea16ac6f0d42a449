package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:", decimal.NewFromInt(10000))
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInitSeedsPortfolioOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.GetPortfolio(ctx)
	require.NoError(t, err)
	require.True(t, p.Cash.Equal(decimal.NewFromInt(10000)))

	require.NoError(t, s.UpdatePortfolio(ctx, domain.PortfolioState{
		Cash: decimal.NewFromInt(9000), TotalValue: decimal.NewFromInt(9500),
	}))
	require.NoError(t, s.Init(ctx)) // idempotent: must not re-seed over existing cash

	p, err = s.GetPortfolio(ctx)
	require.NoError(t, err)
	require.True(t, p.Cash.Equal(decimal.NewFromInt(9000)))
}

func TestUpsertMarketPreservesDomainAndDedupGroup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := domain.Market{
		ID: "poly:abc", Exchange: "polymarket", VenueID: "abc", Question: "Will X happen?",
		Domain: domain.DomainPolitics, Price: decimal.NewFromFloat(0.4), VolumeUSD: decimal.NewFromInt(5000),
		CloseTime: time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, s.UpsertMarket(ctx, m))

	group := "g1"
	require.NoError(t, s.UpsertMarket(ctx, domain.Market{
		ID: "poly:abc", Exchange: "polymarket", VenueID: "abc", Question: "Will X happen?",
		Price: decimal.NewFromFloat(0.55), VolumeUSD: decimal.NewFromInt(6000),
		DedupGroup: &group,
	}))

	got, err := s.GetMarket(ctx, "poly:abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, domain.DomainPolitics, got.Domain) // preserved despite unset on second upsert
	require.NotNil(t, got.DedupGroup)
	require.Equal(t, "g1", *got.DedupGroup)
	require.True(t, got.Price.Equal(decimal.NewFromFloat(0.55))) // always overwritten
}

func TestActiveMarketsExcludesResolved(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMarket(ctx, domain.Market{ID: "a", Exchange: "x", VenueID: "a", Question: "q1"}))
	outcome := 1
	require.NoError(t, s.UpsertMarket(ctx, domain.Market{ID: "b", Exchange: "x", VenueID: "b", Question: "q2", Resolved: true, Outcome: &outcome}))

	active, err := s.ActiveMarkets(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "a", active[0].ID)
}

func TestMarketsNeedingForecastSkipsRecentlyForecast(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMarket(ctx, domain.Market{ID: "a", Exchange: "x", VenueID: "a", Question: "q1"}))
	require.NoError(t, s.UpsertMarket(ctx, domain.Market{ID: "b", Exchange: "x", VenueID: "b", Question: "q2"}))

	_, err := s.InsertForecast(ctx, domain.Forecast{
		MarketID: "a", Model: "gpt-4o-mini", PromptVersion: "v1-baseline",
		RawProbability: decimal.NewFromFloat(0.5), EnsembleProbability: decimal.NewFromFloat(0.5),
		ConfidenceTier: domain.TierHigh,
	})
	require.NoError(t, err)

	needing, err := s.MarketsNeedingForecast(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, needing, 1)
	require.Equal(t, "b", needing[0].ID)
}

func TestForecastsForMarketOrdersByCreation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertMarket(ctx, domain.Market{ID: "a", Exchange: "x", VenueID: "a", Question: "q"}))

	for _, model := range []string{"gpt-4o-mini", "deepseek-chat"} {
		_, err := s.InsertForecast(ctx, domain.Forecast{
			MarketID: "a", Model: model, PromptVersion: "v1-baseline",
			RawProbability: decimal.NewFromFloat(0.5), EnsembleProbability: decimal.NewFromFloat(0.5),
			ConfidenceTier: domain.TierMedium,
		})
		require.NoError(t, err)
	}

	forecasts, err := s.ForecastsForMarket(ctx, "a")
	require.NoError(t, err)
	require.Len(t, forecasts, 2)
}

func TestTradeOpenPositionsCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertMarket(ctx, domain.Market{ID: "a", Exchange: "x", VenueID: "a", Question: "q"}))

	fid, err := s.InsertForecast(ctx, domain.Forecast{
		MarketID: "a", Model: "gpt-4o-mini", PromptVersion: "v1-baseline",
		RawProbability: decimal.NewFromFloat(0.6), EnsembleProbability: decimal.NewFromFloat(0.6),
		ConfidenceTier: domain.TierHigh,
	})
	require.NoError(t, err)

	_, err = s.InsertTrade(ctx, domain.Trade{
		MarketID: "a", ForecastID: fid, Exchange: "polymarket", Side: domain.SideYES,
		SizeUnits: decimal.NewFromInt(10), Price: decimal.NewFromFloat(0.6), IsPaper: true,
	})
	require.NoError(t, err)

	has, err := s.HasOpenTrade(ctx, "a")
	require.NoError(t, err)
	require.True(t, has)

	count, err := s.OpenPositionsCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	open, err := s.OpenTrades(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, domain.SideYES, open[0].Side)
}

func TestOutcomesSinceFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertMarket(ctx, domain.Market{ID: "a", Exchange: "x", VenueID: "a", Question: "q"}))
	fid, err := s.InsertForecast(ctx, domain.Forecast{
		MarketID: "a", Model: "gpt-4o-mini", PromptVersion: "v1-baseline",
		RawProbability: decimal.NewFromFloat(0.6), EnsembleProbability: decimal.NewFromFloat(0.6),
		ConfidenceTier: domain.TierHigh,
	})
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, s.InsertOutcome(ctx, domain.Outcome{
		MarketID: "a", ForecastID: fid, Domain: domain.DomainPolitics, Model: "gpt-4o-mini",
		PromptVersion: "v1-baseline", PredictedProb: decimal.NewFromFloat(0.6), ActualOutcome: 1,
		Brier: decimal.NewFromFloat(0.16), ResolvedAt: old,
	}))
	recent := time.Now()
	require.NoError(t, s.InsertOutcome(ctx, domain.Outcome{
		MarketID: "a", ForecastID: fid, Domain: domain.DomainPolitics, Model: "gpt-4o-mini",
		PromptVersion: "v1-baseline", PredictedProb: decimal.NewFromFloat(0.6), ActualOutcome: 1,
		Brier: decimal.NewFromFloat(0.16), ResolvedAt: recent,
	}))

	since := time.Now().Add(-time.Hour)
	outcomes, err := s.OutcomesSince(ctx, since)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
}

func TestUpsertCalibrationPreservesEntropyThresholdWhenOmitted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	threshold := 4.5
	require.NoError(t, s.UpsertCalibration(ctx, domain.CalibrationState{
		Domain: domain.DomainFinance, Model: "gpt-4o-mini", BrierScore: 0.18, NResolved: 10,
		DomainWeight: 1.0, EntropyThreshold: &threshold,
	}))

	require.NoError(t, s.UpsertCalibration(ctx, domain.CalibrationState{
		Domain: domain.DomainFinance, Model: "gpt-4o-mini", BrierScore: 0.15, NResolved: 20,
		DomainWeight: 1.1,
	}))

	got, err := s.GetCalibration(ctx, domain.DomainFinance, "gpt-4o-mini")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.EntropyThreshold)
	require.InDelta(t, 4.5, *got.EntropyThreshold, 1e-9)
	require.Equal(t, 20, got.NResolved)
}

func TestModelWeightsRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	brier := 0.2
	require.NoError(t, s.UpsertModelWeight(ctx, domain.ModelWeight{Model: "gpt-4o-mini", Weight: 0.5, RollingBrier: &brier, NResolved: 5}))

	weights, err := s.AllModelWeights(ctx)
	require.NoError(t, err)
	require.Len(t, weights, 1)
	require.Equal(t, "gpt-4o-mini", weights[0].Model)
}

func TestPromptExperimentsActiveFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fin := domain.DomainFinance
	require.NoError(t, s.UpsertPrompt(ctx, domain.PromptExperiment{PromptVersion: "v1-baseline", PromptTemplate: "t1", Active: true}))
	require.NoError(t, s.UpsertPrompt(ctx, domain.PromptExperiment{PromptVersion: "v2-finance", Domain: &fin, PromptTemplate: "t2", Active: true}))
	require.NoError(t, s.UpsertPrompt(ctx, domain.PromptExperiment{PromptVersion: "v3-retired", PromptTemplate: "t3", Active: false}))

	all, err := s.AllPrompts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	active, err := s.ActivePrompts(ctx, &fin)
	require.NoError(t, err)
	require.Len(t, active, 2) // global baseline + finance-specific
}

func TestLLMCostInsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertLLMCost(ctx, domain.LLMCost{
		Model: "gpt-4o-mini", InputTokens: 100, OutputTokens: 50,
		CostUSD: decimal.NewFromFloat(0.002), CallType: domain.CallTypeForecast,
	}))
}
