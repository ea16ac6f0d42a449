package forecaster

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
	"github.com/mdelacruz-oss/forecastbot/internal/storetest"
	"github.com/mdelacruz-oss/forecastbot/internal/trading/edge"
)

type fakeLLM struct {
	probByModel map[string]float64
}

func (f *fakeLLM) ForecastOne(ctx context.Context, cfg ports.ModelConfig, system, user string) (*ports.ForecastResult, error) {
	p, ok := f.probByModel[cfg.Name]
	if !ok {
		p = 0.5
	}
	return &ports.ForecastResult{Probability: p, Entropy: 2.0, Reasoning: "because"}, nil
}
func (f *fakeLLM) Classify(ctx context.Context, question string) (string, error) {
	return `{"domain":"politics","confidence":0.9}`, nil
}
func (f *fakeLLM) Evolve(ctx context.Context, seedTemplate string) (string, error) {
	return seedTemplate, nil
}

func TestRunClassifiesForecastsAndTrades(t *testing.T) {
	s := storetest.New()
	s.SeedPortfolio(domain.PortfolioState{Cash: decimal.NewFromInt(10000), TotalValue: decimal.NewFromInt(10000)})

	m := domain.Market{
		ID:        "polymarket:abc",
		Exchange:  "polymarket",
		VenueID:   "abc",
		Question:  "Will the incumbent win the election?",
		Price:     decimal.NewFromFloat(0.40),
		CloseTime: time.Now().Add(72 * time.Hour),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, s.UpsertMarket(context.Background(), m))

	llm := &fakeLLM{probByModel: map[string]float64{"gpt": 0.75, "claude": 0.78}}
	p := Pipeline{
		Store:     s,
		LLM:       llm,
		News:      nil,
		Roster:    []ports.ModelConfig{{Name: "gpt", Weight: 1.0}, {Name: "claude", Weight: 1.0}},
		Filter:    edge.DefaultFilter(),
		PaperMode: true,
	}

	summary, err := p.Run(context.Background(), m, nil)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Len(t, summary.Forecasts, 2)
	assert.NotNil(t, summary.Trade)

	persisted, err := s.GetMarket(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DomainPolitics, persisted.Domain)

	forecasts, err := s.ForecastsForMarket(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Len(t, forecasts, 2)
	for _, f := range forecasts {
		assert.Equal(t, domain.TierHigh, f.ConfidenceTier)
	}
}

func TestRunAbortsWhenNoForecastsProduced(t *testing.T) {
	s := storetest.New()
	s.SeedPortfolio(domain.PortfolioState{})
	m := domain.Market{ID: "polymarket:empty", Domain: domain.DomainSports, Price: decimal.NewFromFloat(0.5), UpdatedAt: time.Now()}
	require.NoError(t, s.UpsertMarket(context.Background(), m))

	p := Pipeline{Store: s, LLM: &fakeLLM{}, Roster: nil, Filter: edge.DefaultFilter(), PaperMode: true}
	summary, err := p.Run(context.Background(), m, nil)
	require.NoError(t, err)
	assert.Nil(t, summary)

	forecasts, err := s.ForecastsForMarket(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Empty(t, forecasts)
}
