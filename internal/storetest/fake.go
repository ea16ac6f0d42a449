// Package storetest provides an in-memory ports.Store fake shared by unit
// tests across the learning, trading, forecaster and orchestrator packages.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
)

// Store is a minimal, non-concurrent-safe-by-design (guarded by a mutex for
// convenience) in-memory stand-in for ports.Store.
type Store struct {
	mu sync.Mutex

	markets      map[string]domain.Market
	forecasts    []domain.Forecast
	nextForecast int64
	trades       []domain.Trade
	nextTrade    int64
	outcomes     []domain.Outcome
	calibration  map[string]domain.CalibrationState // key: domain|model
	weights      map[string]domain.ModelWeight
	prompts      map[string]domain.PromptExperiment
	portfolio    domain.PortfolioState
	llmCosts     []domain.LLMCost
}

// New returns an initialised fake store with an empty portfolio.
func New() *Store {
	return &Store{
		markets:     make(map[string]domain.Market),
		calibration: make(map[string]domain.CalibrationState),
		weights:     make(map[string]domain.ModelWeight),
		prompts:     make(map[string]domain.PromptExperiment),
	}
}

func calKey(d domain.Domain, model string) string { return string(d) + "|" + model }

func (s *Store) Init(ctx context.Context) error { return nil }

func (s *Store) UpsertMarket(ctx context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.markets[m.ID]; ok && m.Domain == domain.DomainUnknown {
		m.Domain = existing.Domain
	}
	s.markets[m.ID] = m
	return nil
}

func (s *Store) GetMarket(ctx context.Context, id string) (*domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *Store) ActiveMarkets(ctx context.Context) ([]domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		if !m.Resolved {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) MarketsNeedingForecast(ctx context.Context, since time.Time) ([]domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := make(map[string]time.Time)
	for _, f := range s.forecasts {
		if f.CreatedAt.After(latest[f.MarketID]) {
			latest[f.MarketID] = f.CreatedAt
		}
	}
	out := make([]domain.Market, 0)
	for _, m := range s.markets {
		if m.Resolved {
			continue
		}
		if t, ok := latest[m.ID]; !ok || t.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) InsertForecast(ctx context.Context, f domain.Forecast) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextForecast++
	f.ID = s.nextForecast
	s.forecasts = append(s.forecasts, f)
	return f.ID, nil
}

func (s *Store) ForecastsForMarket(ctx context.Context, marketID string) ([]domain.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Forecast, 0)
	for _, f := range s.forecasts {
		if f.MarketID == marketID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Store) InsertTrade(ctx context.Context, t domain.Trade) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTrade++
	t.ID = s.nextTrade
	s.trades = append(s.trades, t)
	return t.ID, nil
}

func (s *Store) HasOpenTrade(ctx context.Context, marketID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trades {
		if t.MarketID == marketID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) OpenPositionsCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, t := range s.trades {
		if m, ok := s.markets[t.MarketID]; ok && !m.Resolved {
			count++
		}
	}
	return count, nil
}

func (s *Store) OpenTrades(ctx context.Context) ([]domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Trade, 0)
	for _, t := range s.trades {
		if m, ok := s.markets[t.MarketID]; ok && !m.Resolved {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) InsertOutcome(ctx context.Context, o domain.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
	return nil
}

func (s *Store) OutcomesSince(ctx context.Context, since time.Time) ([]domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Outcome, 0)
	for _, o := range s.outcomes {
		if !o.ResolvedAt.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Store) UpsertCalibration(ctx context.Context, c domain.CalibrationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibration[calKey(c.Domain, c.Model)] = c
	return nil
}

func (s *Store) GetCalibration(ctx context.Context, d domain.Domain, model string) (*domain.CalibrationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calibration[calKey(d, model)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) CalibrationsForDomain(ctx context.Context, d domain.Domain) ([]domain.CalibrationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CalibrationState, 0)
	for _, c := range s.calibration {
		if c.Domain == d {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) AllCalibrations(ctx context.Context) ([]domain.CalibrationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CalibrationState, 0, len(s.calibration))
	for _, c := range s.calibration {
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) UpsertModelWeight(ctx context.Context, w domain.ModelWeight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights[w.Model] = w
	return nil
}

func (s *Store) AllModelWeights(ctx context.Context) ([]domain.ModelWeight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ModelWeight, 0, len(s.weights))
	for _, w := range s.weights {
		out = append(out, w)
	}
	return out, nil
}

func (s *Store) UpsertPrompt(ctx context.Context, p domain.PromptExperiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[p.PromptVersion] = p
	return nil
}

func (s *Store) ActivePrompts(ctx context.Context, d *domain.Domain) ([]domain.PromptExperiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PromptExperiment, 0)
	for _, p := range s.prompts {
		if !p.Active {
			continue
		}
		if p.Domain == nil {
			out = append(out, p)
			continue
		}
		if d != nil && *p.Domain == *d {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) AllPrompts(ctx context.Context) ([]domain.PromptExperiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PromptExperiment, 0, len(s.prompts))
	for _, p := range s.prompts {
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) GetPortfolio(ctx context.Context) (domain.PortfolioState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portfolio, nil
}

func (s *Store) UpdatePortfolio(ctx context.Context, p domain.PortfolioState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolio = p
	return nil
}

func (s *Store) InsertLLMCost(ctx context.Context, c domain.LLMCost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.llmCosts = append(s.llmCosts, c)
	return nil
}

func (s *Store) Close() error { return nil }

// SeedPortfolio sets the initial cash/total_value, as the real Store's Init
// does on first boot.
func (s *Store) SeedPortfolio(p domain.PortfolioState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolio = p
}

// LLMCosts returns every cost row recorded via InsertLLMCost, for assertions.
func (s *Store) LLMCosts() []domain.LLMCost {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LLMCost, len(s.llmCosts))
	copy(out, s.llmCosts)
	return out
}
