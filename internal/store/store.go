// Package store is the SQLite-backed implementation of ports.Store, the
// single durable-state boundary every other component reads and writes
// through.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
)

// Store is a single-writer SQLite handle. SQLite serialises writers at the
// engine level; SetMaxOpenConns(1) avoids SQLITE_BUSY from the database/sql
// pool instead of retrying on lock contention.
type Store struct {
	db              *sql.DB
	virtualBankroll decimal.Decimal
}

// New opens (or creates) the SQLite database at dsn. Call Init before any
// other method.
func New(dsn string, virtualBankroll decimal.Decimal) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store.New: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db, virtualBankroll: virtualBankroll}, nil
}

// Init applies the schema idempotently and seeds the singleton portfolio
// row if absent. It is the only operation whose failure is fatal to
// startup.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("store.Init: enable WAL: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("store.Init: enable foreign_keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store.Init: apply schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO portfolio_state (id, cash, total_value) VALUES (1, ?, ?)`,
		s.virtualBankroll, s.virtualBankroll,
	); err != nil {
		return fmt.Errorf("store.Init: seed portfolio: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Markets ---------------------------------------------------------

func (s *Store) UpsertMarket(ctx context.Context, m domain.Market) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO markets
			(id, exchange, venue_id, question, domain, market_price, volume_usd,
			 close_time, resolved, outcome, dedup_group, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			market_price = excluded.market_price,
			volume_usd   = excluded.volume_usd,
			close_time   = excluded.close_time,
			resolved     = excluded.resolved,
			outcome      = excluded.outcome,
			domain       = CASE WHEN excluded.domain = '' THEN domain ELSE excluded.domain END,
			dedup_group  = COALESCE(excluded.dedup_group, dedup_group),
			updated_at   = CURRENT_TIMESTAMP
	`,
		m.ID, m.Exchange, m.VenueID, m.Question, string(m.Domain), m.Price, m.VolumeUSD,
		m.CloseTime, boolToInt(m.Resolved), m.Outcome, m.DedupGroup,
	)
	if err != nil {
		return fmt.Errorf("store.UpsertMarket: %s: %w", m.ID, err)
	}
	return nil
}

func (s *Store) GetMarket(ctx context.Context, id string) (*domain.Market, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, exchange, venue_id, question, domain, market_price, volume_usd,
		       close_time, resolved, outcome, dedup_group, updated_at
		FROM markets WHERE id = ?`, id)
	m, err := scanMarket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store.GetMarket: %s: %w", id, err)
	}
	return m, nil
}

func (s *Store) ActiveMarkets(ctx context.Context) ([]domain.Market, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, exchange, venue_id, question, domain, market_price, volume_usd,
		       close_time, resolved, outcome, dedup_group, updated_at
		FROM markets WHERE resolved = 0`)
	if err != nil {
		return nil, fmt.Errorf("store.ActiveMarkets: query: %w", err)
	}
	defer rows.Close()
	return scanMarkets(rows)
}

func (s *Store) MarketsNeedingForecast(ctx context.Context, since time.Time) ([]domain.Market, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.exchange, m.venue_id, m.question, m.domain, m.market_price, m.volume_usd,
		       m.close_time, m.resolved, m.outcome, m.dedup_group, m.updated_at
		FROM markets m
		WHERE m.resolved = 0
		  AND NOT EXISTS (
		    SELECT 1 FROM forecasts f
		    WHERE f.market_id = m.id AND f.created_at > ?
		  )`, since)
	if err != nil {
		return nil, fmt.Errorf("store.MarketsNeedingForecast: query: %w", err)
	}
	defer rows.Close()
	return scanMarkets(rows)
}

func scanMarkets(rows *sql.Rows) ([]domain.Market, error) {
	out := make([]domain.Market, 0)
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarket(row rowScanner) (*domain.Market, error) {
	var m domain.Market
	var domainStr string
	var resolved int
	var closeTime, updatedAt sql.NullTime

	if err := row.Scan(
		&m.ID, &m.Exchange, &m.VenueID, &m.Question, &domainStr, &m.Price, &m.VolumeUSD,
		&closeTime, &resolved, &m.Outcome, &m.DedupGroup, &updatedAt,
	); err != nil {
		return nil, err
	}
	m.Domain = domain.Domain(domainStr)
	m.Resolved = resolved != 0
	m.CloseTime = closeTime.Time
	m.UpdatedAt = updatedAt.Time
	return &m, nil
}

// --- Forecasts ---------------------------------------------------------

func (s *Store) InsertForecast(ctx context.Context, f domain.Forecast) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO forecasts
			(market_id, model, prompt_version, raw_probability, entropy,
			 ensemble_probability, confidence_tier, reasoning_excerpt, news_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.MarketID, f.Model, f.PromptVersion, f.RawProbability, f.Entropy,
		f.EnsembleProbability, string(f.ConfidenceTier), f.ReasoningExcerpt, boolToInt(f.NewsUsed),
	)
	if err != nil {
		return 0, fmt.Errorf("store.InsertForecast: %s/%s: %w", f.MarketID, f.Model, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store.InsertForecast: last insert id: %w", err)
	}
	return id, nil
}

func (s *Store) ForecastsForMarket(ctx context.Context, marketID string) ([]domain.Forecast, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_id, model, prompt_version, raw_probability, entropy,
		       ensemble_probability, confidence_tier, reasoning_excerpt, news_used, created_at
		FROM forecasts WHERE market_id = ? ORDER BY created_at`, marketID)
	if err != nil {
		return nil, fmt.Errorf("store.ForecastsForMarket: %s: %w", marketID, err)
	}
	defer rows.Close()

	out := make([]domain.Forecast, 0)
	for rows.Next() {
		var f domain.Forecast
		var tier string
		var newsUsed int
		if err := rows.Scan(
			&f.ID, &f.MarketID, &f.Model, &f.PromptVersion, &f.RawProbability, &f.Entropy,
			&f.EnsembleProbability, &tier, &f.ReasoningExcerpt, &newsUsed, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store.ForecastsForMarket: scan: %w", err)
		}
		f.ConfidenceTier = domain.ConfidenceTier(tier)
		f.NewsUsed = newsUsed != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

// --- Trades --------------------------------------------------------------

func (s *Store) InsertTrade(ctx context.Context, t domain.Trade) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(market_id, forecast_id, exchange, side, size_units, price,
			 kelly_fraction, edge, is_paper)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.MarketID, t.ForecastID, t.Exchange, string(t.Side), t.SizeUnits, t.Price,
		t.KellyFraction, t.Edge, boolToInt(t.IsPaper),
	)
	if err != nil {
		return 0, fmt.Errorf("store.InsertTrade: %s: %w", t.MarketID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store.InsertTrade: last insert id: %w", err)
	}
	return id, nil
}

func (s *Store) HasOpenTrade(ctx context.Context, marketID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM trades WHERE market_id = ? LIMIT 1`, marketID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store.HasOpenTrade: %s: %w", marketID, err)
	}
	return true, nil
}

func (s *Store) OpenPositionsCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT t.market_id) FROM trades t
		JOIN markets m ON t.market_id = m.id
		WHERE m.resolved = 0`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store.OpenPositionsCount: %w", err)
	}
	return count, nil
}

func (s *Store) OpenTrades(ctx context.Context) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.market_id, t.forecast_id, t.exchange, t.side, t.size_units, t.price,
		       t.kelly_fraction, t.edge, t.is_paper, t.created_at
		FROM trades t
		JOIN markets m ON t.market_id = m.id
		WHERE m.resolved = 0`)
	if err != nil {
		return nil, fmt.Errorf("store.OpenTrades: query: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Trade, 0)
	for rows.Next() {
		var t domain.Trade
		var side string
		var isPaper int
		if err := rows.Scan(
			&t.ID, &t.MarketID, &t.ForecastID, &t.Exchange, &side, &t.SizeUnits, &t.Price,
			&t.KellyFraction, &t.Edge, &isPaper, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store.OpenTrades: scan: %w", err)
		}
		t.Side = domain.Side(side)
		t.IsPaper = isPaper != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Outcomes --------------------------------------------------------------

func (s *Store) InsertOutcome(ctx context.Context, o domain.Outcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes
			(market_id, forecast_id, domain, model, prompt_version,
			 predicted_prob, actual_outcome, brier, entropy, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.MarketID, o.ForecastID, string(o.Domain), o.Model, o.PromptVersion,
		o.PredictedProb, o.ActualOutcome, o.Brier, o.Entropy, o.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("store.InsertOutcome: %s: %w", o.MarketID, err)
	}
	return nil
}

func (s *Store) OutcomesSince(ctx context.Context, since time.Time) ([]domain.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_id, forecast_id, domain, model, prompt_version,
		       predicted_prob, actual_outcome, brier, entropy, resolved_at
		FROM outcomes WHERE resolved_at > ?`, since)
	if err != nil {
		return nil, fmt.Errorf("store.OutcomesSince: query: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Outcome, 0)
	for rows.Next() {
		var o domain.Outcome
		var dom string
		if err := rows.Scan(
			&o.ID, &o.MarketID, &o.ForecastID, &dom, &o.Model, &o.PromptVersion,
			&o.PredictedProb, &o.ActualOutcome, &o.Brier, &o.Entropy, &o.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("store.OutcomesSince: scan: %w", err)
		}
		o.Domain = domain.Domain(dom)
		out = append(out, o)
	}
	return out, rows.Err()
}

// --- Calibration -----------------------------------------------------------

func (s *Store) UpsertCalibration(ctx context.Context, c domain.CalibrationState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calibration_state
			(domain, model, brier_score, n_resolved, domain_weight, entropy_threshold, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(domain, model) DO UPDATE SET
			brier_score       = excluded.brier_score,
			n_resolved        = excluded.n_resolved,
			domain_weight     = excluded.domain_weight,
			entropy_threshold = COALESCE(excluded.entropy_threshold, entropy_threshold),
			updated_at        = CURRENT_TIMESTAMP`,
		string(c.Domain), c.Model, c.BrierScore, c.NResolved, c.DomainWeight, c.EntropyThreshold,
	)
	if err != nil {
		return fmt.Errorf("store.UpsertCalibration: %s/%s: %w", c.Domain, c.Model, err)
	}
	return nil
}

func (s *Store) GetCalibration(ctx context.Context, dom domain.Domain, model string) (*domain.CalibrationState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT domain, model, brier_score, n_resolved, domain_weight, entropy_threshold, updated_at
		FROM calibration_state WHERE domain = ? AND model = ?`, string(dom), model)
	c, err := scanCalibration(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store.GetCalibration: %s/%s: %w", dom, model, err)
	}
	return c, nil
}

func (s *Store) CalibrationsForDomain(ctx context.Context, dom domain.Domain) ([]domain.CalibrationState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, model, brier_score, n_resolved, domain_weight, entropy_threshold, updated_at
		FROM calibration_state WHERE domain = ?`, string(dom))
	if err != nil {
		return nil, fmt.Errorf("store.CalibrationsForDomain: %s: %w", dom, err)
	}
	defer rows.Close()
	return scanCalibrations(rows)
}

func (s *Store) AllCalibrations(ctx context.Context) ([]domain.CalibrationState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, model, brier_score, n_resolved, domain_weight, entropy_threshold, updated_at
		FROM calibration_state`)
	if err != nil {
		return nil, fmt.Errorf("store.AllCalibrations: query: %w", err)
	}
	defer rows.Close()
	return scanCalibrations(rows)
}

func scanCalibrations(rows *sql.Rows) ([]domain.CalibrationState, error) {
	out := make([]domain.CalibrationState, 0)
	for rows.Next() {
		c, err := scanCalibration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanCalibration(row rowScanner) (*domain.CalibrationState, error) {
	var c domain.CalibrationState
	var dom string
	if err := row.Scan(&dom, &c.Model, &c.BrierScore, &c.NResolved, &c.DomainWeight, &c.EntropyThreshold, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Domain = domain.Domain(dom)
	return &c, nil
}

// --- Model weights -----------------------------------------------------

func (s *Store) UpsertModelWeight(ctx context.Context, w domain.ModelWeight) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO model_weights (model, weight, rolling_brier, n_resolved, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(model) DO UPDATE SET
			weight        = excluded.weight,
			rolling_brier = excluded.rolling_brier,
			n_resolved    = excluded.n_resolved,
			updated_at    = CURRENT_TIMESTAMP`,
		w.Model, w.Weight, w.RollingBrier, w.NResolved,
	)
	if err != nil {
		return fmt.Errorf("store.UpsertModelWeight: %s: %w", w.Model, err)
	}
	return nil
}

func (s *Store) AllModelWeights(ctx context.Context) ([]domain.ModelWeight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, weight, rolling_brier, n_resolved, updated_at FROM model_weights`)
	if err != nil {
		return nil, fmt.Errorf("store.AllModelWeights: query: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ModelWeight, 0)
	for rows.Next() {
		var w domain.ModelWeight
		if err := rows.Scan(&w.Model, &w.Weight, &w.RollingBrier, &w.NResolved, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store.AllModelWeights: scan: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// --- Prompt experiments ------------------------------------------------

func (s *Store) UpsertPrompt(ctx context.Context, p domain.PromptExperiment) error {
	var dom *string
	if p.Domain != nil {
		d := string(*p.Domain)
		dom = &d
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prompt_experiments
			(prompt_version, domain, prompt_template, n_trials, n_wins, mean_brier, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(prompt_version) DO UPDATE SET
			n_trials   = excluded.n_trials,
			n_wins     = excluded.n_wins,
			mean_brier = excluded.mean_brier,
			active     = excluded.active`,
		p.PromptVersion, dom, p.PromptTemplate, p.NTrials, p.NWins, p.MeanBrier, boolToInt(p.Active),
	)
	if err != nil {
		return fmt.Errorf("store.UpsertPrompt: %s: %w", p.PromptVersion, err)
	}
	return nil
}

func (s *Store) ActivePrompts(ctx context.Context, dom *domain.Domain) ([]domain.PromptExperiment, error) {
	var rows *sql.Rows
	var err error
	if dom != nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT prompt_version, domain, prompt_template, n_trials, n_wins, mean_brier, active
			FROM prompt_experiments WHERE active = 1 AND (domain = ? OR domain IS NULL)`, string(*dom))
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT prompt_version, domain, prompt_template, n_trials, n_wins, mean_brier, active
			FROM prompt_experiments WHERE active = 1`)
	}
	if err != nil {
		return nil, fmt.Errorf("store.ActivePrompts: query: %w", err)
	}
	defer rows.Close()
	return scanPrompts(rows)
}

func (s *Store) AllPrompts(ctx context.Context) ([]domain.PromptExperiment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT prompt_version, domain, prompt_template, n_trials, n_wins, mean_brier, active
		FROM prompt_experiments`)
	if err != nil {
		return nil, fmt.Errorf("store.AllPrompts: query: %w", err)
	}
	defer rows.Close()
	return scanPrompts(rows)
}

func scanPrompts(rows *sql.Rows) ([]domain.PromptExperiment, error) {
	out := make([]domain.PromptExperiment, 0)
	for rows.Next() {
		var p domain.PromptExperiment
		var dom sql.NullString
		var active int
		if err := rows.Scan(&p.PromptVersion, &dom, &p.PromptTemplate, &p.NTrials, &p.NWins, &p.MeanBrier, &active); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if dom.Valid {
			d := domain.Domain(dom.String)
			p.Domain = &d
		}
		p.Active = active != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Portfolio -----------------------------------------------------------

func (s *Store) GetPortfolio(ctx context.Context) (domain.PortfolioState, error) {
	var p domain.PortfolioState
	err := s.db.QueryRowContext(ctx,
		`SELECT cash, total_value, updated_at FROM portfolio_state WHERE id = 1`,
	).Scan(&p.Cash, &p.TotalValue, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.PortfolioState{Cash: s.virtualBankroll, TotalValue: s.virtualBankroll}, nil
	}
	if err != nil {
		return domain.PortfolioState{}, fmt.Errorf("store.GetPortfolio: %w", err)
	}
	return p, nil
}

func (s *Store) UpdatePortfolio(ctx context.Context, p domain.PortfolioState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_state (id, cash, total_value, updated_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			cash        = excluded.cash,
			total_value = excluded.total_value,
			updated_at  = CURRENT_TIMESTAMP`,
		p.Cash, p.TotalValue,
	)
	if err != nil {
		return fmt.Errorf("store.UpdatePortfolio: %w", err)
	}
	return nil
}

// --- LLM cost --------------------------------------------------------------

func (s *Store) InsertLLMCost(ctx context.Context, c domain.LLMCost) error {
	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO llm_costs (id, model, input_tokens, output_tokens, cost_usd, call_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		id, c.Model, c.InputTokens, c.OutputTokens, c.CostUSD, string(c.CallType),
	)
	if err != nil {
		return fmt.Errorf("store.InsertLLMCost: %s: %w", c.Model, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
