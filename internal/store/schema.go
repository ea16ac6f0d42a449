package store

const schema = `
CREATE TABLE IF NOT EXISTS markets (
    id          TEXT PRIMARY KEY,
    exchange    TEXT NOT NULL,
    venue_id    TEXT NOT NULL,
    question    TEXT NOT NULL,
    domain      TEXT NOT NULL DEFAULT '',
    market_price   TEXT NOT NULL DEFAULT '0',
    volume_usd     TEXT NOT NULL DEFAULT '0',
    close_time  DATETIME,
    resolved    INTEGER NOT NULL DEFAULT 0,
    outcome     INTEGER,
    dedup_group TEXT,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_markets_resolved ON markets(resolved);
CREATE INDEX IF NOT EXISTS idx_markets_dedup     ON markets(dedup_group);

CREATE TABLE IF NOT EXISTS forecasts (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    market_id            TEXT NOT NULL REFERENCES markets(id),
    model                TEXT NOT NULL,
    prompt_version       TEXT NOT NULL,
    raw_probability      TEXT NOT NULL,
    entropy              REAL NOT NULL,
    ensemble_probability TEXT NOT NULL,
    confidence_tier      TEXT NOT NULL,
    reasoning_excerpt    TEXT NOT NULL DEFAULT '',
    news_used            INTEGER NOT NULL DEFAULT 0,
    created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_forecasts_market  ON forecasts(market_id);
CREATE INDEX IF NOT EXISTS idx_forecasts_created ON forecasts(created_at);

CREATE TABLE IF NOT EXISTS trades (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    market_id      TEXT NOT NULL REFERENCES markets(id),
    forecast_id    INTEGER NOT NULL REFERENCES forecasts(id),
    exchange       TEXT NOT NULL,
    side           TEXT NOT NULL,
    size_units     TEXT NOT NULL,
    price          TEXT NOT NULL,
    kelly_fraction TEXT NOT NULL,
    edge           TEXT NOT NULL,
    is_paper       INTEGER NOT NULL DEFAULT 1,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_trades_market ON trades(market_id);

CREATE TABLE IF NOT EXISTS outcomes (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    market_id      TEXT NOT NULL REFERENCES markets(id),
    forecast_id    INTEGER NOT NULL REFERENCES forecasts(id),
    domain         TEXT NOT NULL,
    model          TEXT NOT NULL,
    prompt_version TEXT NOT NULL,
    predicted_prob TEXT NOT NULL,
    actual_outcome INTEGER NOT NULL,
    brier          TEXT NOT NULL,
    entropy        REAL NOT NULL,
    resolved_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_resolved ON outcomes(resolved_at);

CREATE TABLE IF NOT EXISTS calibration_state (
    domain            TEXT NOT NULL,
    model             TEXT NOT NULL,
    brier_score       REAL NOT NULL DEFAULT 0,
    n_resolved        INTEGER NOT NULL DEFAULT 0,
    domain_weight     REAL NOT NULL DEFAULT 1.0,
    entropy_threshold REAL,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (domain, model)
);

CREATE TABLE IF NOT EXISTS model_weights (
    model         TEXT PRIMARY KEY,
    weight        REAL NOT NULL DEFAULT 0,
    rolling_brier REAL,
    n_resolved    INTEGER NOT NULL DEFAULT 0,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS prompt_experiments (
    prompt_version  TEXT PRIMARY KEY,
    domain          TEXT,
    prompt_template TEXT NOT NULL,
    n_trials        INTEGER NOT NULL DEFAULT 0,
    n_wins          INTEGER NOT NULL DEFAULT 0,
    mean_brier      REAL,
    active          INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS portfolio_state (
    id          INTEGER PRIMARY KEY CHECK (id = 1),
    cash        TEXT NOT NULL,
    total_value TEXT NOT NULL,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS llm_costs (
    id            TEXT PRIMARY KEY,
    model         TEXT NOT NULL,
    input_tokens  INTEGER NOT NULL,
    output_tokens INTEGER NOT NULL,
    cost_usd      TEXT NOT NULL,
    call_type     TEXT NOT NULL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_llm_costs_model ON llm_costs(model);
`
