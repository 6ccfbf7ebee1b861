package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    balance REAL NOT NULL DEFAULT 0,
    active INTEGER NOT NULL DEFAULT 1,
    risk_score INTEGER NOT NULL DEFAULT 0,
    risk_level TEXT NOT NULL DEFAULT 'LOW',
    last_evaluated_at TIMESTAMP,
    bets_today INTEGER NOT NULL DEFAULT 0,
    amount_wagered_today REAL NOT NULL DEFAULT 0,
    consecutive_betting_days INTEGER NOT NULL DEFAULT 0,
    last_bet_at TIMESTAMP,
    receive_alerts INTEGER NOT NULL DEFAULT 1,
    accepts_support INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_risk_level ON users(risk_level);
CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);
`

const schemaWagers = `
CREATE TABLE IF NOT EXISTS wagers (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    category TEXT NOT NULL,
    stake REAL NOT NULL,
    multiplier REAL NOT NULL,
    status TEXT NOT NULL,
    payout REAL,
    placed_at TIMESTAMP NOT NULL,
    resolved_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_wagers_user ON wagers(user_id);
CREATE INDEX IF NOT EXISTS idx_wagers_user_placed ON wagers(user_id, placed_at);
CREATE INDEX IF NOT EXISTS idx_wagers_status ON wagers(status);
`

const schemaLedgerEntries = `
CREATE TABLE IF NOT EXISTS ledger_entries (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    operation TEXT NOT NULL,
    amount REAL NOT NULL,
    description TEXT,
    balance_prior REAL NOT NULL,
    balance_after REAL NOT NULL,
    occurred_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger_entries(user_id);
CREATE INDEX IF NOT EXISTS idx_ledger_user_occurred ON ledger_entries(user_id, occurred_at);
`

const schemaBehaviors = `
CREATE TABLE IF NOT EXISTS behaviors (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    description TEXT NOT NULL,
    severity INTEGER NOT NULL,
    detected_at TIMESTAMP NOT NULL,
    notified INTEGER NOT NULL DEFAULT 0,
    recommended_action TEXT,
    action_taken INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_behaviors_user ON behaviors(user_id);
CREATE INDEX IF NOT EXISTS idx_behaviors_user_detected ON behaviors(user_id, detected_at);
CREATE INDEX IF NOT EXISTS idx_behaviors_kind ON behaviors(kind);
`

const schemaInterventions = `
CREATE TABLE IF NOT EXISTS interventions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    recommended_action TEXT,
    priority INTEGER NOT NULL DEFAULT 3,
    created_at TIMESTAMP NOT NULL,
    viewed INTEGER NOT NULL DEFAULT 0,
    viewed_at TIMESTAMP,
    accepted INTEGER NOT NULL DEFAULT 0,
    accepted_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_interventions_user ON interventions(user_id);
CREATE INDEX IF NOT EXISTS idx_interventions_user_viewed ON interventions(user_id, viewed);
CREATE INDEX IF NOT EXISTS idx_interventions_priority ON interventions(priority);
`

const schemaReports = `
CREATE TABLE IF NOT EXISTS reports (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    window_start TIMESTAMP NOT NULL,
    window_end TIMESTAMP NOT NULL,
    total_wagers INTEGER NOT NULL,
    total_staked REAL NOT NULL,
    total_won REAL NOT NULL,
    total_lost REAL NOT NULL,
    days_active INTEGER NOT NULL,
    longest_streak INTEGER NOT NULL,
    nocturnal_wagers INTEGER NOT NULL,
    max_stake REAL NOT NULL,
    min_stake REAL NOT NULL,
    mean_stake REAL NOT NULL,
    risk_score_start INTEGER NOT NULL,
    risk_score_end INTEGER NOT NULL,
    risk_level_start TEXT NOT NULL,
    risk_level_end TEXT NOT NULL,
    interventions_created INTEGER NOT NULL,
    interventions_accepted INTEGER NOT NULL,
    narrative TEXT NOT NULL,
    recommendations TEXT NOT NULL,
    generated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_user ON reports(user_id);
CREATE INDEX IF NOT EXISTS idx_reports_user_generated ON reports(user_id, generated_at);
`

const schemaScreenRules = `
CREATE TABLE IF NOT EXISTS screen_rules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    kind TEXT NOT NULL,
    severity INTEGER NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_screen_rules_enabled ON screen_rules(enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaUsers,
		schemaWagers,
		schemaLedgerEntries,
		schemaBehaviors,
		schemaInterventions,
		schemaReports,
		schemaScreenRules,
	}
}
