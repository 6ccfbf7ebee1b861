// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-wellness/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// SaveUser inserts or fully rewrites a user profile. The risk fields
// are always written together so score and level cannot drift apart.
func (r *SQLRepository) SaveUser(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO users (
			id, name, email, balance, active,
			risk_score, risk_level, last_evaluated_at,
			bets_today, amount_wagered_today, consecutive_betting_days, last_bet_at,
			receive_alerts, accepts_support, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			balance = excluded.balance,
			active = excluded.active,
			risk_score = excluded.risk_score,
			risk_level = excluded.risk_level,
			last_evaluated_at = excluded.last_evaluated_at,
			bets_today = excluded.bets_today,
			amount_wagered_today = excluded.amount_wagered_today,
			consecutive_betting_days = excluded.consecutive_betting_days,
			last_bet_at = excluded.last_bet_at,
			receive_alerts = excluded.receive_alerts,
			accepts_support = excluded.accepts_support
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		u.ID, u.Name, u.Email, u.Balance, boolToInt(u.Active),
		u.RiskScore, string(u.RiskLevel), u.LastEvaluatedAt,
		u.BetsToday, u.AmountWageredToday, u.ConsecutiveBettingDays, nullTime(u.LastBetAt),
		boolToInt(u.ReceiveAlerts), boolToInt(u.AcceptsSupport), u.CreatedAt,
	)
	return err
}

const userColumns = `id, name, email, balance, active,
	   risk_score, risk_level, last_evaluated_at,
	   bets_today, amount_wagered_today, consecutive_betting_days, last_bet_at,
	   receive_alerts, accepts_support, created_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	var active, alerts, support int
	var level string
	var lastEval, lastBet sql.NullTime

	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Balance, &active,
		&u.RiskScore, &level, &lastEval,
		&u.BetsToday, &u.AmountWageredToday, &u.ConsecutiveBettingDays, &lastBet,
		&alerts, &support, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Active = active == 1
	u.ReceiveAlerts = alerts == 1
	u.AcceptsSupport = support == 1
	u.RiskLevel = domain.RiskLevel(level)
	if lastEval.Valid {
		u.LastEvaluatedAt = lastEval.Time
	}
	u.LastBetAt = timePtr(lastBet)
	return &u, nil
}

// GetUser retrieves a user by ID.
func (r *SQLRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	u, err := scanUser(r.db.QueryRowContext(ctx, r.rebind(query), userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers retrieves all users.
func (r *SQLRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY name`
	return r.queryUsers(ctx, query)
}

// ListUsersAtRisk retrieves active users at medium or high risk.
func (r *SQLRepository) ListUsersAtRisk(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE active = 1 AND risk_level IN ('MEDIUM', 'HIGH')
		ORDER BY risk_score DESC`
	return r.queryUsers(ctx, query)
}

func (r *SQLRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SaveWager inserts or updates a wager.
func (r *SQLRepository) SaveWager(ctx context.Context, w *domain.Wager) error {
	if w.ID == "" || w.UserID == "" {
		return fmt.Errorf("%w: wager id and user id are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO wagers (
			id, user_id, category, stake, multiplier, status, payout, placed_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			payout = excluded.payout,
			resolved_at = excluded.resolved_at
	`

	var payout sql.NullFloat64
	if w.Payout != nil {
		payout = sql.NullFloat64{Float64: *w.Payout, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		w.ID, w.UserID, w.Category, w.Stake, w.Multiplier,
		w.Status, payout, w.PlacedAt, nullTime(w.ResolvedAt),
	)
	return err
}

const wagerColumns = `id, user_id, category, stake, multiplier, status, payout, placed_at, resolved_at`

func scanWager(row interface{ Scan(...any) error }) (*domain.Wager, error) {
	var w domain.Wager
	var payout sql.NullFloat64
	var resolved sql.NullTime

	err := row.Scan(
		&w.ID, &w.UserID, &w.Category, &w.Stake, &w.Multiplier,
		&w.Status, &payout, &w.PlacedAt, &resolved,
	)
	if err != nil {
		return nil, err
	}

	if payout.Valid {
		p := payout.Float64
		w.Payout = &p
	}
	w.ResolvedAt = timePtr(resolved)
	return &w, nil
}

// GetWager retrieves a wager by ID.
func (r *SQLRepository) GetWager(ctx context.Context, wagerID string) (*domain.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE id = ?`

	w, err := scanWager(r.db.QueryRowContext(ctx, r.rebind(query), wagerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// GetWagersByUser retrieves a user's wagers placed since a given time,
// oldest first.
func (r *SQLRepository) GetWagersByUser(ctx context.Context, userID string, since time.Time) ([]*domain.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers
		WHERE user_id = ? AND placed_at >= ?
		ORDER BY placed_at ASC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wagers []*domain.Wager
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, err
		}
		wagers = append(wagers, w)
	}
	return wagers, rows.Err()
}

// SaveLedgerEntry appends a ledger entry. Entries are immutable.
func (r *SQLRepository) SaveLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error {
	if e.ID == "" || e.UserID == "" {
		return fmt.Errorf("%w: ledger entry id and user id are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO ledger_entries (
			id, user_id, operation, amount, description, balance_prior, balance_after, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		e.ID, e.UserID, e.Operation, e.Amount, e.Description,
		e.BalancePrior, e.BalanceAfter, e.OccurredAt,
	)
	return err
}

// GetLedgerByUser retrieves a user's ledger entries since a given time,
// newest first.
func (r *SQLRepository) GetLedgerByUser(ctx context.Context, userID string, since time.Time) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT id, user_id, operation, amount, description, balance_prior, balance_after, occurred_at
		FROM ledger_entries
		WHERE user_id = ? AND occurred_at >= ?
		ORDER BY occurred_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Operation, &e.Amount, &e.Description,
			&e.BalancePrior, &e.BalanceAfter, &e.OccurredAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// SaveBehavior inserts or updates a detected behavior record.
func (r *SQLRepository) SaveBehavior(ctx context.Context, b *domain.DetectedBehavior) error {
	if b.ID == "" || b.UserID == "" {
		return fmt.Errorf("%w: behavior id and user id are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO behaviors (
			id, user_id, kind, description, severity, detected_at, notified, recommended_action, action_taken
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			notified = excluded.notified,
			action_taken = excluded.action_taken
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		b.ID, b.UserID, string(b.Kind), b.Description, b.Severity,
		b.DetectedAt, boolToInt(b.Notified), b.RecommendedAction, boolToInt(b.ActionTaken),
	)
	return err
}

const behaviorColumns = `id, user_id, kind, description, severity, detected_at, notified, recommended_action, action_taken`

func scanBehavior(row interface{ Scan(...any) error }) (*domain.DetectedBehavior, error) {
	var b domain.DetectedBehavior
	var kind string
	var notified, actionTaken int

	err := row.Scan(
		&b.ID, &b.UserID, &kind, &b.Description, &b.Severity,
		&b.DetectedAt, &notified, &b.RecommendedAction, &actionTaken,
	)
	if err != nil {
		return nil, err
	}

	b.Kind = domain.BehaviorKind(kind)
	b.Notified = notified == 1
	b.ActionTaken = actionTaken == 1
	return &b, nil
}

// GetBehavior retrieves a behavior record by ID.
func (r *SQLRepository) GetBehavior(ctx context.Context, behaviorID string) (*domain.DetectedBehavior, error) {
	query := `SELECT ` + behaviorColumns + ` FROM behaviors WHERE id = ?`

	b, err := scanBehavior(r.db.QueryRowContext(ctx, r.rebind(query), behaviorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBehaviorsByUser retrieves a user's behavior records since a given
// time, newest first.
func (r *SQLRepository) GetBehaviorsByUser(ctx context.Context, userID string, since time.Time) ([]*domain.DetectedBehavior, error) {
	query := `SELECT ` + behaviorColumns + ` FROM behaviors
		WHERE user_id = ? AND detected_at >= ?
		ORDER BY detected_at DESC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var behaviors []*domain.DetectedBehavior
	for rows.Next() {
		b, err := scanBehavior(rows)
		if err != nil {
			return nil, err
		}
		behaviors = append(behaviors, b)
	}
	return behaviors, rows.Err()
}

// SaveIntervention inserts or updates an intervention.
func (r *SQLRepository) SaveIntervention(ctx context.Context, iv *domain.Intervention) error {
	if iv.ID == "" || iv.UserID == "" {
		return fmt.Errorf("%w: intervention id and user id are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO interventions (
			id, user_id, kind, title, message, recommended_action, priority,
			created_at, viewed, viewed_at, accepted, accepted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			viewed = excluded.viewed,
			viewed_at = excluded.viewed_at,
			accepted = excluded.accepted,
			accepted_at = excluded.accepted_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		iv.ID, iv.UserID, string(iv.Kind), iv.Title, iv.Message, iv.RecommendedAction, iv.Priority,
		iv.CreatedAt, boolToInt(iv.Viewed), nullTime(iv.ViewedAt), boolToInt(iv.Accepted), nullTime(iv.AcceptedAt),
	)
	return err
}

const interventionColumns = `id, user_id, kind, title, message, recommended_action, priority,
	   created_at, viewed, viewed_at, accepted, accepted_at`

func scanIntervention(row interface{ Scan(...any) error }) (*domain.Intervention, error) {
	var iv domain.Intervention
	var kind string
	var viewed, accepted int
	var viewedAt, acceptedAt sql.NullTime

	err := row.Scan(
		&iv.ID, &iv.UserID, &kind, &iv.Title, &iv.Message, &iv.RecommendedAction, &iv.Priority,
		&iv.CreatedAt, &viewed, &viewedAt, &accepted, &acceptedAt,
	)
	if err != nil {
		return nil, err
	}

	iv.Kind = domain.InterventionKind(kind)
	iv.Viewed = viewed == 1
	iv.Accepted = accepted == 1
	iv.ViewedAt = timePtr(viewedAt)
	iv.AcceptedAt = timePtr(acceptedAt)
	return &iv, nil
}

// GetIntervention retrieves an intervention by ID.
func (r *SQLRepository) GetIntervention(ctx context.Context, interventionID string) (*domain.Intervention, error) {
	query := `SELECT ` + interventionColumns + ` FROM interventions WHERE id = ?`

	iv, err := scanIntervention(r.db.QueryRowContext(ctx, r.rebind(query), interventionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return iv, nil
}

// GetInterventionsByUser retrieves all interventions for a user, newest
// first.
func (r *SQLRepository) GetInterventionsByUser(ctx context.Context, userID string) ([]*domain.Intervention, error) {
	query := `SELECT ` + interventionColumns + ` FROM interventions
		WHERE user_id = ?
		ORDER BY created_at DESC`
	return r.queryInterventions(ctx, query, userID)
}

// GetPendingInterventions retrieves a user's unviewed interventions,
// highest priority first.
func (r *SQLRepository) GetPendingInterventions(ctx context.Context, userID string) ([]*domain.Intervention, error) {
	query := `SELECT ` + interventionColumns + ` FROM interventions
		WHERE user_id = ? AND viewed = 0
		ORDER BY priority DESC, created_at DESC`
	return r.queryInterventions(ctx, query, userID)
}

// GetUrgentInterventions retrieves unviewed priority 4 and 5 interventions
// across all users, for the operator attention queue.
func (r *SQLRepository) GetUrgentInterventions(ctx context.Context) ([]*domain.Intervention, error) {
	query := `SELECT ` + interventionColumns + ` FROM interventions
		WHERE priority >= 4 AND viewed = 0
		ORDER BY priority DESC, created_at DESC`
	return r.queryInterventions(ctx, query)
}

func (r *SQLRepository) queryInterventions(ctx context.Context, query string, args ...any) ([]*domain.Intervention, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interventions []*domain.Intervention
	for rows.Next() {
		iv, err := scanIntervention(rows)
		if err != nil {
			return nil, err
		}
		interventions = append(interventions, iv)
	}
	return interventions, rows.Err()
}

// SaveReport stores an immutable report.
func (r *SQLRepository) SaveReport(ctx context.Context, rep *domain.Report) error {
	if rep.ID == "" || rep.UserID == "" {
		return fmt.Errorf("%w: report id and user id are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO reports (
			id, user_id, window_start, window_end,
			total_wagers, total_staked, total_won, total_lost,
			days_active, longest_streak, nocturnal_wagers,
			max_stake, min_stake, mean_stake,
			risk_score_start, risk_score_end, risk_level_start, risk_level_end,
			interventions_created, interventions_accepted,
			narrative, recommendations, generated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rep.ID, rep.UserID, rep.Start, rep.End,
		rep.TotalWagers, rep.TotalStaked, rep.TotalWon, rep.TotalLost,
		rep.DaysActive, rep.LongestStreak, rep.NocturnalWagers,
		rep.MaxStake, rep.MinStake, rep.MeanStake,
		rep.RiskScoreStart, rep.RiskScoreEnd, string(rep.RiskLevelStart), string(rep.RiskLevelEnd),
		rep.InterventionsCreated, rep.InterventionsAccepted,
		rep.Narrative, rep.Recommendations, rep.GeneratedAt,
	)
	return err
}

const reportColumns = `id, user_id, window_start, window_end,
	   total_wagers, total_staked, total_won, total_lost,
	   days_active, longest_streak, nocturnal_wagers,
	   max_stake, min_stake, mean_stake,
	   risk_score_start, risk_score_end, risk_level_start, risk_level_end,
	   interventions_created, interventions_accepted,
	   narrative, recommendations, generated_at`

func scanReport(row interface{ Scan(...any) error }) (*domain.Report, error) {
	var rep domain.Report
	var levelStart, levelEnd string

	err := row.Scan(
		&rep.ID, &rep.UserID, &rep.Start, &rep.End,
		&rep.TotalWagers, &rep.TotalStaked, &rep.TotalWon, &rep.TotalLost,
		&rep.DaysActive, &rep.LongestStreak, &rep.NocturnalWagers,
		&rep.MaxStake, &rep.MinStake, &rep.MeanStake,
		&rep.RiskScoreStart, &rep.RiskScoreEnd, &levelStart, &levelEnd,
		&rep.InterventionsCreated, &rep.InterventionsAccepted,
		&rep.Narrative, &rep.Recommendations, &rep.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}

	rep.RiskLevelStart = domain.RiskLevel(levelStart)
	rep.RiskLevelEnd = domain.RiskLevel(levelEnd)
	return &rep, nil
}

// GetReport retrieves a report by ID.
func (r *SQLRepository) GetReport(ctx context.Context, reportID string) (*domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = ?`

	rep, err := scanReport(r.db.QueryRowContext(ctx, r.rebind(query), reportID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// GetReportsByUser retrieves all reports for a user, newest first.
func (r *SQLRepository) GetReportsByUser(ctx context.Context, userID string) ([]*domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports
		WHERE user_id = ?
		ORDER BY generated_at DESC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// SaveScreenRule inserts or updates a screen rule.
func (r *SQLRepository) SaveScreenRule(ctx context.Context, rule *domain.ScreenRule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO screen_rules (
			id, name, description, expression, kind, severity, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			kind = excluded.kind,
			severity = excluded.severity,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description, rule.Expression,
		string(rule.Kind), rule.Severity, boolToInt(rule.Enabled),
		now, now,
	)
	return err
}

// GetScreenRule retrieves an enabled screen rule by ID.
func (r *SQLRepository) GetScreenRule(ctx context.Context, ruleID string) (*domain.ScreenRule, error) {
	query := `
		SELECT id, name, description, expression, kind, severity, enabled
		FROM screen_rules
		WHERE id = ? AND enabled = 1
	`

	var rule domain.ScreenRule
	var kind string
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), ruleID).Scan(
		&rule.ID, &rule.Name, &rule.Description, &rule.Expression,
		&kind, &rule.Severity, &enabled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.Kind = domain.BehaviorKind(kind)
	rule.Enabled = enabled == 1
	return &rule, nil
}

// ListScreenRules retrieves all enabled screen rules.
func (r *SQLRepository) ListScreenRules(ctx context.Context) ([]*domain.ScreenRule, error) {
	query := `
		SELECT id, name, description, expression, kind, severity, enabled
		FROM screen_rules
		WHERE enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.ScreenRule
	for rows.Next() {
		var rule domain.ScreenRule
		var kind string
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Description, &rule.Expression,
			&kind, &rule.Severity, &enabled,
		); err != nil {
			return nil, err
		}

		rule.Kind = domain.BehaviorKind(kind)
		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}

// DeleteScreenRule soft-deletes a screen rule by setting enabled = 0.
func (r *SQLRepository) DeleteScreenRule(ctx context.Context, ruleID string) error {
	query := `
		UPDATE screen_rules
		SET enabled = 0, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
