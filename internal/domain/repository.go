// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// User operations
	SaveUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, userID string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	ListUsersAtRisk(ctx context.Context) ([]*User, error)

	// Wager operations
	SaveWager(ctx context.Context, w *Wager) error
	GetWager(ctx context.Context, wagerID string) (*Wager, error)
	GetWagersByUser(ctx context.Context, userID string, since time.Time) ([]*Wager, error)

	// Ledger operations
	SaveLedgerEntry(ctx context.Context, e *LedgerEntry) error
	GetLedgerByUser(ctx context.Context, userID string, since time.Time) ([]*LedgerEntry, error)

	// Detected behavior operations
	SaveBehavior(ctx context.Context, b *DetectedBehavior) error
	GetBehavior(ctx context.Context, behaviorID string) (*DetectedBehavior, error)
	GetBehaviorsByUser(ctx context.Context, userID string, since time.Time) ([]*DetectedBehavior, error)

	// Intervention operations
	SaveIntervention(ctx context.Context, iv *Intervention) error
	GetIntervention(ctx context.Context, interventionID string) (*Intervention, error)
	GetInterventionsByUser(ctx context.Context, userID string) ([]*Intervention, error)
	GetPendingInterventions(ctx context.Context, userID string) ([]*Intervention, error)
	GetUrgentInterventions(ctx context.Context) ([]*Intervention, error)

	// Report operations
	SaveReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, reportID string) (*Report, error)
	GetReportsByUser(ctx context.Context, userID string) ([]*Report, error)

	// Screen rule operations
	SaveScreenRule(ctx context.Context, rule *ScreenRule) error
	GetScreenRule(ctx context.Context, ruleID string) (*ScreenRule, error)
	ListScreenRules(ctx context.Context) ([]*ScreenRule, error)
	DeleteScreenRule(ctx context.Context, ruleID string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `toml:"driver"`

	// SQLite specific
	SQLitePath string `toml:"sqlite_path"`

	// PostgreSQL specific
	PostgresHost     string `toml:"postgres_host"`
	PostgresPort     int    `toml:"postgres_port"`
	PostgresUser     string `toml:"postgres_user"`
	PostgresPassword string `toml:"postgres_password"`
	PostgresDB       string `toml:"postgres_db"`
	PostgresSSLMode  string `toml:"postgres_sslmode"`

	// Connection pool settings
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}
