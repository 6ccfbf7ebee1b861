package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU first, then Redis.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetProfile retrieves a cached risk profile snapshot.
	GetProfile(ctx context.Context, userID string) (*ProfileCache, error)

	// SetProfile caches a risk profile snapshot for pipeline processing.
	SetProfile(ctx context.Context, userID string, data *ProfileCache, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns new value.
	// Used for rolling activity checks (e.g., wagers placed in a time window).
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// ProfileCache holds a cached risk profile snapshot passed through the
// assessment pipeline.
type ProfileCache struct {
	UserID                 string  `json:"userId"`
	Balance                float64 `json:"balance"`
	BetsToday              int     `json:"betsToday"`
	AmountWageredToday     float64 `json:"amountWageredToday"`
	ConsecutiveBettingDays int     `json:"consecutiveDays"`
	RiskScore              int     `json:"riskScore"`
	LastBetAt              string  `json:"lastBetAt,omitempty"`
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `toml:"type"`

	// Local LRU cache settings
	LocalMaxSize int           `toml:"local_max_size"`
	LocalTTL     int           `toml:"local_ttl"` // seconds

	// Redis settings
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	// Two-phase settings
	EnableTwoPhase bool `toml:"enable_two_phase"` // If true, check local first, then Redis
}
