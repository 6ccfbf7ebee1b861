// Package rolling derives the rolling activity counters of a user's
// risk profile from the wager history. The counters feed the scoring
// engine; they are recomputed from the ledger, never patched.
package rolling

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-wellness/kestrel/internal/domain"
)

// historyHorizon bounds how far back the streak derivation looks.
const historyHorizon = 90 * 24 * time.Hour

// Service computes rolling counters for user profiles.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a rolling counter service. The cache is optional;
// without it every call hits the repository.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// Counters are the derived rolling values for one user at an instant.
type Counters struct {
	BetsToday              int
	AmountWageredToday     float64
	ConsecutiveBettingDays int
	LastBetAt              *time.Time
}

// Derive computes the counters from the wager history as of now.
func (s *Service) Derive(ctx context.Context, userID string, now time.Time) (Counters, error) {
	since := now.Add(-historyHorizon)
	wagers, err := s.repo.GetWagersByUser(ctx, userID, since)
	if err != nil {
		return Counters{}, fmt.Errorf("load wagers: %w", err)
	}
	return FromWagers(wagers, now), nil
}

// Refresh recomputes the counters and writes them onto the profile.
// The profile is not persisted here; callers save it together with the
// recomputed risk fields.
func (s *Service) Refresh(ctx context.Context, u *domain.User, now time.Time) error {
	c, err := s.Derive(ctx, u.ID, now)
	if err != nil {
		return err
	}
	u.BetsToday = c.BetsToday
	u.AmountWageredToday = c.AmountWageredToday
	u.ConsecutiveBettingDays = c.ConsecutiveBettingDays
	u.LastBetAt = c.LastBetAt
	return nil
}

// FromWagers derives the counters from a wager list. Pure; exposed so
// tests and the report generator can reuse the derivation.
func FromWagers(wagers []*domain.Wager, now time.Time) Counters {
	var c Counters
	nowY, nowM, nowD := now.Date()

	var last time.Time
	times := make([]time.Time, 0, len(wagers))
	for _, w := range wagers {
		times = append(times, w.PlacedAt)
		y, m, d := w.PlacedAt.Date()
		if y == nowY && m == nowM && d == nowD {
			c.BetsToday++
			c.AmountWageredToday += w.Stake
		}
		if w.PlacedAt.After(last) {
			last = w.PlacedAt
		}
	}
	if !last.IsZero() {
		c.LastBetAt = &last
	}
	c.ConsecutiveBettingDays = trailingStreak(times, now)
	return c
}

// trailingStreak counts consecutive wagering days ending today or
// yesterday. A streak broken more than a day ago is 0; the day in
// progress does not break its own streak.
func trailingStreak(times []time.Time, now time.Time) int {
	if len(times) == 0 {
		return 0
	}
	seen := make(map[int64]struct{}, len(times))
	for _, t := range times {
		seen[epochDay(t)] = struct{}{}
	}

	today := epochDay(now)
	start := today
	if _, ok := seen[start]; !ok {
		start = today - 1
		if _, ok := seen[start]; !ok {
			return 0
		}
	}

	streak := 0
	for d := start; ; d-- {
		if _, ok := seen[d]; !ok {
			break
		}
		streak++
	}
	return streak
}

func epochDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// CountInWindow returns how many wagers a user placed within the
// trailing window, using the cache's atomic counters when available.
// It backs rate checks that must stay cheap on the hot path.
func (s *Service) CountInWindow(ctx context.Context, userID string, window time.Duration) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("userID is required")
	}

	if s.cache != nil {
		key := fmt.Sprintf("wagers:%s:%d", userID, int(window.Seconds()))
		count, err := s.cache.IncrementCounter(ctx, key, window)
		if err == nil {
			return count, nil
		}
	}

	wagers, err := s.repo.GetWagersByUser(ctx, userID, time.Now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("failed to count wagers: %w", err)
	}
	return int64(len(wagers)), nil
}

// Snapshot builds the cacheable profile snapshot for a user.
func Snapshot(u *domain.User) *domain.ProfileCache {
	p := &domain.ProfileCache{
		UserID:                 u.ID,
		Balance:                u.Balance,
		BetsToday:              u.BetsToday,
		AmountWageredToday:     u.AmountWageredToday,
		ConsecutiveBettingDays: u.ConsecutiveBettingDays,
		RiskScore:              u.RiskScore,
	}
	if u.LastBetAt != nil {
		p.LastBetAt = u.LastBetAt.UTC().Format(time.RFC3339)
	}
	return p
}
