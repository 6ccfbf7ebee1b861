// Package detect implements the wagering pattern detectors. Each check
// is independent and order-insensitive; all applicable checks fire on a
// single pass over the user's wager history.
package detect

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-wellness/kestrel/internal/domain"
	"github.com/opensource-wellness/kestrel/internal/risk"
)

// Detector severities.
const (
	SeverityFrequent    = 7
	SeverityHighAmounts = 8
	SeverityConsecutive = 6
	SeverityNocturnal   = 5
	SeverityLosses      = 9
	SeverityChasing     = 8
	SeverityRebetting   = 7
)

// Trailing windows and ratios used by the history checks.
const (
	lossWindow      = 7 * 24 * time.Hour
	lossMinWagers   = 5
	lossRatio       = 0.70
	chaseWindow     = 3 * 24 * time.Hour
	chaseMultiplier = 1.5
	rebetWindow     = 24 * time.Hour
	rebetGap        = 30 * time.Minute
)

type check func(u *domain.User, wagers []*domain.Wager, now time.Time) *domain.DetectedBehavior

// Detect runs every check against the user's wager history as of now.
// An empty history yields an empty result; detection never fails.
func Detect(u *domain.User, history []*domain.Wager, now time.Time) []*domain.DetectedBehavior {
	var out []*domain.DetectedBehavior
	if len(history) == 0 {
		return out
	}

	sorted := make([]*domain.Wager, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PlacedAt.Before(sorted[j].PlacedAt)
	})

	checks := []check{
		checkFrequent,
		checkHighAmounts,
		checkConsecutiveDays,
		checkNocturnal,
		checkRecurrentLosses,
		checkLossChasing,
		checkRebetting,
	}
	for _, c := range checks {
		if b := c(u, sorted, now); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func record(userID string, kind domain.BehaviorKind, severity int, now time.Time, description string) *domain.DetectedBehavior {
	return &domain.DetectedBehavior{
		ID:                uuid.New().String(),
		UserID:            userID,
		Kind:              kind,
		Description:       description,
		Severity:          severity,
		DetectedAt:        now.UTC(),
		RecommendedAction: RecommendedAction(kind),
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func checkFrequent(u *domain.User, wagers []*domain.Wager, now time.Time) *domain.DetectedBehavior {
	count := 0
	for _, w := range wagers {
		if sameDay(w.PlacedAt, now) {
			count++
		}
	}
	if count <= risk.FrequentDailyBets {
		return nil
	}
	desc := fmt.Sprintf("Placed %d wagers today, above the daily attention threshold of %d", count, risk.FrequentDailyBets)
	return record(u.ID, domain.BehaviorFrequentWagering, SeverityFrequent, now, desc)
}

func checkHighAmounts(u *domain.User, wagers []*domain.Wager, now time.Time) *domain.DetectedBehavior {
	total := 0.0
	for _, w := range wagers {
		if sameDay(w.PlacedAt, now) {
			total += w.Stake
		}
	}
	limit := u.Balance * risk.AmountShareOfBalance
	if total <= limit {
		return nil
	}
	desc := fmt.Sprintf("Staked %.2f today, above %.0f%% of the current balance (%.2f)", total, risk.AmountShareOfBalance*100, u.Balance)
	return record(u.ID, domain.BehaviorHighAmounts, SeverityHighAmounts, now, desc)
}

func checkConsecutiveDays(u *domain.User, wagers []*domain.Wager, now time.Time) *domain.DetectedBehavior {
	times := make([]time.Time, len(wagers))
	for i, w := range wagers {
		times[i] = w.PlacedAt
	}
	streak := risk.LongestDailyStreak(times)
	if streak < 3 {
		return nil
	}
	desc := fmt.Sprintf("Wagered on %d consecutive days", streak)
	return record(u.ID, domain.BehaviorConsecutiveDays, SeverityConsecutive, now, desc)
}

func checkNocturnal(u *domain.User, wagers []*domain.Wager, now time.Time) *domain.DetectedBehavior {
	count := 0
	for _, w := range wagers {
		if sameDay(w.PlacedAt, now) && risk.Nocturnal(w.PlacedAt) {
			count++
		}
	}
	if count == 0 {
		return nil
	}
	desc := fmt.Sprintf("Placed %d wagers during late-night hours today", count)
	return record(u.ID, domain.BehaviorNocturnalWagering, SeverityNocturnal, now, desc)
}

func checkRecurrentLosses(u *domain.User, wagers []*domain.Wager, now time.Time) *domain.DetectedBehavior {
	cutoff := now.Add(-lossWindow)
	total, lost := 0, 0
	for _, w := range wagers {
		if w.PlacedAt.Before(cutoff) {
			continue
		}
		total++
		if w.Status == domain.WagerLost {
			lost++
		}
	}
	if total < lossMinWagers {
		return nil
	}
	ratio := float64(lost) / float64(total)
	if ratio <= lossRatio {
		return nil
	}
	desc := fmt.Sprintf("Lost %d of %d wagers in the last 7 days (%.0f%%)", lost, total, ratio*100)
	return record(u.ID, domain.BehaviorRecurrentLosses, SeverityLosses, now, desc)
}

// checkLossChasing looks for a stake escalated by more than 50% right
// after a loss within the trailing three days. Wagers arrive sorted by
// placement time.
func checkLossChasing(u *domain.User, wagers []*domain.Wager, now time.Time) *domain.DetectedBehavior {
	cutoff := now.Add(-chaseWindow)
	var recent []*domain.Wager
	for _, w := range wagers {
		if !w.PlacedAt.Before(cutoff) {
			recent = append(recent, w)
		}
	}
	for i := 1; i < len(recent); i++ {
		prev, cur := recent[i-1], recent[i]
		if prev.Status == domain.WagerLost && cur.Stake > prev.Stake*chaseMultiplier {
			desc := fmt.Sprintf("Raised the stake from %.2f to %.2f immediately after a loss", prev.Stake, cur.Stake)
			return record(u.ID, domain.BehaviorLossChasing, SeverityChasing, now, desc)
		}
	}
	return nil
}

// checkRebetting looks for a new wager placed within 30 minutes of a
// loss within the trailing day.
func checkRebetting(u *domain.User, wagers []*domain.Wager, now time.Time) *domain.DetectedBehavior {
	cutoff := now.Add(-rebetWindow)
	var recent []*domain.Wager
	for _, w := range wagers {
		if !w.PlacedAt.Before(cutoff) {
			recent = append(recent, w)
		}
	}
	for i := 1; i < len(recent); i++ {
		prev, cur := recent[i-1], recent[i]
		if prev.Status == domain.WagerLost && cur.PlacedAt.Sub(prev.PlacedAt) < rebetGap {
			desc := fmt.Sprintf("Placed a new wager %.0f minutes after a loss", cur.PlacedAt.Sub(prev.PlacedAt).Minutes())
			return record(u.ID, domain.BehaviorEmotionalRebetting, SeverityRebetting, now, desc)
		}
	}
	return nil
}

// RecommendedAction returns the fixed guidance text for a behavior kind.
func RecommendedAction(kind domain.BehaviorKind) string {
	switch kind {
	case domain.BehaviorFrequentWagering:
		return "Set a daily wager cap and schedule breaks between sessions"
	case domain.BehaviorHighAmounts:
		return "Set a spending limit well below the account balance"
	case domain.BehaviorConsecutiveDays:
		return "Plan at least two wager-free days this week"
	case domain.BehaviorNocturnalWagering:
		return "Avoid wagering between 22:00 and 06:00; protect sleep hours"
	case domain.BehaviorRecurrentLosses:
		return "Pause wagering and review the recent loss streak with support"
	case domain.BehaviorLossChasing:
		return "Never raise stakes after a loss; step away for 24 hours"
	case domain.BehaviorEmotionalRebetting:
		return "Wait at least one hour after any loss before deciding again"
	case domain.BehaviorNeglectedDuties:
		return "Rebalance time toward work, study and family commitments"
	case domain.BehaviorConcealedActivity:
		return "Share wagering activity with a trusted person"
	case domain.BehaviorBorrowedFunds:
		return "Stop wagering borrowed money and seek financial guidance"
	default:
		return "Review recent wagering activity"
	}
}
