// Package risk implements the behavioral risk scoring engine.
// Scoring is a pure additive point model over a profile snapshot; the
// same point values are reused for window-scoped scoring in reports.
package risk

import (
	"sort"
	"time"

	"github.com/opensource-wellness/kestrel/internal/domain"
)

// Point values per signal.
const (
	PointsFrequency   = 20 // more than FrequentDailyBets wagers today
	PointsAmount      = 15 // today's stakes above AmountShareOfBalance of balance
	PointsConsecutive = 25 // more than ConsecutiveDayLimit days in a row
	PointsRecency     = 10 // last wager within RecencyWindow
)

// Signal thresholds, shared with the pattern detector.
const (
	FrequentDailyBets    = 5
	AmountShareOfBalance = 0.10
	ConsecutiveDayLimit  = 3
	RecencyWindow        = 2 * time.Hour
)

// Classification thresholds, evaluated high to low.
const (
	ThresholdHigh   = 70
	ThresholdMedium = 40
)

// Score computes the additive risk score for a snapshot at a given
// instant. Pure and deterministic; no clamping is applied, so the
// classification thresholds must tolerate scores above the current
// maximum when new signals are added.
func Score(s domain.RiskSnapshot, now time.Time) int {
	score := 0
	if s.BetsToday > FrequentDailyBets {
		score += PointsFrequency
	}
	if s.AmountWageredToday > s.Balance*AmountShareOfBalance {
		score += PointsAmount
	}
	if s.ConsecutiveBettingDays > ConsecutiveDayLimit {
		score += PointsConsecutive
	}
	if s.LastBetAt != nil && now.Sub(*s.LastBetAt) < RecencyWindow {
		score += PointsRecency
	}
	return score
}

// Classify maps a score to a risk level. Total over int; monotonic in
// the score.
func Classify(score int) domain.RiskLevel {
	switch {
	case score >= ThresholdHigh:
		return domain.RiskHigh
	case score >= ThresholdMedium:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// Recompute re-derives the user's score and level from the current
// rolling counters and stamps LastEvaluatedAt. The profile is always
// rewritten as a whole so score and level cannot drift apart.
func Recompute(u *domain.User, now time.Time) (int, domain.RiskLevel) {
	score := Score(u.Snapshot(), now)
	u.RiskScore = score
	u.RiskLevel = Classify(score)
	u.LastEvaluatedAt = now.UTC()
	return score, u.RiskLevel
}

// WindowSignals are the scoring inputs derived from an explicit report
// window instead of the live rolling counters. The recency signal has
// no meaning for a historical window, so nocturnal activity stands in
// for it; everything else mirrors the live model.
type WindowSignals struct {
	Balance         float64
	BetsOnEndDay    int
	AmountOnEndDay  float64
	LongestStreak   int
	NocturnalWagers int
}

// SignalsForWindow derives window signals from the wagers placed inside
// a report window. The caller passes only in-window wagers; end marks
// the day the "today" signals are scoped to. Reproducible for a fixed
// window regardless of when it runs.
func SignalsForWindow(wagers []*domain.Wager, balance float64, end time.Time) WindowSignals {
	sig := WindowSignals{Balance: balance}
	endYear, endMonth, endDay := end.Date()
	times := make([]time.Time, 0, len(wagers))
	for _, w := range wagers {
		times = append(times, w.PlacedAt)
		y, m, d := w.PlacedAt.Date()
		if y == endYear && m == endMonth && d == endDay {
			sig.BetsOnEndDay++
			sig.AmountOnEndDay += w.Stake
		}
		if Nocturnal(w.PlacedAt) {
			sig.NocturnalWagers++
		}
	}
	sig.LongestStreak = LongestDailyStreak(times)
	return sig
}

// Score applies the additive point model to the window signals.
func (s WindowSignals) Score() int {
	score := 0
	if s.BetsOnEndDay > FrequentDailyBets {
		score += PointsFrequency
	}
	if s.AmountOnEndDay > s.Balance*AmountShareOfBalance {
		score += PointsAmount
	}
	if s.LongestStreak > ConsecutiveDayLimit {
		score += PointsConsecutive
	}
	if s.NocturnalWagers > 0 {
		score += PointsRecency
	}
	return score
}

// Nocturnal reports whether a wager time falls in the late-night band,
// hour 22 through 5 inclusive.
func Nocturnal(t time.Time) bool {
	h := t.Hour()
	return h >= 22 || h < 6
}

// LongestDailyStreak returns the length of the longest run of
// calendar-consecutive days carrying at least one timestamp.
func LongestDailyStreak(times []time.Time) int {
	if len(times) == 0 {
		return 0
	}
	seen := make(map[int64]struct{}, len(times))
	for _, t := range times {
		y, m, d := t.Date()
		epochDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
		seen[epochDay] = struct{}{}
	}
	days := make([]int64, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i]-days[i-1] == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
