package risk

import (
	"testing"
	"time"

	"github.com/opensource-wellness/kestrel/internal/domain"
)

var now = time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

func TestScore(t *testing.T) {
	recent := now.Add(-30 * time.Minute)
	stale := now.Add(-3 * time.Hour)

	tests := []struct {
		name string
		snap domain.RiskSnapshot
		want int
	}{
		{
			name: "quiet profile",
			snap: domain.RiskSnapshot{Balance: 1000},
			want: 0,
		},
		{
			name: "frequency only",
			snap: domain.RiskSnapshot{Balance: 1000, BetsToday: 6, AmountWageredToday: 50},
			want: 20,
		},
		{
			name: "amount only",
			snap: domain.RiskSnapshot{Balance: 1000, BetsToday: 1, AmountWageredToday: 150},
			want: 15,
		},
		{
			name: "amount at exactly ten percent does not fire",
			snap: domain.RiskSnapshot{Balance: 1000, BetsToday: 1, AmountWageredToday: 100},
			want: 0,
		},
		{
			name: "consecutive days",
			snap: domain.RiskSnapshot{Balance: 1000, ConsecutiveBettingDays: 4},
			want: 25,
		},
		{
			name: "three consecutive days does not fire",
			snap: domain.RiskSnapshot{Balance: 1000, ConsecutiveBettingDays: 3},
			want: 0,
		},
		{
			name: "recent wager",
			snap: domain.RiskSnapshot{Balance: 1000, LastBetAt: &recent},
			want: 10,
		},
		{
			name: "stale wager does not fire",
			snap: domain.RiskSnapshot{Balance: 1000, LastBetAt: &stale},
			want: 0,
		},
		{
			name: "all signals",
			snap: domain.RiskSnapshot{
				Balance:                1000,
				BetsToday:              8,
				AmountWageredToday:     200,
				ConsecutiveBettingDays: 5,
				LastBetAt:              &recent,
			},
			want: 70,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.snap, now); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreIdempotent(t *testing.T) {
	recent := now.Add(-time.Hour)
	snap := domain.RiskSnapshot{
		Balance:                500,
		BetsToday:              7,
		AmountWageredToday:     120,
		ConsecutiveBettingDays: 4,
		LastBetAt:              &recent,
	}
	first := Score(snap, now)
	second := Score(snap, now)
	if first != second {
		t.Errorf("scores differ across calls: %d vs %d", first, second)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		score int
		want  domain.RiskLevel
	}{
		{0, domain.RiskLow},
		{39, domain.RiskLow},
		{40, domain.RiskMedium},
		{69, domain.RiskMedium},
		{70, domain.RiskHigh},
		{100, domain.RiskHigh},
	}
	for _, tt := range tests {
		if got := Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	prev := Classify(0)
	for score := 1; score <= 120; score++ {
		cur := Classify(score)
		if cur.Rank() < prev.Rank() {
			t.Fatalf("level decreased from %s to %s at score %d", prev, cur, score)
		}
		prev = cur
	}
}

func TestRecompute(t *testing.T) {
	recent := now.Add(-time.Minute)
	u := &domain.User{
		ID:                     "u1",
		Balance:                1000,
		BetsToday:              6,
		AmountWageredToday:     200,
		ConsecutiveBettingDays: 4,
		LastBetAt:              &recent,
	}

	score, level := Recompute(u, now)
	if score != 70 {
		t.Errorf("score = %d, want 70", score)
	}
	if level != domain.RiskHigh {
		t.Errorf("level = %s, want HIGH", level)
	}
	if u.RiskScore != score || u.RiskLevel != level {
		t.Error("profile not updated in place")
	}
	if !u.LastEvaluatedAt.Equal(now) {
		t.Errorf("LastEvaluatedAt = %v, want %v", u.LastEvaluatedAt, now)
	}

	again, _ := Recompute(u, now)
	if again != score {
		t.Errorf("recompute not idempotent: %d then %d", score, again)
	}
}

func wagerAt(t time.Time, stake float64) *domain.Wager {
	return &domain.Wager{Stake: stake, PlacedAt: t, Status: domain.WagerPending}
}

func TestSignalsForWindow(t *testing.T) {
	end := time.Date(2025, 6, 10, 23, 59, 59, 0, time.UTC)
	wagers := []*domain.Wager{
		wagerAt(time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC), 10),
		wagerAt(time.Date(2025, 6, 9, 13, 0, 0, 0, time.UTC), 20),
		wagerAt(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), 30),
		wagerAt(time.Date(2025, 6, 10, 23, 30, 0, 0, time.UTC), 40),
	}

	sig := SignalsForWindow(wagers, 1000, end)
	if sig.BetsOnEndDay != 2 {
		t.Errorf("BetsOnEndDay = %d, want 2", sig.BetsOnEndDay)
	}
	if sig.AmountOnEndDay != 70 {
		t.Errorf("AmountOnEndDay = %v, want 70", sig.AmountOnEndDay)
	}
	if sig.LongestStreak != 3 {
		t.Errorf("LongestStreak = %d, want 3", sig.LongestStreak)
	}
	if sig.NocturnalWagers != 1 {
		t.Errorf("NocturnalWagers = %d, want 1", sig.NocturnalWagers)
	}

	// Nocturnal activity in the window adds the recency points.
	if got := sig.Score(); got != PointsRecency {
		t.Errorf("Score() = %d, want %d", got, PointsRecency)
	}
}

func TestSignalsForWindowReproducible(t *testing.T) {
	end := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	wagers := []*domain.Wager{
		wagerAt(time.Date(2025, 6, 10, 1, 0, 0, 0, time.UTC), 500),
	}
	a := SignalsForWindow(wagers, 1000, end)
	b := SignalsForWindow(wagers, 1000, end)
	if a != b {
		t.Errorf("signals differ across runs: %+v vs %+v", a, b)
	}
}

func TestLongestDailyStreak(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 1, d, 10, 0, 0, 0, time.UTC)
	}
	tests := []struct {
		name  string
		times []time.Time
		want  int
	}{
		{"empty", nil, 0},
		{"single day", []time.Time{day(1)}, 1},
		{"three in a row", []time.Time{day(1), day(2), day(3)}, 3},
		{"gaps only", []time.Time{day(1), day(3), day(5)}, 1},
		{"duplicates within a day", []time.Time{day(2), day(2), day(3)}, 2},
		{"run after gap", []time.Time{day(1), day(5), day(6), day(7), day(8)}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LongestDailyStreak(tt.times); got != tt.want {
				t.Errorf("LongestDailyStreak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNocturnal(t *testing.T) {
	tests := []struct {
		hour int
		want bool
	}{
		{21, false}, {22, true}, {23, true}, {0, true}, {5, true}, {6, false}, {12, false},
	}
	for _, tt := range tests {
		at := time.Date(2025, 6, 1, tt.hour, 0, 0, 0, time.UTC)
		if got := Nocturnal(at); got != tt.want {
			t.Errorf("Nocturnal(hour=%d) = %v, want %v", tt.hour, got, tt.want)
		}
	}
}
