package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opensource-wellness/kestrel/internal/domain"
	"github.com/opensource-wellness/kestrel/internal/repository"
)

type fakeStore struct {
	user          *domain.User
	wagers        []*domain.Wager
	interventions []*domain.Intervention
	saved         []*domain.Report
}

func (f *fakeStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if f.user == nil || f.user.ID != userID {
		return nil, repository.ErrNotFound
	}
	return f.user, nil
}

func (f *fakeStore) GetWagersByUser(ctx context.Context, userID string, since time.Time) ([]*domain.Wager, error) {
	var out []*domain.Wager
	for _, w := range f.wagers {
		if !w.PlacedAt.Before(since) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) GetInterventionsByUser(ctx context.Context, userID string) ([]*domain.Intervention, error) {
	return f.interventions, nil
}

func (f *fakeStore) SaveReport(ctx context.Context, r *domain.Report) error {
	f.saved = append(f.saved, r)
	return nil
}

var (
	start = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)
)

func wager(day, hour int, stake float64, status string, payout float64) *domain.Wager {
	w := &domain.Wager{
		ID:       "w",
		UserID:   "u1",
		Stake:    stake,
		Status:   status,
		PlacedAt: time.Date(2025, 6, day, hour, 0, 0, 0, time.UTC),
	}
	if status == domain.WagerWon {
		w.Payout = &payout
	}
	return w
}

func TestGenerateAggregates(t *testing.T) {
	store := &fakeStore{
		user: &domain.User{ID: "u1", Name: "Dana", Balance: 1000, RiskScore: 45, RiskLevel: domain.RiskMedium},
		wagers: []*domain.Wager{
			wager(10, 12, 100, domain.WagerWon, 200),
			wager(11, 13, 50, domain.WagerLost, 0),
			wager(12, 23, 30, domain.WagerLost, 0),
		},
	}

	r, err := NewGenerator(store).Generate(context.Background(), "u1", start, end)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if r.TotalWagers != 3 || r.TotalStaked != 180 {
		t.Errorf("wagers/staked = %d/%.2f, want 3/180", r.TotalWagers, r.TotalStaked)
	}
	if r.TotalWon != 200 || r.TotalLost != 80 {
		t.Errorf("won/lost = %.2f/%.2f, want 200/80", r.TotalWon, r.TotalLost)
	}
	if r.NetPosition() != 120 {
		t.Errorf("net = %.2f, want 120", r.NetPosition())
	}
	if r.MaxStake != 100 || r.MinStake != 30 || r.MeanStake != 60 {
		t.Errorf("stakes max/min/mean = %.2f/%.2f/%.2f", r.MaxStake, r.MinStake, r.MeanStake)
	}
	if r.DaysActive != 3 || r.LongestStreak != 3 {
		t.Errorf("days/streak = %d/%d, want 3/3", r.DaysActive, r.LongestStreak)
	}
	if r.NocturnalWagers != 1 {
		t.Errorf("nocturnal = %d, want 1", r.NocturnalWagers)
	}
	if r.RiskScoreStart != 45 || r.RiskLevelStart != domain.RiskMedium {
		t.Errorf("window-start risk = %d/%s", r.RiskScoreStart, r.RiskLevelStart)
	}
	if len(store.saved) != 1 {
		t.Errorf("report not persisted")
	}
	if r.Narrative == "" || r.Recommendations == "" {
		t.Error("missing narrative or recommendations")
	}
}

func TestGenerateEmptyWindow(t *testing.T) {
	store := &fakeStore{user: &domain.User{ID: "u1", Name: "Dana", Balance: 1000}}

	r, err := NewGenerator(store).Generate(context.Background(), "u1", start, end)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if r.TotalWagers != 0 {
		t.Errorf("TotalWagers = %d, want 0", r.TotalWagers)
	}
	if r.WinRate() != 0 {
		t.Errorf("WinRate = %.2f, want 0", r.WinRate())
	}
	if r.RiskScoreEnd != 0 || r.RiskLevelEnd != domain.RiskLow {
		t.Errorf("window-end risk = %d/%s, want 0/LOW", r.RiskScoreEnd, r.RiskLevelEnd)
	}
}

func TestGenerateInvalidWindow(t *testing.T) {
	store := &fakeStore{user: &domain.User{ID: "u1"}}
	_, err := NewGenerator(store).Generate(context.Background(), "u1", end, start)
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if len(store.saved) != 0 {
		t.Error("report persisted despite invalid window")
	}
}

func TestGenerateUnknownUser(t *testing.T) {
	store := &fakeStore{}
	_, err := NewGenerator(store).Generate(context.Background(), "ghost", start, end)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGenerateExcludesOutOfWindowWagers(t *testing.T) {
	store := &fakeStore{
		user: &domain.User{ID: "u1", Name: "Dana", Balance: 1000},
		wagers: []*domain.Wager{
			wager(15, 12, 10, domain.WagerLost, 0),
			{ID: "late", UserID: "u1", Stake: 99, Status: domain.WagerLost,
				PlacedAt: time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)},
		},
	}

	r, err := NewGenerator(store).Generate(context.Background(), "u1", start, end)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if r.TotalWagers != 1 || r.TotalStaked != 10 {
		t.Errorf("wagers/staked = %d/%.2f, want 1/10", r.TotalWagers, r.TotalStaked)
	}
}

func TestGenerateCountsWindowInterventions(t *testing.T) {
	accepted := time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		user: &domain.User{ID: "u1", Name: "Dana", Balance: 1000},
		interventions: []*domain.Intervention{
			{ID: "i1", UserID: "u1", CreatedAt: accepted, Accepted: true},
			{ID: "i2", UserID: "u1", CreatedAt: accepted.AddDate(0, 0, 1)},
			{ID: "i3", UserID: "u1", CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), Accepted: true},
		},
	}

	r, err := NewGenerator(store).Generate(context.Background(), "u1", start, end)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if r.InterventionsCreated != 2 || r.InterventionsAccepted != 1 {
		t.Errorf("interventions created/accepted = %d/%d, want 2/1", r.InterventionsCreated, r.InterventionsAccepted)
	}
	if r.AcceptanceRate() != 50 {
		t.Errorf("acceptance rate = %.1f, want 50", r.AcceptanceRate())
	}
}

func TestGenerateReproducible(t *testing.T) {
	store := &fakeStore{
		user: &domain.User{ID: "u1", Name: "Dana", Balance: 1000, RiskScore: 20, RiskLevel: domain.RiskLow},
		wagers: []*domain.Wager{
			wager(28, 23, 200, domain.WagerLost, 0),
			wager(29, 2, 300, domain.WagerLost, 0),
			wager(30, 10, 400, domain.WagerLost, 0),
		},
	}
	g := NewGenerator(store)

	a, err := g.Generate(context.Background(), "u1", start, end)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := g.Generate(context.Background(), "u1", start, end)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.RiskScoreEnd != b.RiskScoreEnd || a.Narrative != b.Narrative {
		t.Error("same window produced different reports")
	}
	if a.ID == b.ID {
		t.Error("regeneration must produce a new report, not update in place")
	}
}

func TestRecommendationTiers(t *testing.T) {
	high := Recommendations(domain.RiskHigh)
	medium := Recommendations(domain.RiskMedium)
	low := Recommendations(domain.RiskLow)
	if high == medium || medium == low || high == low {
		t.Error("tiers must differ")
	}
	if high == "" || medium == "" || low == "" {
		t.Error("empty tier text")
	}
}

func TestMonthlyWindow(t *testing.T) {
	store := &fakeStore{user: &domain.User{ID: "u1", Name: "Dana"}}
	r, err := NewGenerator(store).Monthly(context.Background(), "u1", 2025, time.February)
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}
	if r.Start.Day() != 1 || r.Start.Month() != time.February {
		t.Errorf("start = %v", r.Start)
	}
	if r.End.Month() != time.February || r.End.Day() != 28 {
		t.Errorf("end = %v", r.End)
	}
}
