// Package report generates behavioral reports over explicit windows.
// A report is computed from the wagers placed inside the window and a
// window-scoped risk recompute, so regenerating the same window always
// yields the same numbers regardless of when it runs.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-wellness/kestrel/internal/domain"
	"github.com/opensource-wellness/kestrel/internal/repository"
	"github.com/opensource-wellness/kestrel/internal/risk"
)

// Store is the slice of the repository the generator reads and writes.
type Store interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetWagersByUser(ctx context.Context, userID string, since time.Time) ([]*domain.Wager, error)
	GetInterventionsByUser(ctx context.Context, userID string) ([]*domain.Intervention, error)
	SaveReport(ctx context.Context, r *domain.Report) error
}

// Generator builds and persists behavioral reports.
type Generator struct {
	store Store
}

// NewGenerator creates a report generator over a store.
func NewGenerator(store Store) *Generator {
	return &Generator{store: store}
}

// Generate builds the report for [start, end], persists it and returns
// it. The live profile supplies the window-start risk figures; the
// window-end figures come from re-running the point model over the
// in-window wagers only.
func (g *Generator) Generate(ctx context.Context, userID string, start, end time.Time) (*domain.Report, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: report window start %s after end %s", repository.ErrInvalidInput, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	u, err := g.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	all, err := g.store.GetWagersByUser(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("load wagers: %w", err)
	}
	var wagers []*domain.Wager
	for _, w := range all {
		if !w.PlacedAt.After(end) {
			wagers = append(wagers, w)
		}
	}

	r := &domain.Report{
		ID:             uuid.New().String(),
		UserID:         userID,
		Start:          start.UTC(),
		End:            end.UTC(),
		RiskScoreStart: u.RiskScore,
		RiskLevelStart: u.RiskLevel,
		GeneratedAt:    time.Now().UTC(),
	}
	aggregate(r, wagers)

	sig := risk.SignalsForWindow(wagers, u.Balance, end)
	r.RiskScoreEnd = sig.Score()
	r.RiskLevelEnd = risk.Classify(r.RiskScoreEnd)

	ivs, err := g.store.GetInterventionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load interventions: %w", err)
	}
	for _, iv := range ivs {
		if iv.CreatedAt.Before(start) || iv.CreatedAt.After(end) {
			continue
		}
		r.InterventionsCreated++
		if iv.Accepted {
			r.InterventionsAccepted++
		}
	}

	r.Narrative = narrative(u, r)
	r.Recommendations = Recommendations(r.RiskLevelEnd)

	if err := g.store.SaveReport(ctx, r); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	return r, nil
}

// Monthly generates the report for a calendar month.
func (g *Generator) Monthly(ctx context.Context, userID string, year int, month time.Month) (*domain.Report, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return g.Generate(ctx, userID, start, end)
}

// Weekly generates the report for the seven days ending at a given time.
func (g *Generator) Weekly(ctx context.Context, userID string, end time.Time) (*domain.Report, error) {
	return g.Generate(ctx, userID, end.AddDate(0, 0, -7), end)
}

func aggregate(r *domain.Report, wagers []*domain.Wager) {
	if len(wagers) == 0 {
		return
	}
	times := make([]time.Time, 0, len(wagers))
	days := make(map[string]struct{})
	for i, w := range wagers {
		r.TotalWagers++
		r.TotalStaked += w.Stake
		if w.Status == domain.WagerWon && w.Payout != nil {
			r.TotalWon += *w.Payout
		}
		if w.Status == domain.WagerLost {
			r.TotalLost += w.Stake
		}
		if i == 0 || w.Stake > r.MaxStake {
			r.MaxStake = w.Stake
		}
		if i == 0 || w.Stake < r.MinStake {
			r.MinStake = w.Stake
		}
		times = append(times, w.PlacedAt)
		days[w.PlacedAt.Format("2006-01-02")] = struct{}{}
		if risk.Nocturnal(w.PlacedAt) {
			r.NocturnalWagers++
		}
	}
	r.MeanStake = r.TotalStaked / float64(r.TotalWagers)
	r.DaysActive = len(days)
	r.LongestStreak = risk.LongestDailyStreak(times)
}

// narrative renders the deterministic summary text. Everything in it is
// derived from the report fields, never from the clock.
func narrative(u *domain.User, r *domain.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Activity report for %s covering %s to %s.\n",
		u.Name, r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))

	if r.TotalWagers == 0 {
		b.WriteString("No wagers were placed during this period.\n")
	} else {
		fmt.Fprintf(&b, "%d wagers were placed across %d active days, staking %.2f in total (min %.2f, max %.2f, mean %.2f).\n",
			r.TotalWagers, r.DaysActive, r.TotalStaked, r.MinStake, r.MaxStake, r.MeanStake)
		fmt.Fprintf(&b, "Winnings were %.2f against %.2f lost, a net position of %+.2f and a win rate of %.1f%%.\n",
			r.TotalWon, r.TotalLost, r.NetPosition(), r.WinRate())
		if r.LongestStreak > 1 {
			fmt.Fprintf(&b, "The longest run of consecutive wagering days was %d.\n", r.LongestStreak)
		}
		if r.NocturnalWagers > 0 {
			fmt.Fprintf(&b, "%d wagers were placed during late-night hours.\n", r.NocturnalWagers)
		}
	}

	fmt.Fprintf(&b, "Risk moved from %d (%s) at the start of the period to %d (%s) at its end.\n",
		r.RiskScoreStart, r.RiskLevelStart, r.RiskScoreEnd, r.RiskLevelEnd)
	if r.Improved() {
		b.WriteString("This is an improvement over the start of the period.\n")
	}
	if r.InterventionsCreated > 0 {
		fmt.Fprintf(&b, "%d of %d interventions offered during the period were accepted (%.0f%%).\n",
			r.InterventionsAccepted, r.InterventionsCreated, r.AcceptanceRate())
	}
	return b.String()
}

// Recommendations returns the fixed guidance tier for a risk level.
func Recommendations(level domain.RiskLevel) string {
	switch level {
	case domain.RiskHigh:
		return strings.Join([]string{
			"Your recent pattern calls for immediate changes:",
			"- Pause all wagering for at least 48 hours.",
			"- Talk to our support team or a trusted person today.",
			"- Consider professional counselling; it is confidential and it works.",
			"- Remove wagering apps from your phone for the pause period.",
		}, "\n")
	case domain.RiskMedium:
		return strings.Join([]string{
			"A few preventive steps will keep things under control:",
			"- Set a daily wager limit below your recent average.",
			"- Schedule wager-free days during the week.",
			"- Review your monthly numbers and set a fixed entertainment budget.",
			"- Try an alternative activity when you feel the urge to play.",
		}, "\n")
	default:
		return strings.Join([]string{
			"Your activity looks controlled. To keep it that way:",
			"- Keep wagers within a fixed entertainment budget.",
			"- Check your activity report monthly.",
			"- Never wager to recover a loss or to cope with a bad day.",
		}, "\n")
	}
}
