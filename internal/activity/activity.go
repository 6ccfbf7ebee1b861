// Package activity holds the catalog of healthy alternatives offered in
// place of wagering. The catalog is an immutable in-process table built
// once at load; there is no dynamic mutation.
package activity

import (
	"math/rand"

	"github.com/opensource-wellness/kestrel/internal/domain"
)

var catalog = []domain.Activity{
	{ID: "act-walk", Name: "Brisk walk", Description: "A 30 minute walk outdoors", Category: domain.ActivityPhysical, DurationMin: 30, Cost: 0, Benefit: "Clears the mind and burns restless energy"},
	{ID: "act-gym", Name: "Gym session", Description: "Strength or cardio workout", Category: domain.ActivityPhysical, DurationMin: 60, Cost: 15, Benefit: "Endorphins without the losses"},
	{ID: "act-cycle", Name: "Cycling", Description: "Ride a local route or trail", Category: domain.ActivityPhysical, DurationMin: 45, Cost: 0, Benefit: "Fresh air and steady focus"},
	{ID: "act-friends", Name: "Meet friends", Description: "Coffee or a meal with people you trust", Category: domain.ActivitySocial, DurationMin: 90, Cost: 20, Benefit: "Real connection beats a screen"},
	{ID: "act-volunteer", Name: "Volunteer work", Description: "An hour helping a local cause", Category: domain.ActivitySocial, DurationMin: 60, Cost: 0, Benefit: "Purpose and perspective"},
	{ID: "act-draw", Name: "Drawing", Description: "Sketch whatever is in front of you", Category: domain.ActivityCreative, DurationMin: 30, Cost: 5, Benefit: "Absorbing focus with something to show for it"},
	{ID: "act-cook", Name: "Cook a new recipe", Description: "Try a dish you have never made", Category: domain.ActivityCreative, DurationMin: 60, Cost: 15, Benefit: "A small win you can eat"},
	{ID: "act-course", Name: "Online course", Description: "One lesson of a free course", Category: domain.ActivityEducational, DurationMin: 45, Cost: 0, Benefit: "Compounds, unlike wagers"},
	{ID: "act-read", Name: "Read a book", Description: "A chapter of anything you enjoy", Category: domain.ActivityEducational, DurationMin: 30, Cost: 0, Benefit: "Slows the pace of the day"},
	{ID: "act-meditate", Name: "Meditation", Description: "Guided breathing for ten minutes", Category: domain.ActivityRelaxation, DurationMin: 10, Cost: 0, Benefit: "Lowers the urge to act on impulse"},
	{ID: "act-bath", Name: "Long bath", Description: "Phone stays in another room", Category: domain.ActivityRelaxation, DurationMin: 30, Cost: 0, Benefit: "A hard reset for a tense evening"},
	{ID: "act-budget", Name: "Budget review", Description: "Go through this month's spending", Category: domain.ActivityFinancial, DurationMin: 30, Cost: 0, Benefit: "Control over money, not the other way around"},
	{ID: "act-invest", Name: "Savings top-up", Description: "Move a small amount into savings", Category: domain.ActivityFinancial, DurationMin: 10, Cost: 0, Benefit: "The stake that always pays out"},
	{ID: "act-film", Name: "Watch a film", Description: "Something from your watchlist", Category: domain.ActivityEntertainment, DurationMin: 120, Cost: 10, Benefit: "Entertainment with a known price"},
	{ID: "act-game", Name: "Board game night", Description: "Games with no money on the table", Category: domain.ActivityEntertainment, DurationMin: 90, Cost: 0, Benefit: "Competition without financial stakes"},
}

// calming categories preferred for users at high risk
var calming = map[domain.ActivityCategory]bool{
	domain.ActivityRelaxation: true,
	domain.ActivityPhysical:   true,
	domain.ActivitySocial:     true,
}

// All returns a copy of the full catalog.
func All() []domain.Activity {
	out := make([]domain.Activity, len(catalog))
	copy(out, catalog)
	return out
}

// ByCategory returns the catalog entries in one category.
func ByCategory(cat domain.ActivityCategory) []domain.Activity {
	var out []domain.Activity
	for _, a := range catalog {
		if a.Category == cat {
			out = append(out, a)
		}
	}
	return out
}

// Free returns the zero-cost catalog entries.
func Free() []domain.Activity {
	var out []domain.Activity
	for _, a := range catalog {
		if a.Cost == 0 {
			out = append(out, a)
		}
	}
	return out
}

// Shorter returns entries that fit inside the given number of minutes.
func Shorter(minutes int) []domain.Activity {
	var out []domain.Activity
	for _, a := range catalog {
		if a.DurationMin <= minutes {
			out = append(out, a)
		}
	}
	return out
}

// Suggest picks one activity for a user. High-risk users get calming
// categories; low balances restrict to free activities. The rng is
// injected so callers control determinism.
func Suggest(u *domain.User, rng *rand.Rand) domain.Activity {
	pool := make([]domain.Activity, 0, len(catalog))
	for _, a := range catalog {
		if u.RiskLevel == domain.RiskHigh && !calming[a.Category] {
			continue
		}
		if u.Balance < 100 && a.Cost > 0 {
			continue
		}
		pool = append(pool, a)
	}
	if len(pool) == 0 {
		pool = Free()
	}
	return pool[rng.Intn(len(pool))]
}
