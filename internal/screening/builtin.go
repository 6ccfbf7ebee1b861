package screening

import (
	"context"
	"fmt"

	"github.com/opensource-wellness/kestrel/internal/domain"
)

// EnsureRules loads the operator rules from the repository into the
// engine. An empty repository gets the builtin set persisted first, so
// a later reload or delete works against the same stored rules instead
// of silently emptying the engine.
func EnsureRules(ctx context.Context, repo domain.Repository, e *Engine) error {
	rules, err := repo.ListScreenRules(ctx)
	if err != nil {
		return fmt.Errorf("list screen rules: %w", err)
	}

	if len(rules) == 0 {
		rules = BuiltinRules()
		for _, rule := range rules {
			if err := repo.SaveScreenRule(ctx, rule); err != nil {
				return fmt.Errorf("persist builtin rule %s: %w", rule.ID, err)
			}
		}
	}

	return e.LoadRules(rules)
}

// BuiltinRules returns the screen rules seeded on first start. Operators
// can edit or disable them over the API like any other rule.
func BuiltinRules() []*domain.ScreenRule {
	return []*domain.ScreenRule{
		{
			ID:          "builtin-heavy-day",
			Name:        "Very heavy wagering day",
			Description: "More than 15 wagers placed in a single day",
			Expression:  "bets_today > 15",
			Kind:        domain.BehaviorFrequentWagering,
			Severity:    9,
			Enabled:     true,
		},
		{
			ID:          "builtin-balance-burn",
			Name:        "Half the balance wagered today",
			Description: "Today's stakes exceed half of the current balance",
			Expression:  "amount_wagered_today > balance * 0.5",
			Kind:        domain.BehaviorHighAmounts,
			Severity:    10,
			Enabled:     true,
		},
		{
			ID:          "builtin-long-streak",
			Name:        "Week-long wagering streak",
			Description: "Wagering on 7 or more consecutive days",
			Expression:  "consecutive_days >= 7",
			Kind:        domain.BehaviorConsecutiveDays,
			Severity:    8,
			Enabled:     true,
		},
	}
}
