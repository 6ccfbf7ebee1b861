// Package intervene builds supportive interventions from a fixed
// catalog of templates. The package is a pure factory; persistence and
// delivery belong to the caller.
package intervene

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-wellness/kestrel/internal/domain"
)

// New creates an intervention with explicit content. The named
// constructors below cover the catalog; New is the escape hatch for
// operator-authored messages.
func New(userID string, kind domain.InterventionKind, title, message string, priority int, now time.Time) *domain.Intervention {
	if priority < 1 || priority > 5 {
		priority = 3
	}
	return &domain.Intervention{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		Priority:  priority,
		CreatedAt: now.UTC(),
	}
}

// BehaviorAlert flags a specific detected pattern back to the user.
func BehaviorAlert(userID string, b *domain.DetectedBehavior, now time.Time) *domain.Intervention {
	iv := New(userID, domain.InterventionBehaviorAlert,
		"We noticed a pattern in your activity",
		fmt.Sprintf("Our monitoring flagged: %s. Taking a moment to review your habits now can keep things under control.", b.Description),
		5, now)
	iv.RecommendedAction = b.RecommendedAction
	return iv
}

// ActivitySuggestion proposes a healthy alternative to wagering.
func ActivitySuggestion(userID string, activity *domain.Activity, now time.Time) *domain.Intervention {
	iv := New(userID, domain.InterventionActivitySuggestion,
		"How about trying something different?",
		fmt.Sprintf("Instead of placing another wager, try %s: %s. Expected benefit: %s.", activity.Name, activity.Description, activity.Benefit),
		3, now)
	iv.RecommendedAction = fmt.Sprintf("Try %s for about %d minutes", activity.Name, activity.DurationMin)
	return iv
}

// WagerLimit recommends a daily spending cap.
func WagerLimit(userID string, limit float64, now time.Time) *domain.Intervention {
	iv := New(userID, domain.InterventionWagerLimit,
		"Set a limit for your wagers",
		fmt.Sprintf("Your recent activity suggests a daily limit of %.2f would help you stay in control. Limits work best when set before you play.", limit),
		4, now)
	iv.RecommendedAction = fmt.Sprintf("Activate a daily limit of %.2f", limit)
	return iv
}

// MandatoryPause asks the user to stop for a fixed period.
func MandatoryPause(userID string, duration time.Duration, now time.Time) *domain.Intervention {
	hours := int(duration.Hours())
	iv := New(userID, domain.InterventionMandatoryPause,
		"Time for a break",
		fmt.Sprintf("Your activity has reached a level where a pause is the responsible choice. We recommend stepping away for at least %d hours.", hours),
		5, now)
	iv.RecommendedAction = fmt.Sprintf("Pause all wagering for %d hours", hours)
	return iv
}

// SupportContact offers a direct line to the support team.
func SupportContact(userID string, now time.Time) *domain.Intervention {
	iv := New(userID, domain.InterventionSupportContact,
		"We are here to help",
		"Talking helps. Our support team is trained to listen without judgment and can walk you through the options available to you.",
		4, now)
	iv.RecommendedAction = "Contact the support team"
	return iv
}

// RiskEducation shares educational material about wagering risk.
func RiskEducation(userID string, now time.Time) *domain.Intervention {
	iv := New(userID, domain.InterventionRiskEducation,
		"Understand the odds",
		"Every game is designed so the house wins over time. Understanding how odds and margins work is the best protection against risky habits.",
		2, now)
	iv.RecommendedAction = "Read the responsible wagering guide"
	return iv
}

// InvestmentSimulation contrasts wagering losses with saving.
func InvestmentSimulation(userID string, amount float64, now time.Time) *domain.Intervention {
	projected := amount * 1.1
	iv := New(userID, domain.InterventionInvestmentSimulation,
		"What if you had saved it instead?",
		fmt.Sprintf("The %.2f you wagered recently could be worth about %.2f in a year in a simple savings product. Small changes compound.", amount, projected),
		3, now)
	iv.RecommendedAction = "Simulate moving part of your budget to savings"
	return iv
}

// AwarenessStatistics shows the user their own numbers.
func AwarenessStatistics(userID string, totalStaked, totalLost float64, now time.Time) *domain.Intervention {
	iv := New(userID, domain.InterventionAwarenessStatistics,
		"Your numbers this period",
		fmt.Sprintf("You have staked %.2f and lost %.2f recently. Seeing the real figures helps keep decisions grounded.", totalStaked, totalLost),
		2, now)
	iv.RecommendedAction = "Review your activity statistics"
	return iv
}

// ResponsibilityReminder is the lightest-touch nudge in the catalog.
func ResponsibilityReminder(userID string, now time.Time) *domain.Intervention {
	iv := New(userID, domain.InterventionResponsibility,
		"A friendly reminder",
		"Wagering should be entertainment, never a source of income or an escape. Keep it fun by keeping it small.",
		1, now)
	iv.RecommendedAction = "Keep wagers within your entertainment budget"
	return iv
}

// TherapyInvite recommends professional help.
func TherapyInvite(userID string, now time.Time) *domain.Intervention {
	iv := New(userID, domain.InterventionTherapyInvite,
		"Professional support is available",
		"Your recent pattern suggests talking to a specialist could genuinely help. Reaching out is a sign of strength, and it is confidential.",
		5, now)
	iv.RecommendedAction = "Book a session with a specialist"
	return iv
}

// ForRiskLevel returns the default interventions for a risk level. The
// policy is advisory; callers are free to pick individual constructors.
func ForRiskLevel(u *domain.User, level domain.RiskLevel, now time.Time) []*domain.Intervention {
	switch level {
	case domain.RiskHigh:
		ivs := []*domain.Intervention{
			MandatoryPause(u.ID, 24*time.Hour, now),
			TherapyInvite(u.ID, now),
		}
		if u.AcceptsSupport {
			ivs = append(ivs, SupportContact(u.ID, now))
		}
		return ivs
	case domain.RiskMedium:
		return []*domain.Intervention{
			WagerLimit(u.ID, u.AmountWageredToday/2, now),
			InvestmentSimulation(u.ID, u.AmountWageredToday, now),
		}
	default:
		return []*domain.Intervention{
			ResponsibilityReminder(u.ID, now),
			RiskEducation(u.ID, now),
		}
	}
}
