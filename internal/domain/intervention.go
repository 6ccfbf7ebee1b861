package domain

import (
	"time"
)

// InterventionKind names a supportive response template.
type InterventionKind string

const (
	InterventionBehaviorAlert        InterventionKind = "BEHAVIOR_ALERT"
	InterventionActivitySuggestion   InterventionKind = "ACTIVITY_SUGGESTION"
	InterventionWagerLimit           InterventionKind = "WAGER_LIMIT"
	InterventionMandatoryPause       InterventionKind = "MANDATORY_PAUSE"
	InterventionSupportContact       InterventionKind = "SUPPORT_CONTACT"
	InterventionRiskEducation        InterventionKind = "RISK_EDUCATION"
	InterventionInvestmentSimulation InterventionKind = "INVESTMENT_SIMULATION"
	InterventionAwarenessStatistics  InterventionKind = "AWARENESS_STATISTICS"
	InterventionResponsibility       InterventionKind = "RESPONSIBILITY_REMINDER"
	InterventionTherapyInvite        InterventionKind = "THERAPY_INVITE"
)

// Intervention is a supportive message offered to a user.
// Lifecycle: created, then viewed, then optionally accepted. Both
// transitions are idempotent; their timestamps are set exactly once.
// Accepting without a prior view is allowed.
type Intervention struct {
	ID                string           `json:"id"`
	UserID            string           `json:"userId"`
	Kind              InterventionKind `json:"kind"`
	Title             string           `json:"title"`
	Message           string           `json:"message"`
	RecommendedAction string           `json:"recommendedAction,omitempty"`
	Priority          int              `json:"priority"` // 1..5
	CreatedAt         time.Time        `json:"createdAt"`

	Viewed     bool       `json:"viewed"`
	ViewedAt   *time.Time `json:"viewedAt,omitempty"`
	Accepted   bool       `json:"accepted"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
}

// MarkViewed records that the user has seen the intervention.
// Repeat calls leave the original timestamp untouched.
func (i *Intervention) MarkViewed(now time.Time) {
	if i.Viewed {
		return
	}
	i.Viewed = true
	at := now.UTC()
	i.ViewedAt = &at
}

// MarkAccepted records that the user accepted the recommendation.
// Repeat calls leave the original timestamp untouched.
func (i *Intervention) MarkAccepted(now time.Time) {
	if i.Accepted {
		return
	}
	i.Accepted = true
	at := now.UTC()
	i.AcceptedAt = &at
}

// PriorityLabel maps the 1..5 priority to an operator-facing label.
func (i *Intervention) PriorityLabel() string {
	switch i.Priority {
	case 5:
		return "Urgent - immediate action"
	case 4:
		return "High - within hours"
	case 3:
		return "Medium - within a day"
	case 2:
		return "Low - within a week"
	case 1:
		return "Informational - when convenient"
	default:
		return "Undefined"
	}
}
