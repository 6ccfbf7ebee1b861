package domain

import (
	"time"
)

// RiskLevel classifies a user's behavioral risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Rank returns the ordinal position of a level, Low first.
// Used to compare levels and to detect escalation.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// Describe returns the human-readable description for a level.
func (l RiskLevel) Describe() string {
	switch l {
	case RiskHigh:
		return "High risk - professional help recommended"
	case RiskMedium:
		return "Medium risk - attention needed"
	case RiskLow:
		return "Low risk - controlled behavior"
	default:
		return "Not evaluated"
	}
}

// User is a monitored account with its behavioral risk profile.
// The risk fields are recomputed as a whole, never patched incrementally,
// so RiskLevel always agrees with RiskScore.
type User struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Balance float64 `json:"balance"`
	Active  bool    `json:"active"`

	// Risk profile
	RiskScore       int       `json:"riskScore"`
	RiskLevel       RiskLevel `json:"riskLevel"`
	LastEvaluatedAt time.Time `json:"lastEvaluatedAt"`

	// Rolling counters, derived from the wager ledger
	BetsToday              int        `json:"betsToday"`
	AmountWageredToday     float64    `json:"amountWageredToday"`
	ConsecutiveBettingDays int        `json:"consecutiveBettingDays"`
	LastBetAt              *time.Time `json:"lastBetAt,omitempty"`

	// Contact preferences
	ReceiveAlerts  bool `json:"receiveAlerts"`
	AcceptsSupport bool `json:"acceptsSupport"`

	CreatedAt time.Time `json:"createdAt"`
}

// AtRisk reports whether the user currently needs attention.
func (u *User) AtRisk() bool {
	return u.RiskLevel == RiskHigh || u.RiskLevel == RiskMedium
}

// Snapshot extracts the scoring inputs from the profile.
func (u *User) Snapshot() RiskSnapshot {
	return RiskSnapshot{
		Balance:                u.Balance,
		BetsToday:              u.BetsToday,
		AmountWageredToday:     u.AmountWageredToday,
		ConsecutiveBettingDays: u.ConsecutiveBettingDays,
		LastBetAt:              u.LastBetAt,
	}
}

// RiskSnapshot is the input to the scoring engine: the rolling counters
// of one user at a point in time. Scoring never reads anything else.
type RiskSnapshot struct {
	Balance                float64    `json:"balance"`
	BetsToday              int        `json:"betsToday"`
	AmountWageredToday     float64    `json:"amountWageredToday"`
	ConsecutiveBettingDays int        `json:"consecutiveBettingDays"`
	LastBetAt              *time.Time `json:"lastBetAt,omitempty"`
}

// UserRequest is the API payload for creating a user.
type UserRequest struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	InitialBalance float64 `json:"initialBalance"`
}
