package domain

import (
	"time"
)

// Report summarizes a user's wagering behavior over an explicit window.
// Reports are immutable once generated; regenerating a window produces a
// new report with a new ID.
type Report struct {
	ID     string    `json:"id"`
	UserID string    `json:"userId"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`

	// Aggregates over wagers placed inside [Start, End]
	TotalWagers     int     `json:"totalWagers"`
	TotalStaked     float64 `json:"totalStaked"`
	TotalWon        float64 `json:"totalWon"`
	TotalLost       float64 `json:"totalLost"`
	DaysActive      int     `json:"daysActive"`
	LongestStreak   int     `json:"longestStreak"`
	NocturnalWagers int     `json:"nocturnalWagers"`
	MaxStake        float64 `json:"maxStake"`
	MinStake        float64 `json:"minStake"`
	MeanStake       float64 `json:"meanStake"`

	// Risk at window start (the live profile when generation ran) versus
	// the window-scoped recompute at the window end.
	RiskScoreStart int       `json:"riskScoreStart"`
	RiskScoreEnd   int       `json:"riskScoreEnd"`
	RiskLevelStart RiskLevel `json:"riskLevelStart"`
	RiskLevelEnd   RiskLevel `json:"riskLevelEnd"`

	// Intervention totals for the window
	InterventionsCreated  int `json:"interventionsCreated"`
	InterventionsAccepted int `json:"interventionsAccepted"`

	Narrative       string    `json:"narrative"`
	Recommendations string    `json:"recommendations"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// NetPosition is winnings minus losses over the window.
func (r *Report) NetPosition() float64 {
	return r.TotalWon - r.TotalLost
}

// WinRate is TotalWon over TotalStaked, as a percentage.
// A window with no wagers has a win rate of 0; callers distinguish
// "no activity" from "0%" via TotalWagers.
func (r *Report) WinRate() float64 {
	if r.TotalWagers == 0 || r.TotalStaked == 0 {
		return 0
	}
	return r.TotalWon / r.TotalStaked * 100
}

// AcceptanceRate is the share of window interventions accepted, as a
// percentage. Zero interventions means 0.
func (r *Report) AcceptanceRate() float64 {
	if r.InterventionsCreated == 0 {
		return 0
	}
	return float64(r.InterventionsAccepted) / float64(r.InterventionsCreated) * 100
}

// Improved reports whether the window-end score came in below the
// window-start score.
func (r *Report) Improved() bool {
	return r.RiskScoreEnd < r.RiskScoreStart
}
