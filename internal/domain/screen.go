package domain

// ScreenRule is an operator-defined expression evaluated against a user's
// rolling counters. A matching rule records a DetectedBehavior of the
// configured kind and severity.
//
// Expressions see these variables:
//
//	balance, bets_today, amount_wagered_today, consecutive_days,
//	risk_score, hours_since_last_bet
type ScreenRule struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Expression  string       `json:"expression"`
	Kind        BehaviorKind `json:"kind"`
	Severity    int          `json:"severity"`
	Enabled     bool         `json:"enabled"`
}
