package domain

import (
	"time"
)

// BehaviorKind names a recognized risky wagering pattern.
type BehaviorKind string

const (
	BehaviorFrequentWagering   BehaviorKind = "FREQUENT_WAGERING"
	BehaviorHighAmounts        BehaviorKind = "HIGH_AMOUNTS"
	BehaviorConsecutiveDays    BehaviorKind = "CONSECUTIVE_DAYS"
	BehaviorNocturnalWagering  BehaviorKind = "NOCTURNAL_WAGERING"
	BehaviorRecurrentLosses    BehaviorKind = "RECURRENT_LOSSES"
	BehaviorLossChasing        BehaviorKind = "LOSS_CHASING"
	BehaviorEmotionalRebetting BehaviorKind = "EMOTIONAL_REBETTING"

	// Cataloged kinds with no automated detector. They can be recorded by
	// operators or emitted by custom screen rules.
	BehaviorNeglectedDuties   BehaviorKind = "NEGLECTED_DUTIES"
	BehaviorConcealedActivity BehaviorKind = "CONCEALED_ACTIVITY"
	BehaviorBorrowedFunds     BehaviorKind = "BORROWED_FUNDS"
)

// BehaviorKinds lists every cataloged kind.
func BehaviorKinds() []BehaviorKind {
	return []BehaviorKind{
		BehaviorFrequentWagering,
		BehaviorHighAmounts,
		BehaviorConsecutiveDays,
		BehaviorNocturnalWagering,
		BehaviorRecurrentLosses,
		BehaviorLossChasing,
		BehaviorEmotionalRebetting,
		BehaviorNeglectedDuties,
		BehaviorConcealedActivity,
		BehaviorBorrowedFunds,
	}
}

// DetectedBehavior is one pattern-detector (or screen-rule) hit.
// Records are append-only; operators may mark them notified or acted on,
// but they are never auto-deleted.
type DetectedBehavior struct {
	ID                string       `json:"id"`
	UserID            string       `json:"userId"`
	Kind              BehaviorKind `json:"kind"`
	Description       string       `json:"description"`
	Severity          int          `json:"severity"` // 1..10
	DetectedAt        time.Time    `json:"detectedAt"`
	Notified          bool         `json:"notified"`
	RecommendedAction string       `json:"recommendedAction,omitempty"`
	ActionTaken       bool         `json:"actionTaken"`
}

// SeverityLabel maps the 1..10 severity to an operator-facing label.
func (b *DetectedBehavior) SeverityLabel() string {
	switch {
	case b.Severity >= 8:
		return "Critical - immediate action required"
	case b.Severity >= 6:
		return "High - intervention recommended"
	case b.Severity >= 4:
		return "Medium - monitoring required"
	case b.Severity >= 2:
		return "Low - preventive attention"
	default:
		return "Minimal - observation"
	}
}
