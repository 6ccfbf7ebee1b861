package domain

import (
	"fmt"
	"time"
)

// Wager status values. A wager is created Pending and makes exactly one
// transition to Won or Lost; after that it is immutable.
const (
	WagerPending = "PENDING"
	WagerWon     = "WON"
	WagerLost    = "LOST"
)

// ErrWagerSettled is returned when finalizing a wager that already left
// the Pending state.
var ErrWagerSettled = fmt.Errorf("wager already settled")

// Wager is a single stake placed by a user.
type Wager struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Category   string     `json:"category"`
	Stake      float64    `json:"stake"`
	Multiplier float64    `json:"multiplier"`
	Status     string     `json:"status"`
	Payout     *float64   `json:"payout,omitempty"`
	PlacedAt   time.Time  `json:"placedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// PotentialPayout is the amount credited if the wager wins.
func (w *Wager) PotentialPayout() float64 {
	return w.Stake * w.Multiplier
}

// Finalize moves a pending wager to its terminal state.
// The transition happens at most once; a second call fails without mutation.
func (w *Wager) Finalize(won bool, now time.Time) error {
	if w.Status != WagerPending {
		return fmt.Errorf("%w: %s is %s", ErrWagerSettled, w.ID, w.Status)
	}
	resolved := now.UTC()
	w.ResolvedAt = &resolved
	if won {
		w.Status = WagerWon
		payout := w.PotentialPayout()
		w.Payout = &payout
	} else {
		w.Status = WagerLost
		zero := 0.0
		w.Payout = &zero
	}
	return nil
}

// WagerRequest is the API payload for placing a wager.
type WagerRequest struct {
	UserID     string  `json:"userId"`
	Category   string  `json:"category"`
	Stake      float64 `json:"stake"`
	Multiplier float64 `json:"multiplier"`
}

// Ledger entry operation kinds.
const (
	OpDeposit  = "DEPOSIT"
	OpWithdraw = "WITHDRAW"
	OpWager    = "WAGER"
	OpWin      = "WIN"
	OpLoss     = "LOSS"
)

// LedgerEntry records one balance-affecting operation.
type LedgerEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Operation    string    `json:"operation"`
	Amount       float64   `json:"amount"`
	Description  string    `json:"description"`
	BalancePrior float64   `json:"balancePrior"`
	BalanceAfter float64   `json:"balanceAfter"`
	OccurredAt   time.Time `json:"occurredAt"`
}
