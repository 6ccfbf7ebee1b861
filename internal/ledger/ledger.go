// Package ledger owns the balance-affecting operations: placing and
// settling wagers, deposits and withdrawals. Every operation appends an
// immutable ledger entry recording the balance before and after.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-wellness/kestrel/internal/domain"
	"github.com/opensource-wellness/kestrel/internal/repository"
	"github.com/opensource-wellness/kestrel/internal/rolling"
)

// burstWarnCount is the hourly wager count that triggers a burst
// warning at placement time.
const burstWarnCount = 10

// Service executes ledger operations against the repository and
// publishes wager lifecycle events.
type Service struct {
	repo     domain.Repository
	bus      domain.EventBus
	counters *rolling.Service
	log      *slog.Logger
}

// NewService creates a ledger service. The bus and counters are
// optional; without them no events are published and no burst warnings
// are raised.
func NewService(repo domain.Repository, bus domain.EventBus, counters *rolling.Service, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, bus: bus, counters: counters, log: log}
}

// WagerEvent is the payload published on wager placed/settled topics.
type WagerEvent struct {
	WagerID string  `json:"wagerId"`
	UserID  string  `json:"userId"`
	Stake   float64 `json:"stake"`
	Status  string  `json:"status"`
	Payout  float64 `json:"payout,omitempty"`
}

// PlaceWager validates the request, debits the stake, records the wager
// and its ledger entry, and publishes a wager-placed event.
func (s *Service) PlaceWager(ctx context.Context, req domain.WagerRequest, now time.Time) (*domain.Wager, error) {
	if req.Stake <= 0 {
		return nil, fmt.Errorf("%w: stake must be positive", repository.ErrInvalidInput)
	}
	if req.Multiplier <= 0 {
		return nil, fmt.Errorf("%w: multiplier must be positive", repository.ErrInvalidInput)
	}
	if req.Category == "" {
		return nil, fmt.Errorf("%w: category is required", repository.ErrInvalidInput)
	}

	u, err := s.repo.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.Active {
		return nil, fmt.Errorf("%w: user %s is not active", repository.ErrInvalidInput, u.ID)
	}
	if u.Balance < req.Stake {
		return nil, fmt.Errorf("%w: insufficient balance %.2f for stake %.2f", repository.ErrInvalidInput, u.Balance, req.Stake)
	}

	w := &domain.Wager{
		ID:         uuid.New().String(),
		UserID:     u.ID,
		Category:   req.Category,
		Stake:      req.Stake,
		Multiplier: req.Multiplier,
		Status:     domain.WagerPending,
		PlacedAt:   now.UTC(),
	}

	prior := u.Balance
	u.Balance -= req.Stake

	if err := s.repo.SaveWager(ctx, w); err != nil {
		return nil, fmt.Errorf("save wager: %w", err)
	}
	if err := s.repo.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	if err := s.appendEntry(ctx, u.ID, domain.OpWager, req.Stake,
		fmt.Sprintf("Wager placed on %s", req.Category), prior, u.Balance, now); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.TopicWagerPlaced, WagerEvent{
		WagerID: w.ID, UserID: u.ID, Stake: w.Stake, Status: w.Status,
	})

	// Each placement advances the hourly window counter; a burst shows
	// up here long before the next full assessment.
	if s.counters != nil {
		if n, err := s.counters.CountInWindow(ctx, u.ID, time.Hour); err == nil && n >= burstWarnCount {
			s.log.Warn("wager burst",
				"user_id", u.ID,
				"wagers_last_hour", n)
		}
	}
	return w, nil
}

// SettleWager finalizes a pending wager. A win credits stake times
// multiplier; a loss only records the ledger entry, the stake having
// been debited at placement. Settling twice fails without mutation.
func (s *Service) SettleWager(ctx context.Context, wagerID string, won bool, now time.Time) (*domain.Wager, error) {
	w, err := s.repo.GetWager(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("load wager: %w", err)
	}

	if err := w.Finalize(won, now); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUser(ctx, w.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	prior := u.Balance
	if won {
		u.Balance += *w.Payout
	}

	if err := s.repo.SaveWager(ctx, w); err != nil {
		return nil, fmt.Errorf("save wager: %w", err)
	}
	if err := s.repo.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	if won {
		err = s.appendEntry(ctx, u.ID, domain.OpWin, *w.Payout,
			fmt.Sprintf("Wager %s won", w.ID), prior, u.Balance, now)
	} else {
		err = s.appendEntry(ctx, u.ID, domain.OpLoss, w.Stake,
			fmt.Sprintf("Wager %s lost", w.ID), prior, u.Balance, now)
	}
	if err != nil {
		return nil, err
	}

	payout := 0.0
	if w.Payout != nil {
		payout = *w.Payout
	}
	s.publish(ctx, domain.TopicWagerSettled, WagerEvent{
		WagerID: w.ID, UserID: u.ID, Stake: w.Stake, Status: w.Status, Payout: payout,
	})
	return w, nil
}

// Deposit credits the user's balance.
func (s *Service) Deposit(ctx context.Context, userID string, amount float64, now time.Time) (*domain.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: deposit amount must be positive", repository.ErrInvalidInput)
	}

	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	prior := u.Balance
	u.Balance += amount

	if err := s.repo.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	if err := s.appendEntry(ctx, u.ID, domain.OpDeposit, amount, "Deposit", prior, u.Balance, now); err != nil {
		return nil, err
	}
	return u, nil
}

// Withdraw debits the user's balance; the balance never goes negative.
func (s *Service) Withdraw(ctx context.Context, userID string, amount float64, now time.Time) (*domain.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: withdrawal amount must be positive", repository.ErrInvalidInput)
	}

	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u.Balance < amount {
		return nil, fmt.Errorf("%w: insufficient balance %.2f for withdrawal %.2f", repository.ErrInvalidInput, u.Balance, amount)
	}

	prior := u.Balance
	u.Balance -= amount

	if err := s.repo.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	if err := s.appendEntry(ctx, u.ID, domain.OpWithdraw, amount, "Withdrawal", prior, u.Balance, now); err != nil {
		return nil, err
	}
	return u, nil
}

// History returns the user's ledger entries since a given time.
func (s *Service) History(ctx context.Context, userID string, since time.Time) ([]*domain.LedgerEntry, error) {
	return s.repo.GetLedgerByUser(ctx, userID, since)
}

func (s *Service) appendEntry(ctx context.Context, userID, op string, amount float64, description string, prior, after float64, now time.Time) error {
	e := &domain.LedgerEntry{
		ID:           uuid.New().String(),
		UserID:       userID,
		Operation:    op,
		Amount:       amount,
		Description:  description,
		BalancePrior: prior,
		BalanceAfter: after,
		OccurredAt:   now.UTC(),
	}
	if err := s.repo.SaveLedgerEntry(ctx, e); err != nil {
		return fmt.Errorf("save ledger entry: %w", err)
	}
	return nil
}

// publish sends an event, best effort. Ledger operations never fail on
// bus trouble; the sweep re-assesses users regardless.
func (s *Service) publish(ctx context.Context, topic string, event WagerEvent) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, topic, payload); err != nil {
		s.log.Warn("failed to publish wager event",
			"topic", topic,
			"wager_id", event.WagerID,
			"error", err)
	}
}
