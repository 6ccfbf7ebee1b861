package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opensource-wellness/kestrel/internal/cache"
	"github.com/opensource-wellness/kestrel/internal/domain"
	"github.com/opensource-wellness/kestrel/internal/repository"
	"github.com/opensource-wellness/kestrel/internal/rolling"
)

var now = time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

type memRepo struct {
	domain.Repository
	users   map[string]*domain.User
	wagers  map[string]*domain.Wager
	entries []*domain.LedgerEntry
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:  make(map[string]*domain.User),
		wagers: make(map[string]*domain.Wager),
	}
}

func (m *memRepo) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) SaveUser(ctx context.Context, u *domain.User) error {
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepo) GetWager(ctx context.Context, id string) (*domain.Wager, error) {
	w, ok := m.wagers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memRepo) SaveWager(ctx context.Context, w *domain.Wager) error {
	cp := *w
	m.wagers[w.ID] = &cp
	return nil
}

func (m *memRepo) SaveLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memRepo) GetLedgerByUser(ctx context.Context, userID string, since time.Time) ([]*domain.LedgerEntry, error) {
	var out []*domain.LedgerEntry
	for _, e := range m.entries {
		if e.UserID == userID && !e.OccurredAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func service(repo *memRepo) *Service {
	return NewService(repo, nil, nil, nil)
}

func seedUser(repo *memRepo, balance float64) {
	repo.users["u1"] = &domain.User{ID: "u1", Name: "Dana", Balance: balance, Active: true}
}

func TestPlaceWager(t *testing.T) {
	repo := newMemRepo()
	seedUser(repo, 1000)
	svc := service(repo)

	w, err := svc.PlaceWager(context.Background(), domain.WagerRequest{
		UserID: "u1", Category: "sports", Stake: 100, Multiplier: 2,
	}, now)
	if err != nil {
		t.Fatalf("PlaceWager: %v", err)
	}

	if w.Status != domain.WagerPending {
		t.Errorf("status = %s, want PENDING", w.Status)
	}
	if repo.users["u1"].Balance != 900 {
		t.Errorf("balance = %.2f, want 900", repo.users["u1"].Balance)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.Operation != domain.OpWager || e.BalancePrior != 1000 || e.BalanceAfter != 900 {
		t.Errorf("entry: %+v", e)
	}
}

func TestPlaceWagerValidation(t *testing.T) {
	repo := newMemRepo()
	seedUser(repo, 50)
	svc := service(repo)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.WagerRequest
	}{
		{"zero stake", domain.WagerRequest{UserID: "u1", Category: "c", Stake: 0, Multiplier: 2}},
		{"negative stake", domain.WagerRequest{UserID: "u1", Category: "c", Stake: -5, Multiplier: 2}},
		{"zero multiplier", domain.WagerRequest{UserID: "u1", Category: "c", Stake: 10, Multiplier: 0}},
		{"missing category", domain.WagerRequest{UserID: "u1", Stake: 10, Multiplier: 2}},
		{"insufficient balance", domain.WagerRequest{UserID: "u1", Category: "c", Stake: 100, Multiplier: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlaceWager(ctx, tt.req, now)
			if !errors.Is(err, repository.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}

	if repo.users["u1"].Balance != 50 || len(repo.entries) != 0 {
		t.Error("rejected wagers mutated state")
	}

	if _, err := svc.PlaceWager(ctx, domain.WagerRequest{UserID: "ghost", Category: "c", Stake: 10, Multiplier: 2}, now); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPlaceWagerInactiveUser(t *testing.T) {
	repo := newMemRepo()
	repo.users["u1"] = &domain.User{ID: "u1", Balance: 1000, Active: false}
	svc := service(repo)

	_, err := svc.PlaceWager(context.Background(), domain.WagerRequest{
		UserID: "u1", Category: "sports", Stake: 10, Multiplier: 2,
	}, now)
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSettleWagerWin(t *testing.T) {
	repo := newMemRepo()
	seedUser(repo, 1000)
	svc := service(repo)
	ctx := context.Background()

	w, err := svc.PlaceWager(ctx, domain.WagerRequest{UserID: "u1", Category: "sports", Stake: 100, Multiplier: 2.5}, now)
	if err != nil {
		t.Fatalf("PlaceWager: %v", err)
	}

	settled, err := svc.SettleWager(ctx, w.ID, true, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("SettleWager: %v", err)
	}
	if settled.Status != domain.WagerWon || settled.Payout == nil || *settled.Payout != 250 {
		t.Errorf("settled: %+v", settled)
	}
	if repo.users["u1"].Balance != 1150 {
		t.Errorf("balance = %.2f, want 1150", repo.users["u1"].Balance)
	}
	last := repo.entries[len(repo.entries)-1]
	if last.Operation != domain.OpWin || last.Amount != 250 {
		t.Errorf("win entry: %+v", last)
	}
}

func TestSettleWagerLoss(t *testing.T) {
	repo := newMemRepo()
	seedUser(repo, 1000)
	svc := service(repo)
	ctx := context.Background()

	w, _ := svc.PlaceWager(ctx, domain.WagerRequest{UserID: "u1", Category: "sports", Stake: 100, Multiplier: 2}, now)

	settled, err := svc.SettleWager(ctx, w.ID, false, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("SettleWager: %v", err)
	}
	if settled.Status != domain.WagerLost || settled.Payout == nil || *settled.Payout != 0 {
		t.Errorf("settled: %+v", settled)
	}
	// No credit on loss; the stake left at placement.
	if repo.users["u1"].Balance != 900 {
		t.Errorf("balance = %.2f, want 900", repo.users["u1"].Balance)
	}
	last := repo.entries[len(repo.entries)-1]
	if last.Operation != domain.OpLoss || last.BalancePrior != last.BalanceAfter {
		t.Errorf("loss entry: %+v", last)
	}
}

func TestSettleWagerOnlyOnce(t *testing.T) {
	repo := newMemRepo()
	seedUser(repo, 1000)
	svc := service(repo)
	ctx := context.Background()

	w, _ := svc.PlaceWager(ctx, domain.WagerRequest{UserID: "u1", Category: "sports", Stake: 100, Multiplier: 2}, now)
	if _, err := svc.SettleWager(ctx, w.ID, true, now.Add(time.Hour)); err != nil {
		t.Fatalf("first settle: %v", err)
	}

	_, err := svc.SettleWager(ctx, w.ID, true, now.Add(2*time.Hour))
	if !errors.Is(err, domain.ErrWagerSettled) {
		t.Errorf("err = %v, want ErrWagerSettled", err)
	}
	// Second settle must not double-credit.
	if repo.users["u1"].Balance != 1100 {
		t.Errorf("balance = %.2f, want 1100", repo.users["u1"].Balance)
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	repo := newMemRepo()
	seedUser(repo, 100)
	svc := service(repo)
	ctx := context.Background()

	u, err := svc.Deposit(ctx, "u1", 50, now)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if u.Balance != 150 {
		t.Errorf("balance after deposit = %.2f, want 150", u.Balance)
	}

	u, err = svc.Withdraw(ctx, "u1", 120, now)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if u.Balance != 30 {
		t.Errorf("balance after withdrawal = %.2f, want 30", u.Balance)
	}

	if _, err := svc.Withdraw(ctx, "u1", 100, now); !errors.Is(err, repository.ErrInvalidInput) {
		t.Errorf("overdraw err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Deposit(ctx, "u1", -10, now); !errors.Is(err, repository.ErrInvalidInput) {
		t.Errorf("negative deposit err = %v, want ErrInvalidInput", err)
	}

	entries, err := svc.History(ctx, "u1", time.Time{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("entries = %d, want 2", len(entries))
	}
}

func TestPlaceWagerAdvancesWindowCounter(t *testing.T) {
	repo := newMemRepo()
	seedUser(repo, 1000)

	c := cache.NewLRUCache(100)
	defer c.Close()
	counters := rolling.NewService(repo, c)
	svc := NewService(repo, nil, counters, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.PlaceWager(ctx, domain.WagerRequest{
			UserID: "u1", Category: "sports", Stake: 10, Multiplier: 2,
		}, now); err != nil {
			t.Fatalf("place wager %d: %v", i, err)
		}
	}

	// Three placements advanced the hourly counter; this read adds one
	// more increment of its own.
	n, err := counters.CountInWindow(ctx, "u1", time.Hour)
	if err != nil {
		t.Fatalf("CountInWindow failed: %v", err)
	}
	if n != 4 {
		t.Errorf("expected window count 4, got %d", n)
	}
}
