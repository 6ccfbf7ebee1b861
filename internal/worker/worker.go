// Package worker drives assessments from the event bus. Every placed or
// settled wager triggers a fresh assessment of the bettor, and an
// optional sweep ticker re-assesses all at-risk users.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-wellness/kestrel/internal/assess"
	"github.com/opensource-wellness/kestrel/internal/domain"
	"github.com/opensource-wellness/kestrel/internal/ledger"
)

// Worker processes wager events asynchronously from the EventBus.
type Worker struct {
	bus       domain.EventBus
	processor *assess.Processor

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, processor *assess.Processor) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       bus,
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to the wager topics and, when sweepInterval is
// positive, starts the periodic at-risk sweep.
func (w *Worker) Start(cfg domain.MonitorConfig) error {
	for _, topic := range []string{domain.TopicWagerPlaced, domain.TopicWagerSettled} {
		sub, err := w.bus.Subscribe(w.ctx, topic, w.handleWagerEvent)
		if err != nil {
			return err
		}
		w.subscriptions = append(w.subscriptions, sub)
	}

	if cfg.SweepInterval > 0 {
		w.wg.Add(1)
		go w.sweepLoop(time.Duration(cfg.SweepInterval) * time.Second)
	}

	slog.Info("worker started",
		"subscriptions", len(w.subscriptions),
		"sweep_interval_s", cfg.SweepInterval,
	)

	return nil
}

// handleWagerEvent re-assesses the bettor behind a wager event.
func (w *Worker) handleWagerEvent(ctx context.Context, msg *domain.Message) error {
	var event ledger.WagerEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse wager event",
			"message_id", msg.ID,
			"topic", msg.Topic,
			"error", err,
		)
		return err
	}

	if event.UserID == "" {
		slog.Warn("wager event without user", "message_id", msg.ID)
		return nil
	}

	a, err := w.processor.Assess(ctx, event.UserID, time.Now().UTC())
	if err != nil {
		slog.Error("assessment failed",
			"user_id", event.UserID,
			"wager_id", event.WagerID,
			"error", err,
		)
		return err
	}

	slog.Debug("wager event assessed",
		"user_id", event.UserID,
		"wager_id", event.WagerID,
		"topic", msg.Topic,
		"score", a.Score,
		"level", a.Level,
	)

	return nil
}

// sweepLoop periodically re-assesses every at-risk user.
func (w *Worker) sweepLoop(interval time.Duration) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			n, err := w.processor.Sweep(w.ctx, time.Now().UTC())
			if err != nil {
				slog.Error("sweep failed", "error", err)
				continue
			}
			slog.Info("sweep complete", "assessed", n)
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
