// Package assess orchestrates a full risk assessment: refresh the
// rolling counters, run the pattern detectors and screen rules,
// recompute the score, persist the results, and create interventions
// when the level escalates.
package assess

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-wellness/kestrel/internal/detect"
	"github.com/opensource-wellness/kestrel/internal/domain"
	"github.com/opensource-wellness/kestrel/internal/intervene"
	"github.com/opensource-wellness/kestrel/internal/metrics"
	"github.com/opensource-wellness/kestrel/internal/risk"
	"github.com/opensource-wellness/kestrel/internal/rolling"
)

// historyHorizon bounds how much wager history the detectors see.
const historyHorizon = 90 * 24 * time.Hour

// Screener is the screen rule surface the processor needs.
type Screener interface {
	Screen(ctx context.Context, u *domain.User, now time.Time) ([]*domain.DetectedBehavior, error)
}

// Processor runs assessments.
type Processor struct {
	repo     domain.Repository
	counters *rolling.Service
	screener Screener
	cache    domain.Cache
	bus      domain.EventBus
	log      *slog.Logger
}

// NewProcessor creates an assessment processor. Screener, cache and bus
// are optional.
func NewProcessor(repo domain.Repository, counters *rolling.Service, screener Screener, cache domain.Cache, bus domain.EventBus, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		repo:     repo,
		counters: counters,
		screener: screener,
		cache:    cache,
		bus:      bus,
		log:      log,
	}
}

// Assessment is the result of one assessment run.
type Assessment struct {
	UserID        string                     `json:"userId"`
	Score         int                        `json:"score"`
	Level         domain.RiskLevel           `json:"level"`
	PreviousLevel domain.RiskLevel           `json:"previousLevel"`
	Escalated     bool                       `json:"escalated"`
	Behaviors     []*domain.DetectedBehavior `json:"behaviors"`
	Interventions []*domain.Intervention     `json:"interventions"`
	EvaluatedAt   time.Time                  `json:"evaluatedAt"`
	ProcessMs     int64                      `json:"processMs"`
}

// Assess runs the full pipeline for one user as of now.
func (p *Processor) Assess(ctx context.Context, userID string, now time.Time) (*Assessment, error) {
	start := time.Now()

	u, err := p.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := p.counters.Refresh(ctx, u, now); err != nil {
		return nil, fmt.Errorf("refresh counters: %w", err)
	}

	history, err := p.repo.GetWagersByUser(ctx, userID, now.Add(-historyHorizon))
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	previous := u.RiskLevel
	score, level := risk.Recompute(u, now)

	behaviors := detect.Detect(u, history, now)
	if p.screener != nil {
		hits, err := p.screener.Screen(ctx, u, now)
		if err != nil {
			return nil, fmt.Errorf("screen rules: %w", err)
		}
		behaviors = append(behaviors, hits...)
	}

	if err := p.repo.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	for _, b := range behaviors {
		if err := p.repo.SaveBehavior(ctx, b); err != nil {
			return nil, fmt.Errorf("save behavior: %w", err)
		}
		metrics.BehaviorsDetected.WithLabelValues(string(b.Kind)).Inc()
		p.publish(ctx, domain.TopicBehaviorDetected, b)
	}

	a := &Assessment{
		UserID:        u.ID,
		Score:         score,
		Level:         level,
		PreviousLevel: previous,
		Escalated:     level.Rank() > previous.Rank(),
		Behaviors:     behaviors,
		EvaluatedAt:   u.LastEvaluatedAt,
	}

	if a.Escalated {
		metrics.RiskEscalations.Inc()
		ivs := intervene.ForRiskLevel(u, level, now)
		for _, iv := range ivs {
			if err := p.repo.SaveIntervention(ctx, iv); err != nil {
				return nil, fmt.Errorf("save intervention: %w", err)
			}
			metrics.InterventionsCreated.WithLabelValues(string(iv.Kind)).Inc()
			p.publish(ctx, domain.TopicInterventionCreated, iv)
		}
		a.Interventions = ivs
		p.publish(ctx, domain.TopicRiskEscalated, a)
		if level == domain.RiskHigh {
			p.publish(ctx, domain.TopicAlert, a)
		}
	}

	if p.cache != nil {
		if err := p.cache.SetProfile(ctx, u.ID, rolling.Snapshot(u), 5*time.Minute); err != nil {
			p.log.Debug("profile cache write failed", "user_id", u.ID, "error", err)
		}
	}

	a.ProcessMs = time.Since(start).Milliseconds()
	metrics.AssessmentsTotal.WithLabelValues(string(level)).Inc()
	metrics.AssessmentDuration.Observe(time.Since(start).Seconds())

	p.log.Info("assessment complete",
		"user_id", u.ID,
		"score", score,
		"level", level,
		"behaviors", len(behaviors),
		"escalated", a.Escalated,
		"process_ms", a.ProcessMs)

	return a, nil
}

// Sweep assesses every at-risk user. Used by the background worker.
func (p *Processor) Sweep(ctx context.Context, now time.Time) (int, error) {
	users, err := p.repo.ListUsersAtRisk(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users at risk: %w", err)
	}

	assessed := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return assessed, ctx.Err()
		}
		if _, err := p.Assess(ctx, u.ID, now); err != nil {
			p.log.Warn("sweep assessment failed", "user_id", u.ID, "error", err)
			continue
		}
		assessed++
	}
	return assessed, nil
}

func (p *Processor) publish(ctx context.Context, topic string, v any) {
	if p.bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := p.bus.Publish(ctx, topic, payload); err != nil {
		p.log.Warn("failed to publish event", "topic", topic, "error", err)
	}
}
