package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-wellness/kestrel/internal/activity"
	"github.com/opensource-wellness/kestrel/internal/assess"
	"github.com/opensource-wellness/kestrel/internal/domain"
	"github.com/opensource-wellness/kestrel/internal/ledger"
	"github.com/opensource-wellness/kestrel/internal/metrics"
	"github.com/opensource-wellness/kestrel/internal/report"
	"github.com/opensource-wellness/kestrel/internal/repository"
	"github.com/opensource-wellness/kestrel/internal/rolling"
	"github.com/opensource-wellness/kestrel/internal/screening"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	ledger    *ledger.Service
	counters  *rolling.Service
	processor *assess.Processor
	reports   *report.Generator
	engine    *screening.Engine
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, ledgerSvc *ledger.Service, counters *rolling.Service, processor *assess.Processor, reports *report.Generator, engine *screening.Engine, version string) *Handler {
	return &Handler{
		repo:      repo,
		cache:     cache,
		ledger:    ledgerSvc,
		counters:  counters,
		processor: processor,
		reports:   reports,
		engine:    engine,
		version:   version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// CreateUser handles POST /users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name is required",
		})
		return
	}
	if req.InitialBalance < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "initialBalance cannot be negative",
		})
		return
	}

	u := &domain.User{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Email:         req.Email,
		Balance:       req.InitialBalance,
		Active:        true,
		RiskLevel:     domain.RiskLow,
		ReceiveAlerts: true,
		CreatedAt:     time.Now().UTC(),
	}

	if err := h.repo.SaveUser(r.Context(), u); err != nil {
		slog.Error("failed to save user", "error", err)
		writeError(w, err)
		return
	}

	slog.Info("user created", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, u)
}

// GetUser handles GET /users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	u, err := h.repo.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// profileTTL bounds how long a served snapshot may lag behind the
// wager history.
const profileTTL = 5 * time.Minute

// GetProfile handles GET /users/{id}/profile. The rolling snapshot is
// served from the cache when present; a miss derives it from the wager
// history and primes the cache.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")

	if h.cache != nil {
		if p, err := h.cache.GetProfile(ctx, userID); err == nil && p != nil {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}

	u, err := h.repo.GetUser(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.counters.Refresh(ctx, u, time.Now().UTC()); err != nil {
		writeError(w, err)
		return
	}

	p := rolling.Snapshot(u)
	if h.cache != nil {
		if err := h.cache.SetProfile(ctx, userID, p, profileTTL); err != nil {
			slog.Debug("profile cache write failed", "user_id", userID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, p)
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// ListUsersAtRisk handles GET /users/at-risk.
func (h *Handler) ListUsersAtRisk(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsersAtRisk(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// AmountRequest is the body for deposits and withdrawals.
type AmountRequest struct {
	Amount float64 `json:"amount"`
}

// Deposit handles POST /users/{id}/deposit.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	u, err := h.ledger.Deposit(r.Context(), userID, req.Amount, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Withdraw handles POST /users/{id}/withdraw.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	u, err := h.ledger.Withdraw(r.Context(), userID, req.Amount, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// GetLedger handles GET /users/{id}/ledger.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	entries, err := h.ledger.History(r.Context(), userID, sinceParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// PlaceWager handles POST /wagers.
func (h *Handler) PlaceWager(w http.ResponseWriter, r *http.Request) {
	var req domain.WagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "userId is required",
		})
		return
	}

	wager, err := h.ledger.PlaceWager(r.Context(), req, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.WagersPlaced.Inc()
	writeJSON(w, http.StatusCreated, wager)
}

// SettleRequest is the body for POST /wagers/{id}/settle.
type SettleRequest struct {
	Won bool `json:"won"`
}

// SettleWager handles POST /wagers/{id}/settle.
func (h *Handler) SettleWager(w http.ResponseWriter, r *http.Request) {
	wagerID := chi.URLParam(r, "id")

	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	wager, err := h.ledger.SettleWager(r.Context(), wagerID, req.Won, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.WagersSettled.WithLabelValues(wager.Status).Inc()
	writeJSON(w, http.StatusOK, wager)
}

// GetWager handles GET /wagers/{id}.
func (h *Handler) GetWager(w http.ResponseWriter, r *http.Request) {
	wagerID := chi.URLParam(r, "id")

	wager, err := h.repo.GetWager(r.Context(), wagerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wager)
}

// ListUserWagers handles GET /users/{id}/wagers.
func (h *Handler) ListUserWagers(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	wagers, err := h.repo.GetWagersByUser(r.Context(), userID, sinceParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"wagers": wagers,
		"count":  len(wagers),
	})
}

// Assess handles POST /users/{id}/assess: a full on-demand assessment.
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	a, err := h.processor.Assess(r.Context(), userID, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ListBehaviors handles GET /users/{id}/behaviors.
func (h *Handler) ListBehaviors(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	behaviors, err := h.repo.GetBehaviorsByUser(r.Context(), userID, sinceParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"behaviors": behaviors,
		"count":     len(behaviors),
	})
}

// MarkBehaviorNotified handles POST /behaviors/{id}/notify.
func (h *Handler) MarkBehaviorNotified(w http.ResponseWriter, r *http.Request) {
	h.updateBehavior(w, r, func(b *domain.DetectedBehavior) { b.Notified = true })
}

// MarkBehaviorActioned handles POST /behaviors/{id}/action.
func (h *Handler) MarkBehaviorActioned(w http.ResponseWriter, r *http.Request) {
	h.updateBehavior(w, r, func(b *domain.DetectedBehavior) { b.ActionTaken = true })
}

func (h *Handler) updateBehavior(w http.ResponseWriter, r *http.Request, mutate func(*domain.DetectedBehavior)) {
	behaviorID := chi.URLParam(r, "id")

	b, err := h.repo.GetBehavior(r.Context(), behaviorID)
	if err != nil {
		writeError(w, err)
		return
	}

	mutate(b)
	if err := h.repo.SaveBehavior(r.Context(), b); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ReportRequest is the body for POST /users/{id}/reports.
type ReportRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// GenerateReport handles POST /users/{id}/reports.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	rep, err := h.reports.Generate(r.Context(), userID, req.Start, req.End)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

// MonthlyReportRequest is the body for POST /users/{id}/reports/monthly.
type MonthlyReportRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// GenerateMonthlyReport handles POST /users/{id}/reports/monthly.
func (h *Handler) GenerateMonthlyReport(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req MonthlyReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Month < 1 || req.Month > 12 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "month must be between 1 and 12",
		})
		return
	}

	rep, err := h.reports.Monthly(r.Context(), userID, req.Year, time.Month(req.Month))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

// GenerateWeeklyReport handles POST /users/{id}/reports/weekly.
func (h *Handler) GenerateWeeklyReport(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	rep, err := h.reports.Weekly(r.Context(), userID, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

// GetReport handles GET /reports/{id}.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "id")

	rep, err := h.repo.GetReport(r.Context(), reportID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ListUserReports handles GET /users/{id}/reports.
func (h *Handler) ListUserReports(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	reps, err := h.repo.GetReportsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reports": reps,
		"count":   len(reps),
	})
}

// ListInterventions handles GET /users/{id}/interventions.
func (h *Handler) ListInterventions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	ivs, err := h.repo.GetInterventionsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"interventions": ivs,
		"count":         len(ivs),
	})
}

// ListPendingInterventions handles GET /users/{id}/interventions/pending.
func (h *Handler) ListPendingInterventions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	ivs, err := h.repo.GetPendingInterventions(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"interventions": ivs,
		"count":         len(ivs),
	})
}

// ListUrgentInterventions handles GET /interventions/urgent. It returns
// unviewed high-priority interventions across all users.
func (h *Handler) ListUrgentInterventions(w http.ResponseWriter, r *http.Request) {
	ivs, err := h.repo.GetUrgentInterventions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"interventions": ivs,
		"count":         len(ivs),
	})
}

// ViewIntervention handles POST /interventions/{id}/view.
func (h *Handler) ViewIntervention(w http.ResponseWriter, r *http.Request) {
	h.updateIntervention(w, r, func(iv *domain.Intervention, now time.Time) {
		iv.MarkViewed(now)
	})
}

// AcceptIntervention handles POST /interventions/{id}/accept.
// Accepting does not require a prior view.
func (h *Handler) AcceptIntervention(w http.ResponseWriter, r *http.Request) {
	h.updateIntervention(w, r, func(iv *domain.Intervention, now time.Time) {
		iv.MarkAccepted(now)
	})
}

func (h *Handler) updateIntervention(w http.ResponseWriter, r *http.Request, mutate func(*domain.Intervention, time.Time)) {
	interventionID := chi.URLParam(r, "id")

	iv, err := h.repo.GetIntervention(r.Context(), interventionID)
	if err != nil {
		writeError(w, err)
		return
	}

	mutate(iv, time.Now().UTC())
	if err := h.repo.SaveIntervention(r.Context(), iv); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// ListActivities handles GET /activities with optional filters.
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	activities := activity.All()

	if cat := r.URL.Query().Get("category"); cat != "" {
		activities = activity.ByCategory(domain.ActivityCategory(cat))
	}
	if r.URL.Query().Get("free") == "true" {
		activities = activity.Free()
	}
	if maxMin := r.URL.Query().Get("maxMinutes"); maxMin != "" {
		minutes, err := strconv.Atoi(maxMin)
		if err != nil || minutes <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "maxMinutes must be a positive integer",
			})
			return
		}
		activities = activity.Shorter(minutes)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"activities": activities,
		"count":      len(activities),
	})
}

// SuggestActivity handles GET /users/{id}/activities/suggestion.
func (h *Handler) SuggestActivity(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	u, err := h.repo.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	writeJSON(w, http.StatusOK, activity.Suggest(u, rng))
}

// ListRules returns all rules loaded in the screening engine.
// Rules are loaded from the database at startup and can be reloaded via
// POST /rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// GetRule retrieves a rule by ID from the loaded engine rules.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating a screen rule.
type CreateRuleRequest struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Expression  string              `json:"expression"`
	Kind        domain.BehaviorKind `json:"kind"`
	Severity    int                 `json:"severity"`
	Enabled     bool                `json:"enabled"`
}

// CreateRule validates a screen rule, persists it, and activates it
// when enabled. Disabled rules wait in the database until enabled and
// reloaded.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	rule := &domain.ScreenRule{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Kind:        req.Kind,
		Severity:    req.Severity,
		Enabled:     req.Enabled,
	}

	// Validate the CEL expression without touching the live engine
	if err := h.engine.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule expression: " + err.Error(),
		})
		return
	}

	if err := h.repo.SaveScreenRule(ctx, rule); err != nil {
		slog.Error("failed to save screen rule", "id", rule.ID, "error", err)
		writeError(w, err)
		return
	}

	message := "Rule created and active."
	if rule.Enabled {
		if err := h.engine.LoadRule(rule); err != nil {
			slog.Error("failed to activate screen rule", "id", rule.ID, "error", err)
			message = "Rule created. Call POST /rules/reload to apply changes."
		}
	} else {
		message = "Rule created disabled. Enable it and call POST /rules/reload to apply."
	}

	slog.Info("screen rule created", "id", rule.ID, "name", rule.Name, "enabled", rule.Enabled)
	writeJSON(w, http.StatusCreated, map[string]any{
		"rule":    rule,
		"message": message,
	})
}

// DeleteRule disables a screen rule and reloads the engine.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ruleID := chi.URLParam(r, "id")

	if err := h.repo.DeleteScreenRule(ctx, ruleID); err != nil {
		writeError(w, err)
		return
	}

	// Auto-reload engine after delete
	dbRules, err := h.repo.ListScreenRules(ctx)
	if err != nil {
		slog.Error("failed to reload rules after delete", "error", err)
	} else if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload engine after delete", "error", err)
	}

	slog.Info("screen rule deleted", "id", ruleID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Rule deleted and engine reloaded.",
	})
}

// ReloadRules reloads all screen rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbRules, err := h.repo.ListScreenRules(ctx)
	if err != nil {
		slog.Error("failed to list screen rules from database", "error", err)
		writeError(w, err)
		return
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("screen rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// sinceParam parses the optional ?since query parameter (RFC 3339).
// Absent or malformed values default to the zero time, meaning all history.
func sinceParam(r *http.Request) time.Time {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrWagerSettled):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, repository.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
