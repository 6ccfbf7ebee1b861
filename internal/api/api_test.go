package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/opensource-wellness/kestrel/internal/assess"
	"github.com/opensource-wellness/kestrel/internal/cache"
	"github.com/opensource-wellness/kestrel/internal/domain"
	"github.com/opensource-wellness/kestrel/internal/ledger"
	"github.com/opensource-wellness/kestrel/internal/report"
	"github.com/opensource-wellness/kestrel/internal/repository"
	"github.com/opensource-wellness/kestrel/internal/rolling"
	"github.com/opensource-wellness/kestrel/internal/screening"
)

// createTestServer wires a server against a temporary SQLite database.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "kestrel.db"),
	})
	if err != nil {
		t.Fatalf("repository.New: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	engine, err := screening.NewEngine(4)
	if err != nil {
		t.Fatalf("screening.NewEngine: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	cacheImpl := cache.NewLRUCache(1000)
	t.Cleanup(func() { cacheImpl.Close() })

	counters := rolling.NewService(repo, cacheImpl)
	ledgerSvc := ledger.NewService(repo, nil, counters, nil)
	processor := assess.NewProcessor(repo, counters, engine, cacheImpl, nil, nil)
	reports := report.NewGenerator(repo)

	return NewServer(cfg, repo, cacheImpl, ledgerSvc, counters, processor, reports, engine, "test-v1")
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func createUser(t *testing.T, server *Server, balance float64) domain.User {
	t.Helper()

	rr := doJSON(t, server, http.MethodPost, "/users", domain.UserRequest{
		Name:           "Dana",
		Email:          "dana@example.com",
		InitialBalance: balance,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create user: status %d: %s", rr.Code, rr.Body.String())
	}

	var u domain.User
	if err := json.Unmarshal(rr.Body.Bytes(), &u); err != nil {
		t.Fatalf("parse user: %v", err)
	}
	return u
}

func TestUserEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("CreateUser", func(t *testing.T) {
		u := createUser(t, server, 1000)

		if u.ID == "" {
			t.Error("expected user id in response")
		}
		if u.Balance != 1000 {
			t.Errorf("expected balance 1000, got %.2f", u.Balance)
		}
		if !u.Active || u.RiskLevel != domain.RiskLow {
			t.Errorf("unexpected defaults: active=%v level=%s", u.Active, u.RiskLevel)
		}
	})

	t.Run("GetUser", func(t *testing.T) {
		u := createUser(t, server, 500)

		rr := doJSON(t, server, http.MethodGet, "/users/"+u.ID, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var got domain.User
		json.Unmarshal(rr.Body.Bytes(), &got)
		if got.ID != u.ID {
			t.Errorf("expected id %s, got %s", u.ID, got.ID)
		}
	})

	t.Run("GetUnknownUser", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/users/ghost", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("MissingName", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/users", domain.UserRequest{Email: "x@example.com"})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString("not-json"))
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("DepositAndWithdraw", func(t *testing.T) {
		u := createUser(t, server, 100)

		rr := doJSON(t, server, http.MethodPost, "/users/"+u.ID+"/deposit", AmountRequest{Amount: 50})
		if rr.Code != http.StatusOK {
			t.Fatalf("deposit: status %d: %s", rr.Code, rr.Body.String())
		}

		var got domain.User
		json.Unmarshal(rr.Body.Bytes(), &got)
		if got.Balance != 150 {
			t.Errorf("expected balance 150 after deposit, got %.2f", got.Balance)
		}

		rr = doJSON(t, server, http.MethodPost, "/users/"+u.ID+"/withdraw", AmountRequest{Amount: 200})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("overdraw: expected status 400, got %d", rr.Code)
		}
	})
}

func TestWagerEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("PlaceAndSettle", func(t *testing.T) {
		u := createUser(t, server, 1000)

		rr := doJSON(t, server, http.MethodPost, "/wagers", domain.WagerRequest{
			UserID:     u.ID,
			Category:   "sports",
			Stake:      100,
			Multiplier: 2,
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("place wager: status %d: %s", rr.Code, rr.Body.String())
		}

		var wager domain.Wager
		json.Unmarshal(rr.Body.Bytes(), &wager)
		if wager.Status != domain.WagerPending {
			t.Errorf("expected pending wager, got %s", wager.Status)
		}

		// Stake debited at placement
		rr = doJSON(t, server, http.MethodGet, "/users/"+u.ID, nil)
		var after domain.User
		json.Unmarshal(rr.Body.Bytes(), &after)
		if after.Balance != 900 {
			t.Errorf("expected balance 900 after placement, got %.2f", after.Balance)
		}

		// Settle as won: credits stake * multiplier
		rr = doJSON(t, server, http.MethodPost, "/wagers/"+wager.ID+"/settle", SettleRequest{Won: true})
		if rr.Code != http.StatusOK {
			t.Fatalf("settle: status %d: %s", rr.Code, rr.Body.String())
		}

		rr = doJSON(t, server, http.MethodGet, "/users/"+u.ID, nil)
		json.Unmarshal(rr.Body.Bytes(), &after)
		if after.Balance != 1100 {
			t.Errorf("expected balance 1100 after win, got %.2f", after.Balance)
		}

		// Settling twice conflicts
		rr = doJSON(t, server, http.MethodPost, "/wagers/"+wager.ID+"/settle", SettleRequest{Won: false})
		if rr.Code != http.StatusConflict {
			t.Errorf("double settle: expected status 409, got %d", rr.Code)
		}
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		u := createUser(t, server, 10)

		rr := doJSON(t, server, http.MethodPost, "/wagers", domain.WagerRequest{
			UserID:     u.ID,
			Category:   "sports",
			Stake:      100,
			Multiplier: 2,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("MissingUserID", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/wagers", domain.WagerRequest{
			Category: "sports", Stake: 10, Multiplier: 2,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestAssessEndpoint(t *testing.T) {
	server := createTestServer(t)
	u := createUser(t, server, 1000)

	// Six quick wagers push the user to MEDIUM
	for i := 0; i < 6; i++ {
		rr := doJSON(t, server, http.MethodPost, "/wagers", domain.WagerRequest{
			UserID:     u.ID,
			Category:   "casino",
			Stake:      40,
			Multiplier: 2,
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("wager %d: status %d: %s", i, rr.Code, rr.Body.String())
		}
	}

	rr := doJSON(t, server, http.MethodPost, "/users/"+u.ID+"/assess", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("assess: status %d: %s", rr.Code, rr.Body.String())
	}

	var a assess.Assessment
	if err := json.Unmarshal(rr.Body.Bytes(), &a); err != nil {
		t.Fatalf("parse assessment: %v", err)
	}
	if a.Level != domain.RiskMedium {
		t.Errorf("expected MEDIUM level, got %s (score %d)", a.Level, a.Score)
	}
	if !a.Escalated {
		t.Error("expected escalation from LOW")
	}
	if len(a.Behaviors) == 0 {
		t.Error("expected detected behaviors")
	}

	// Escalation created interventions; they are readable and acceptable.
	rr = doJSON(t, server, http.MethodGet, "/users/"+u.ID+"/interventions/pending", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("pending interventions: status %d", rr.Code)
	}

	var pending struct {
		Interventions []*domain.Intervention `json:"interventions"`
		Count         int                    `json:"count"`
	}
	json.Unmarshal(rr.Body.Bytes(), &pending)
	if pending.Count == 0 {
		t.Fatal("expected pending interventions after escalation")
	}

	iv := pending.Interventions[0]
	rr = doJSON(t, server, http.MethodPost, "/interventions/"+iv.ID+"/accept", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("accept: status %d: %s", rr.Code, rr.Body.String())
	}

	var accepted domain.Intervention
	json.Unmarshal(rr.Body.Bytes(), &accepted)
	if !accepted.Accepted || accepted.AcceptedAt == nil {
		t.Errorf("intervention not accepted: %+v", accepted)
	}

	// Behaviors listed via the API
	rr = doJSON(t, server, http.MethodGet, "/users/"+u.ID+"/behaviors", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("behaviors: status %d", rr.Code)
	}
}

func TestReportEndpoints(t *testing.T) {
	server := createTestServer(t)
	u := createUser(t, server, 1000)

	doJSON(t, server, http.MethodPost, "/wagers", domain.WagerRequest{
		UserID: u.ID, Category: "sports", Stake: 50, Multiplier: 2,
	})

	rr := doJSON(t, server, http.MethodPost, "/users/"+u.ID+"/reports/weekly", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("weekly report: status %d: %s", rr.Code, rr.Body.String())
	}

	var rep domain.Report
	if err := json.Unmarshal(rr.Body.Bytes(), &rep); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if rep.TotalWagers != 1 {
		t.Errorf("expected 1 wager in report, got %d", rep.TotalWagers)
	}

	rr = doJSON(t, server, http.MethodGet, "/reports/"+rep.ID, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("get report: status %d", rr.Code)
	}

	rr = doJSON(t, server, http.MethodPost, "/users/"+u.ID+"/reports/monthly", MonthlyReportRequest{Year: 2025, Month: 13})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad month: expected status 400, got %d", rr.Code)
	}
}

func TestActivityEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("List", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/activities", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Count int `json:"count"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Count == 0 {
			t.Error("expected a non-empty activity catalog")
		}
	})

	t.Run("FreeFilter", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/activities?free=true", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Activities []domain.Activity `json:"activities"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		for _, a := range resp.Activities {
			if a.Cost != 0 {
				t.Errorf("free filter returned paid activity %s", a.Name)
			}
		}
	})

	t.Run("Suggestion", func(t *testing.T) {
		u := createUser(t, server, 1000)

		rr := doJSON(t, server, http.MethodGet, "/users/"+u.ID+"/activities/suggestion", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var a domain.Activity
		json.Unmarshal(rr.Body.Bytes(), &a)
		if a.Name == "" {
			t.Error("expected a suggested activity")
		}
	})
}

func TestProfileEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("DeriveAndServe", func(t *testing.T) {
		u := createUser(t, server, 1000)
		for i := 0; i < 2; i++ {
			rr := doJSON(t, server, http.MethodPost, "/wagers", domain.WagerRequest{
				UserID:     u.ID,
				Category:   "sports",
				Stake:      40,
				Multiplier: 2,
			})
			if rr.Code != http.StatusCreated {
				t.Fatalf("place wager: status %d: %s", rr.Code, rr.Body.String())
			}
		}

		rr := doJSON(t, server, http.MethodGet, "/users/"+u.ID+"/profile", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("get profile: status %d: %s", rr.Code, rr.Body.String())
		}

		var p domain.ProfileCache
		json.Unmarshal(rr.Body.Bytes(), &p)
		if p.BetsToday != 2 || p.AmountWageredToday != 80 {
			t.Errorf("unexpected counters: %+v", p)
		}
	})

	t.Run("ServesAssessmentSnapshot", func(t *testing.T) {
		u := createUser(t, server, 1000)
		for i := 0; i < 6; i++ {
			rr := doJSON(t, server, http.MethodPost, "/wagers", domain.WagerRequest{
				UserID:     u.ID,
				Category:   "casino",
				Stake:      40,
				Multiplier: 2,
			})
			if rr.Code != http.StatusCreated {
				t.Fatalf("place wager: status %d: %s", rr.Code, rr.Body.String())
			}
		}

		rr := doJSON(t, server, http.MethodPost, "/users/"+u.ID+"/assess", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("assess: status %d: %s", rr.Code, rr.Body.String())
		}
		var a assess.Assessment
		if err := json.Unmarshal(rr.Body.Bytes(), &a); err != nil {
			t.Fatalf("parse assessment: %v", err)
		}

		// The assessment primed the cache; the profile read serves it.
		rr = doJSON(t, server, http.MethodGet, "/users/"+u.ID+"/profile", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("get profile: status %d: %s", rr.Code, rr.Body.String())
		}
		var p domain.ProfileCache
		json.Unmarshal(rr.Body.Bytes(), &p)
		if p.RiskScore != a.Score {
			t.Errorf("profile score %d does not match assessment score %d", p.RiskScore, a.Score)
		}
		if p.BetsToday != 6 {
			t.Errorf("expected 6 bets today, got %d", p.BetsToday)
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/users/ghost/profile", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestRuleEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("CreateAndList", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/rules", CreateRuleRequest{
			ID:         "late-night-spree",
			Name:       "Late Night Spree",
			Expression: "bets_today > 10",
			Kind:       domain.BehaviorConcealedActivity,
			Severity:   8,
			Enabled:    true,
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("create rule: status %d: %s", rr.Code, rr.Body.String())
		}

		rr = doJSON(t, server, http.MethodGet, "/rules", nil)
		var resp struct {
			Count int `json:"count"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Count != 1 {
			t.Errorf("expected 1 loaded rule, got %d", resp.Count)
		}

		rr = doJSON(t, server, http.MethodGet, "/rules/late-night-spree", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("get rule: status %d", rr.Code)
		}
	})

	t.Run("DisabledRuleStaysParked", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/rules", CreateRuleRequest{
			ID:         "parked-rule",
			Name:       "Parked Rule",
			Expression: "bets_today > 0",
			Kind:       domain.BehaviorFrequentWagering,
			Severity:   5,
			Enabled:    false,
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("create rule: status %d: %s", rr.Code, rr.Body.String())
		}

		// Persisted but not screening: the loaded set is unchanged.
		rr = doJSON(t, server, http.MethodGet, "/rules", nil)
		var resp struct {
			Count int `json:"count"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Count != 1 {
			t.Errorf("expected 1 loaded rule, got %d", resp.Count)
		}
	})

	t.Run("InvalidExpression", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/rules", CreateRuleRequest{
			ID:         "broken",
			Name:       "Broken",
			Expression: "bets_today >>> 1",
			Kind:       domain.BehaviorConcealedActivity,
			Severity:   5,
			Enabled:    true,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("Reload", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/rules/reload", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("reload: status %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("DeleteUnknown", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodDelete, "/rules/ghost", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("HealthCheck", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/health", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/ready", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("MetricsExposed", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/metrics", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v, ok := r.Context().Value(RequestIDKey).(string); ok {
				capturedRequestID = v
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		// Should not panic
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})

	t.Run("ResponseHeaders", func(t *testing.T) {
		server := createTestServer(t)

		rr := doJSON(t, server, http.MethodGet, "/health", nil)
		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header in response")
		}
		if rr.Header().Get("X-Trace-ID") == "" {
			t.Error("expected X-Trace-ID header in response")
		}
	})
}
