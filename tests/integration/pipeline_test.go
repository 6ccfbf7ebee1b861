//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Kestrel
// behavioral risk engine against a running server.
//
// These tests verify the complete monitoring pipeline:
//
//	Wager → Rolling counters → Score → Detectors → Interventions → Report
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// The server must be running, by default on localhost:8080; override
// with KESTREL_TEST_URL.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

func baseURL() string {
	if url := os.Getenv("KESTREL_TEST_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

type userResponse struct {
	ID        string  `json:"id"`
	Balance   float64 `json:"balance"`
	RiskScore int     `json:"riskScore"`
	RiskLevel string  `json:"riskLevel"`
}

type wagerResponse struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Stake  float64 `json:"stake"`
}

type assessmentResponse struct {
	Score     int    `json:"score"`
	Level     string `json:"level"`
	Escalated bool   `json:"escalated"`
	Behaviors []struct {
		Kind     string `json:"kind"`
		Severity int    `json:"severity"`
	} `json:"behaviors"`
}

type reportResponse struct {
	ID          string  `json:"id"`
	TotalWagers int     `json:"totalWagers"`
	TotalStaked float64 `json:"totalStaked"`
}

func post(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	resp, err := http.Post(baseURL()+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(baseURL() + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestServerHealthy(t *testing.T) {
	resp, data := get(t, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: status %d: %s", resp.StatusCode, data)
	}
}

// TestMonitoringPipeline walks a user through the full flow: funding,
// a burst of wagers, assessment, interventions, and a weekly report.
func TestMonitoringPipeline(t *testing.T) {
	// Create a user
	resp, data := post(t, "/users", map[string]any{
		"name":           fmt.Sprintf("integration-%d", time.Now().UnixNano()),
		"email":          "integration@example.com",
		"initialBalance": 1000.0,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create user: status %d: %s", resp.StatusCode, data)
	}

	var user userResponse
	if err := json.Unmarshal(data, &user); err != nil {
		t.Fatalf("parse user: %v", err)
	}

	// Burst of wagers: enough for the frequency and amount detectors
	var lastWager wagerResponse
	for i := 0; i < 6; i++ {
		resp, data = post(t, "/wagers", map[string]any{
			"userId":     user.ID,
			"category":   "sports",
			"stake":      40.0,
			"multiplier": 2.0,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("wager %d: status %d: %s", i, resp.StatusCode, data)
		}
		if err := json.Unmarshal(data, &lastWager); err != nil {
			t.Fatalf("parse wager: %v", err)
		}
	}

	// Settle the last wager as lost
	resp, data = post(t, "/wagers/"+lastWager.ID+"/settle", map[string]any{"won": false})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("settle: status %d: %s", resp.StatusCode, data)
	}

	// Run an assessment: six same-day wagers and a fresh bet should
	// score at least into MEDIUM
	resp, data = post(t, "/users/"+user.ID+"/assess", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assess: status %d: %s", resp.StatusCode, data)
	}

	var a assessmentResponse
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatalf("parse assessment: %v", err)
	}
	if a.Level == "LOW" {
		t.Errorf("expected elevated risk level, got %s (score %d)", a.Level, a.Score)
	}
	if len(a.Behaviors) == 0 {
		t.Error("expected detected behaviors")
	}

	// The escalation should have created interventions
	resp, data = get(t, "/users/"+user.ID+"/interventions/pending")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pending interventions: status %d: %s", resp.StatusCode, data)
	}

	var pending struct {
		Interventions []struct {
			ID string `json:"id"`
		} `json:"interventions"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(data, &pending); err != nil {
		t.Fatalf("parse interventions: %v", err)
	}
	if pending.Count == 0 {
		t.Fatal("expected pending interventions after escalation")
	}

	// Accept the first one
	resp, data = post(t, "/interventions/"+pending.Interventions[0].ID+"/accept", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept intervention: status %d: %s", resp.StatusCode, data)
	}

	// Generate a weekly report covering the burst
	resp, data = post(t, "/users/"+user.ID+"/reports/weekly", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("weekly report: status %d: %s", resp.StatusCode, data)
	}

	var rep reportResponse
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if rep.TotalWagers != 6 {
		t.Errorf("expected 6 wagers in report, got %d", rep.TotalWagers)
	}
	if rep.TotalStaked != 240 {
		t.Errorf("expected 240 staked in report, got %.2f", rep.TotalStaked)
	}

	// The user profile reflects the assessment
	resp, data = get(t, "/users/"+user.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get user: status %d: %s", resp.StatusCode, data)
	}

	var after userResponse
	if err := json.Unmarshal(data, &after); err != nil {
		t.Fatalf("parse user: %v", err)
	}
	if after.RiskScore != a.Score {
		t.Errorf("profile score %d does not match assessment score %d", after.RiskScore, a.Score)
	}
}

// TestScreenRuleLifecycle creates, lists, and removes an operator rule.
func TestScreenRuleLifecycle(t *testing.T) {
	ruleID := fmt.Sprintf("itest-rule-%d", time.Now().UnixNano())

	resp, data := post(t, "/rules", map[string]any{
		"id":         ruleID,
		"name":       "Integration Test Rule",
		"expression": "bets_today > 50",
		"kind":       "CONCEALED_ACTIVITY",
		"severity":   6,
		"enabled":    true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create rule: status %d: %s", resp.StatusCode, data)
	}

	resp, data = get(t, "/rules/"+ruleID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get rule: status %d: %s", resp.StatusCode, data)
	}

	req, _ := http.NewRequest(http.MethodDelete, baseURL()+"/rules/"+ruleID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete rule: %v", err)
	}
	defer delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("delete rule: status %d", delResp.StatusCode)
	}
}
