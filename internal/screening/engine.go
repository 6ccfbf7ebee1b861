// Package screening provides the CEL-Go based screen rule engine.
// Screen rules are operator-defined expressions over a user's rolling
// counters; a match records a detected behavior of the rule's kind.
package screening

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/uuid"
	"github.com/opensource-wellness/kestrel/internal/domain"
)

// Engine is the CEL-based screen rule engine.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Rule    *domain.ScreenRule
	Program cel.Program
}

// NewEngine creates a new screen rule engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// Create CEL environment with profile variables
	env, err := cel.NewEnv(
		cel.Variable("balance", cel.DoubleType),
		cel.Variable("bets_today", cel.IntType),
		cel.Variable("amount_wagered_today", cel.DoubleType),
		cel.Variable("consecutive_days", cel.IntType),
		cel.Variable("risk_score", cel.IntType),
		cel.Variable("hours_since_last_bet", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles a rule without mutating the loaded set.
func (e *Engine) ValidateRule(rule *domain.ScreenRule) error {
	if rule == nil {
		return fmt.Errorf("screen rule is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(rule)
	return err
}

// LoadRule compiles a rule and activates it when enabled. A disabled
// rule is still compiled, so bad expressions surface, but it never
// screens; any active version under the same ID is retired.
func (e *Engine) LoadRule(rule *domain.ScreenRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(rule)
	if err != nil {
		return err
	}

	if !rule.Enabled {
		delete(e.compiledRules, rule.ID)
		return nil
	}
	e.compiledRules[rule.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules.
func (e *Engine) LoadRules(rules []*domain.ScreenRule) error {
	for _, rule := range rules {
		if err := e.LoadRule(rule); err != nil {
			return err
		}
	}
	return nil
}

// Screen evaluates every loaded rule against a user's snapshot in
// parallel and returns one detected behavior per matching rule. A rule
// matches when its expression yields true or a value >= 1.
func (e *Engine) Screen(ctx context.Context, u *domain.User, now time.Time) ([]*domain.DetectedBehavior, error) {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil, nil
	}

	hoursSinceLastBet := -1.0
	if u.LastBetAt != nil {
		hoursSinceLastBet = now.Sub(*u.LastBetAt).Hours()
	}

	activation := map[string]any{
		"balance":              u.Balance,
		"bets_today":           int64(u.BetsToday),
		"amount_wagered_today": u.AmountWageredToday,
		"consecutive_days":     int64(u.ConsecutiveBettingDays),
		"risk_score":           int64(u.RiskScore),
		"hours_since_last_bet": hoursSinceLastBet,
	}

	// Parallel evaluation using worker pool pattern
	hits := make([]*domain.DetectedBehavior, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			hits[idx] = e.evaluateRule(r, activation, u.ID, now)
		}(i, rule)
	}

	wg.Wait()

	var out []*domain.DetectedBehavior
	for _, h := range hits {
		if h != nil {
			out = append(out, h)
		}
	}
	return out, nil
}

// evaluateRule evaluates a single rule, returning a behavior on match.
// Evaluation errors are treated as no-match; a broken rule must not
// block the assessment pipeline.
func (e *Engine) evaluateRule(rule *CompiledRule, activation map[string]any, userID string, now time.Time) *domain.DetectedBehavior {
	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		return nil
	}

	if !matched(out) {
		return nil
	}

	description := rule.Rule.Description
	if description == "" {
		description = fmt.Sprintf("Screen rule %q matched", rule.Rule.Name)
	}

	return &domain.DetectedBehavior{
		ID:          uuid.New().String(),
		UserID:      userID,
		Kind:        rule.Rule.Kind,
		Description: description,
		Severity:    rule.Rule.Severity,
		DetectedAt:  now.UTC(),
	}
}

// matched converts a CEL result to a hit decision.
func matched(val ref.Val) bool {
	switch v := val.(type) {
	case types.Bool:
		return bool(v)
	case types.Double:
		return float64(v) >= 1.0
	case types.Int:
		return int64(v) >= 1
	default:
		return false
	}
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(rules []*domain.ScreenRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		compiled, err := e.compileRule(rule)
		if err != nil {
			return err
		}
		newRules[rule.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// GetLoadedRules returns the currently loaded rules.
func (e *Engine) GetLoadedRules() []*domain.ScreenRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.ScreenRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Rule)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(rule *domain.ScreenRule) (*CompiledRule, error) {
	if rule.Severity < 1 || rule.Severity > 10 {
		return nil, fmt.Errorf("rule %s: severity must be 1..10, got %d", rule.ID, rule.Severity)
	}

	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", rule.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}

	return &CompiledRule{
		Rule:    rule,
		Program: program,
	}, nil
}
