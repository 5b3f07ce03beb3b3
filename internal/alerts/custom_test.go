package alerts

import (
	"strings"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestRuleEngineEvaluate(t *testing.T) {
	engine, err := NewRuleEngine()
	if err != nil {
		t.Fatalf("NewRuleEngine failed: %v", err)
	}

	rules := []domain.CustomAlertRule{
		{ID: "r-1", Name: "elevated ratio", Severity: domain.SeverityLow, Expression: "ratio > 5.0"},
		{ID: "r-2", Name: "busy merchant", Expression: "transactions >= 100 && chargebacks > 0"},
	}
	if err := engine.LoadRules(rules); err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}
	if engine.RulesCount() != 2 {
		t.Fatalf("rules count = %d, want 2", engine.RulesCount())
	}

	stats := []merchantStats{
		{id: "m-1", name: "Risky Shop", transactions: 40, chargebacks: 4, ratio: 10.0},
		{id: "m-2", name: "Busy Shop", transactions: 200, chargebacks: 2, ratio: 1.0},
		{id: "m-3", name: "Quiet Shop", transactions: 10, chargebacks: 0, ratio: 0.0},
	}

	alerts := engine.Evaluate(stats)
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d: %+v", len(alerts), alerts)
	}

	first := alerts[0]
	if first.AlertType != domain.AlertCustomRule || first.Severity != domain.SeverityLow {
		t.Errorf("first alert = %+v", first)
	}
	if first.Description != "Rule 'elevated ratio' matched merchant 'Risky Shop'" {
		t.Errorf("description = %q", first.Description)
	}
	if first.EntityID == nil || *first.EntityID != "m-1" {
		t.Errorf("entity id = %v", first.EntityID)
	}

	// Missing severity falls back to MEDIUM.
	second := alerts[1]
	if second.Severity != domain.SeverityMedium {
		t.Errorf("default severity = %s, want MEDIUM", second.Severity)
	}
	if second.EntityID == nil || *second.EntityID != "m-2" {
		t.Errorf("entity id = %v", second.EntityID)
	}
}

func TestRuleEngineRejectsBadExpressions(t *testing.T) {
	engine, err := NewRuleEngine()
	if err != nil {
		t.Fatalf("NewRuleEngine failed: %v", err)
	}

	t.Run("SyntaxError", func(t *testing.T) {
		err := engine.LoadRules([]domain.CustomAlertRule{
			{ID: "bad", Name: "broken", Expression: "ratio >"},
		})
		if err == nil {
			t.Fatal("expected compile error")
		}
	})

	t.Run("NonBoolResult", func(t *testing.T) {
		err := engine.LoadRules([]domain.CustomAlertRule{
			{ID: "bad", Name: "numeric", Expression: "ratio * 2.0"},
		})
		if err == nil || !strings.Contains(err.Error(), "must return bool") {
			t.Fatalf("expected bool type error, got %v", err)
		}
	})

	t.Run("UnknownVariable", func(t *testing.T) {
		err := engine.LoadRules([]domain.CustomAlertRule{
			{ID: "bad", Name: "unknown", Expression: "velocity > 3"},
		})
		if err == nil {
			t.Fatal("expected compile error for unknown variable")
		}
	})
}

func TestEvaluatorCompilesConfiguredRules(t *testing.T) {
	cfg := domain.DefaultAnalyticsConfig()
	cfg.CustomAlertRules = []domain.CustomAlertRule{
		{ID: "r-1", Name: "watchlist", Severity: domain.SeverityHigh, Expression: `merchant_name == "Risky Shop"`},
	}

	ev, err := NewEvaluator(cfg)
	if err != nil {
		t.Fatalf("NewEvaluator failed: %v", err)
	}

	snap := &domain.Snapshot{}
	merchantWithDisputes(snap, "m-1", "Risky Shop", 10, 0)

	got := alertsOfType(ev.Evaluate(snap), domain.AlertCustomRule)
	if len(got) != 1 {
		t.Fatalf("expected 1 custom alert, got %d", len(got))
	}
	if got[0].Severity != domain.SeverityHigh {
		t.Errorf("severity = %s, want HIGH", got[0].Severity)
	}

	cfg.CustomAlertRules[0].Expression = "not valid ((("
	if _, err := NewEvaluator(cfg); err == nil {
		t.Error("expected error for invalid configured rule")
	}
}
