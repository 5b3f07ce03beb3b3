package alerts

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// RuleEngine evaluates operator-defined CEL rules per merchant. Each
// expression sees the merchant's aggregate figures and must return bool.
type RuleEngine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled []compiledRule
}

type compiledRule struct {
	rule    domain.CustomAlertRule
	program cel.Program
}

// NewRuleEngine creates an empty rule engine.
func NewRuleEngine() (*RuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("merchant_id", cel.StringType),
		cel.Variable("merchant_name", cel.StringType),
		cel.Variable("ratio", cel.DoubleType),
		cel.Variable("transactions", cel.IntType),
		cel.Variable("chargebacks", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &RuleEngine{env: env}, nil
}

// LoadRules compiles and replaces the loaded rule set.
func (e *RuleEngine) LoadRules(rules []domain.CustomAlertRule) error {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		program, err := e.compile(rule)
		if err != nil {
			return err
		}
		compiled = append(compiled, compiledRule{rule: rule, program: program})
	}

	e.mu.Lock()
	e.compiled = compiled
	e.mu.Unlock()

	return nil
}

// RulesCount returns the number of loaded rules.
func (e *RuleEngine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// Evaluate runs every loaded rule against every merchant, in rule order
// then merchant order. Expressions that fail at runtime match nothing.
func (e *RuleEngine) Evaluate(stats []merchantStats) []domain.Alert {
	e.mu.RLock()
	compiled := e.compiled
	e.mu.RUnlock()

	var alerts []domain.Alert
	for _, cr := range compiled {
		for _, s := range stats {
			activation := map[string]any{
				"merchant_id":   s.id,
				"merchant_name": s.name,
				"ratio":         s.ratio,
				"transactions":  int64(s.transactions),
				"chargebacks":   int64(s.chargebacks),
			}

			out, _, err := cr.program.Eval(activation)
			if err != nil {
				continue
			}
			matched, ok := out.(types.Bool)
			if !ok || !bool(matched) {
				continue
			}

			s := s
			severity := cr.rule.Severity
			if severity == "" {
				severity = domain.SeverityMedium
			}
			alerts = append(alerts, domain.Alert{
				AlertType:   domain.AlertCustomRule,
				Severity:    severity,
				Description: fmt.Sprintf("Rule '%s' matched merchant '%s'", cr.rule.Name, s.name),
				EntityID:    &s.id,
				EntityName:  &s.name,
				MetricValue: &s.ratio,
			})
		}
	}

	return alerts
}

func (e *RuleEngine) compile(rule domain.CustomAlertRule) (cel.Program, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}

	return program, nil
}
