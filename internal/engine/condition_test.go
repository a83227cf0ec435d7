package engine

import (
	"testing"

	"github.com/formlead/survey-engine/internal/models"
)

func simple(qid string, op models.Operator, value any) *models.Condition {
	return &models.Condition{
		Type:       models.ConditionSimple,
		QuestionID: qid,
		Operator:   op,
		Value:      value,
	}
}

func TestEvaluateNilCondition(t *testing.T) {
	if !Evaluate(nil, map[string]any{"q1": "yes"}) {
		t.Error("nil condition must evaluate true")
	}
	if !Evaluate(nil, nil) {
		t.Error("nil condition with nil answers must evaluate true")
	}
}

func TestEvaluateUnknownTypeFailsOpen(t *testing.T) {
	cond := &models.Condition{Type: "frobnicate"}
	if !Evaluate(cond, map[string]any{}) {
		t.Error("unknown condition type must evaluate true")
	}
}

func TestEvaluateScoreTypeAlwaysTrue(t *testing.T) {
	cond := &models.Condition{
		Type:     models.ConditionScore,
		Operator: models.OpGreaterThan,
		Value:    float64(100),
	}
	if !Evaluate(cond, map[string]any{}) {
		t.Error("score condition is a stub and must evaluate true")
	}
}

func TestEvaluateSimpleUnansweredQuestion(t *testing.T) {
	cond := simple("q1", models.OpEquals, "yes")
	if Evaluate(cond, map[string]any{}) {
		t.Error("condition on an unanswered question must evaluate false")
	}
	if Evaluate(cond, map[string]any{"other": "yes"}) {
		t.Error("condition on an unanswered question must evaluate false")
	}
}

func TestEvaluateSimpleOperators(t *testing.T) {
	answers := map[string]any{
		"text":   "yes",
		"num":    float64(7),
		"numStr": "7",
		"list":   []any{"a", "b"},
		"flag":   true,
	}

	tests := []struct {
		name string
		cond *models.Condition
		want bool
	}{
		{"equals match", simple("text", models.OpEquals, "yes"), true},
		{"equals mismatch", simple("text", models.OpEquals, "no"), false},
		{"equals cross-type", simple("numStr", models.OpEquals, float64(7)), false},
		{"equals bool", simple("flag", models.OpEquals, true), true},
		{"not_equals", simple("text", models.OpNotEquals, "no"), true},
		{"not_equals mismatch", simple("text", models.OpNotEquals, "yes"), false},
		{"contains hit", simple("list", models.OpContains, "a"), true},
		{"contains miss", simple("list", models.OpContains, "z"), false},
		{"contains non-list", simple("text", models.OpContains, "y"), false},
		{"not_contains hit", simple("list", models.OpNotContains, "z"), true},
		{"not_contains member", simple("list", models.OpNotContains, "a"), false},
		{"not_contains non-list", simple("text", models.OpNotContains, "z"), false},
		{"greater_than", simple("num", models.OpGreaterThan, float64(5)), true},
		{"greater_than equal value", simple("num", models.OpGreaterThan, float64(7)), false},
		{"greater_than string operand", simple("numStr", models.OpGreaterThan, "5"), true},
		{"less_than", simple("num", models.OpLessThan, float64(10)), true},
		{"gte boundary", simple("num", models.OpGreaterThanOrEqual, float64(7)), true},
		{"lte boundary", simple("num", models.OpLessThanOrEqual, float64(7)), true},
		{"numeric parse failure", simple("text", models.OpGreaterThan, float64(1)), false},
		{"numeric bad condition value", simple("num", models.OpLessThan, "abc"), false},
		{"unknown operator", simple("text", "matches", "yes"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.cond, answers); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateAnd(t *testing.T) {
	answers := map[string]any{"q1": "yes", "q2": float64(10)}

	empty := &models.Condition{Type: models.ConditionAnd}
	if !Evaluate(empty, answers) {
		t.Error("empty and must be vacuously true")
	}

	allTrue := &models.Condition{
		Type: models.ConditionAnd,
		Conditions: []*models.Condition{
			simple("q1", models.OpEquals, "yes"),
			simple("q2", models.OpGreaterThan, float64(5)),
		},
	}
	if !Evaluate(allTrue, answers) {
		t.Error("and over all-true children must be true")
	}

	oneFalse := &models.Condition{
		Type: models.ConditionAnd,
		Conditions: []*models.Condition{
			simple("q1", models.OpEquals, "yes"),
			simple("q2", models.OpLessThan, float64(5)),
		},
	}
	if Evaluate(oneFalse, answers) {
		t.Error("and with a false child must be false")
	}
}

func TestEvaluateOr(t *testing.T) {
	answers := map[string]any{"q1": "no"}

	empty := &models.Condition{Type: models.ConditionOr}
	if Evaluate(empty, answers) {
		t.Error("empty or must be false")
	}

	oneTrue := &models.Condition{
		Type: models.ConditionOr,
		Conditions: []*models.Condition{
			simple("q1", models.OpEquals, "yes"),
			simple("q1", models.OpEquals, "no"),
		},
	}
	if !Evaluate(oneTrue, answers) {
		t.Error("or with a true child must be true")
	}

	allFalse := &models.Condition{
		Type: models.ConditionOr,
		Conditions: []*models.Condition{
			simple("q1", models.OpEquals, "yes"),
			simple("q1", models.OpEquals, "maybe"),
		},
	}
	if Evaluate(allFalse, answers) {
		t.Error("or over all-false children must be false")
	}
}

func TestEvaluateNestedTree(t *testing.T) {
	answers := map[string]any{"q1": "yes", "q2": float64(3), "q3": []any{"x"}}

	cond := &models.Condition{
		Type: models.ConditionAnd,
		Conditions: []*models.Condition{
			simple("q1", models.OpEquals, "yes"),
			{
				Type: models.ConditionOr,
				Conditions: []*models.Condition{
					simple("q2", models.OpGreaterThan, float64(10)),
					simple("q3", models.OpContains, "x"),
				},
			},
		},
	}

	if !Evaluate(cond, answers) {
		t.Error("nested and(or) tree should evaluate true")
	}
}
