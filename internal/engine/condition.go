// Package engine holds the pure questionnaire logic: condition evaluation,
// score accumulation, and section/question visibility. Nothing here touches
// persistence; the same functions serve the live API and offline reprocessing.
package engine

import (
	"strconv"

	"github.com/formlead/survey-engine/internal/models"
)

// Evaluate decides whether a condition holds against an answer map.
//
// A nil condition and an unknown condition type both evaluate to true: no
// condition means "always show", and an unrecognized node must not silently
// block a questionnaire flow. A simple condition over an unanswered question
// is false, which is the opposite default on purpose.
func Evaluate(cond *models.Condition, answers map[string]any) bool {
	if cond == nil {
		return true
	}

	switch cond.Type {
	case models.ConditionSimple:
		return evaluateSimple(cond, answers)

	case models.ConditionAnd:
		for _, c := range cond.Conditions {
			if !Evaluate(c, answers) {
				return false
			}
		}
		return true

	case models.ConditionOr:
		for _, c := range cond.Conditions {
			if Evaluate(c, answers) {
				return true
			}
		}
		return false

	case models.ConditionScore:
		// Score-based branching was never wired into the evaluator; the
		// stored data contains these nodes but they are unimplemented.
		// Always true until the comparison basis is settled.
		return true

	default:
		return true
	}
}

func evaluateSimple(cond *models.Condition, answers map[string]any) bool {
	answer, ok := answers[cond.QuestionID]
	if !ok {
		return false
	}

	switch cond.Operator {
	case models.OpEquals:
		return strictEqual(answer, cond.Value)
	case models.OpNotEquals:
		return !strictEqual(answer, cond.Value)
	case models.OpContains:
		list, ok := asList(answer)
		return ok && listContains(list, cond.Value)
	case models.OpNotContains:
		list, ok := asList(answer)
		return ok && !listContains(list, cond.Value)
	case models.OpGreaterThan:
		a, b, ok := bothNumeric(answer, cond.Value)
		return ok && a > b
	case models.OpLessThan:
		a, b, ok := bothNumeric(answer, cond.Value)
		return ok && a < b
	case models.OpGreaterThanOrEqual:
		a, b, ok := bothNumeric(answer, cond.Value)
		return ok && a >= b
	case models.OpLessThanOrEqual:
		a, b, ok := bothNumeric(answer, cond.Value)
		return ok && a <= b
	default:
		return false
	}
}

// strictEqual compares values the way JSON-decoded data compares: equal when
// both sides are the same comparable kind and equal. Lists never compare equal.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !isComparable(a) || !isComparable(b) {
		return false
	}
	return a == b
}

func isComparable(v any) bool {
	switch v.(type) {
	case string, float64, bool, int, int64:
		return true
	default:
		return false
	}
}

// asList normalizes the container types a decoded answer can arrive as.
func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func listContains(list []any, value any) bool {
	for _, item := range list {
		if strictEqual(item, value) {
			return true
		}
	}
	return false
}

// bothNumeric parses both operands as floats. A failed parse behaves like a
// NaN comparison: the caller's relational operator comes out false.
func bothNumeric(a, b any) (float64, float64, bool) {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	return fa, fb, okA && okB
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case models.Number:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
