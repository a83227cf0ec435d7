package models

// ConditionType tags a node in a condition expression tree.
type ConditionType string

const (
	ConditionSimple ConditionType = "simple"
	ConditionAnd    ConditionType = "and"
	ConditionOr     ConditionType = "or"
	ConditionScore  ConditionType = "score"
)

// Operator compares an answer against a condition value.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not_contains"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
)

// Condition is a tagged boolean-expression tree evaluated against a
// respondent's answer map. A nil condition means "always show".
type Condition struct {
	Type ConditionType `json:"type" yaml:"type"`

	// simple
	QuestionID string   `json:"questionId,omitempty" yaml:"question_id,omitempty"`
	Operator   Operator `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value      any      `json:"value,omitempty" yaml:"value,omitempty"`

	// and / or
	Conditions []*Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}
