package domain

import "time"

// FieldType identifies which part of a document a condition inspects,
// and doubles as the attribute a suggestion predicts.
type FieldType string

const (
	FieldCorrespondent FieldType = "correspondent"
	FieldDocumentType  FieldType = "document_type"
	FieldAmount        FieldType = "amount"
	FieldContent       FieldType = "content"
	FieldTag           FieldType = "tag"
)

// PredictableFields are the attributes the engine produces suggestions for.
func PredictableFields() []FieldType {
	return []FieldType{FieldCorrespondent, FieldDocumentType, FieldTag}
}

// Predictable reports whether the field is one the engine suggests
// values for.
func (f FieldType) Predictable() bool {
	switch f {
	case FieldCorrespondent, FieldDocumentType, FieldTag:
		return true
	default:
		return false
	}
}

type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "not_equals"
	OpContains       Operator = "contains"
	OpNotContains    Operator = "not_contains"
	OpStartsWith     Operator = "starts_with"
	OpEndsWith       Operator = "ends_with"
	OpGreaterThan    Operator = "greater_than"
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpLessThan       Operator = "less_than"
	OpLessOrEqual    Operator = "less_or_equal"
	OpBetween        Operator = "between"
	OpIn             Operator = "in"
	OpNotIn          Operator = "not_in"
	OpIsEmpty        Operator = "is_empty"
	OpIsNotEmpty     Operator = "is_not_empty"
	OpRegex          Operator = "regex"
	OpHasAll         Operator = "has_all"
	OpHasNone        Operator = "has_none"
)

// Condition is a single admin-authored predicate. Value is a raw string
// that may carry a JSON-encoded scalar, pair (for between) or list
// (for in / has_all / has_none).
type Condition struct {
	FieldType FieldType `json:"field_type"`
	Operator  Operator  `json:"operator"`
	Value     string    `json:"value"`
}

// ConditionResult is the outcome of evaluating one condition against one
// document. Detail carries a human-readable explanation, including why a
// malformed condition degraded to a non-match.
type ConditionResult struct {
	Matched bool   `json:"matched"`
	Detail  string `json:"detail"`
}

type RuleActionType string

const (
	ActionSetCorrespondent RuleActionType = "set_correspondent"
	ActionSetDocumentType  RuleActionType = "set_document_type"
	ActionAddTag           RuleActionType = "add_tag"
)

// Field returns the attribute an action of this type votes for, or ""
// when the action type is unknown.
func (t RuleActionType) Field() FieldType {
	switch t {
	case ActionSetCorrespondent:
		return FieldCorrespondent
	case ActionSetDocumentType:
		return FieldDocumentType
	case ActionAddTag:
		return FieldTag
	default:
		return ""
	}
}

type RuleAction struct {
	Type  RuleActionType `json:"type"`
	Value string         `json:"value"`
}

// Rule groups conditions with the outcome to apply when they hold.
// Conditions are organised in groups: every condition inside a group must
// match (AND), and the rule fires when any group matches (OR). A rule with
// no groups always fires. StopOnMatch stops evaluation of lower-priority
// rules once this one fires.
type Rule struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Priority    int           `json:"priority"`
	Enabled     bool          `json:"enabled"`
	StopOnMatch bool          `json:"stop_on_match"`
	Groups      [][]Condition `json:"groups"`
	Actions     []RuleAction  `json:"actions"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
