package domain

type VoteSource string

const (
	VoteSourceRule       VoteSource = "rule"
	VoteSourceSimilarity VoteSource = "similarity"
)

// Vote is one weighted piece of evidence for assigning Value to Field.
// RuleID is set for rule votes, DocumentID for similarity votes.
type Vote struct {
	Field      FieldType  `json:"field"`
	Value      string     `json:"value"`
	Weight     float64    `json:"weight"`
	Source     VoteSource `json:"source"`
	RuleID     string     `json:"rule_id,omitempty"`
	DocumentID string     `json:"document_id,omitempty"`
}

// Suggestion is the winning candidate for one predicted field.
// Confidence is the winner's share of the total vote weight for that
// field, always within [0,1]. Suggestions are produced per invocation
// and never persisted by the engine.
type Suggestion struct {
	Field      FieldType `json:"field"`
	Value      string    `json:"value"`
	Confidence float64   `json:"confidence"`
	Votes      []Vote    `json:"votes,omitempty"`
}
