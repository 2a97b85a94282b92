package domain

import "time"

type CorrectionSource string

const (
	SourceManual CorrectionSource = "manual"
	SourceRules  CorrectionSource = "rules"
	SourceAuto   CorrectionSource = "auto"
)

// CorrectionRequest is the inbound payload for recording a correction.
// Confidence is optional; zero means the correction is fully trusted.
type CorrectionRequest struct {
	DocumentID string           `json:"document_id"`
	Field      FieldType        `json:"field"`
	OldValue   string           `json:"old_value,omitempty"`
	NewValue   string           `json:"new_value"`
	Source     CorrectionSource `json:"source,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
}

// Correction is one entry of the append-only log of attribute fixes.
// The stored feature set is the document's fingerprint at correction
// time; the engine reads a bounded recent window of corrections per
// field as its similarity corpus and never writes to the log itself.
type Correction struct {
	ID          string           `json:"id"`
	DocumentID  string           `json:"document_id"`
	Field       FieldType        `json:"field"`
	OldValue    string           `json:"old_value,omitempty"`
	NewValue    string           `json:"new_value"`
	Features    FeatureSet       `json:"features"`
	Source      CorrectionSource `json:"source"`
	Confidence  float64          `json:"confidence"`
	CorrectedAt time.Time        `json:"corrected_at"`
}
