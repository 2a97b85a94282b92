package domain

type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeImage FileType = "image"
	FileTypeWord  FileType = "word"
	FileTypeExcel FileType = "excel"
	FileTypeText  FileType = "text"
	FileTypeOther FileType = "other"
)

// FeatureSet is the normalized fingerprint derived from a document for
// similarity scoring. It is ephemeral and always recomputable: extraction
// is deterministic, so the same document yields the same feature set.
// Feature sets are compared, never mutated.
type FeatureSet struct {
	CorrespondentID *int64   `json:"correspondent_id,omitempty"`
	DocumentTypeID  *int64   `json:"document_type_id,omitempty"`
	AmountRange     string   `json:"amount_range,omitempty"`
	Keywords        []string `json:"keywords"`
	TagIDs          []int64  `json:"tag_ids"`
	FileType        FileType `json:"file_type"`
	ContentHash     string   `json:"content_hash"`
	TitleKeywords   []string `json:"title_keywords"`
	HasAmount       bool     `json:"has_amount"`
}

// HasSignal reports whether the feature set carries any identifying
// evidence beyond the always-present file type. Two identical
// featureless sets still score 1.0 by reflexivity and must never cast
// a vote.
func (f FeatureSet) HasSignal() bool {
	return f.CorrespondentID != nil ||
		f.DocumentTypeID != nil ||
		f.AmountRange != "" ||
		len(f.Keywords) > 0 ||
		len(f.TagIDs) > 0
}
