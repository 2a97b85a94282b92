package domain

import "time"

// Document is the record the attribution engine reasons about. It is
// read-only from the engine's point of view: a suggestion pass never
// mutates it. Pointer fields distinguish "not set" from zero values,
// which matters for the is_empty / is_not_empty operators.
type Document struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Filename         string     `json:"filename"`
	MimeType         string     `json:"mime_type"`
	CorrespondentID  *int64     `json:"correspondent_id,omitempty"`
	DocumentTypeID   *int64     `json:"document_type_id,omitempty"`
	Amount           *float64   `json:"amount,omitempty"`
	Currency         string     `json:"currency,omitempty"`
	Content          string     `json:"content,omitempty"`
	TagIDs           []int64    `json:"tag_ids"`
	LastClassifiedAt *time.Time `json:"last_classified_at,omitempty"`
	LastClassifiedBy string     `json:"last_classified_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// HasTag reports whether the document carries the given tag.
func (d *Document) HasTag(tagID int64) bool {
	for _, id := range d.TagIDs {
		if id == tagID {
			return true
		}
	}
	return false
}
