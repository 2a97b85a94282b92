package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kdocs/attribution-engine/internal/core/domain"
)

func TestRecordCorrectionSuccess(t *testing.T) {
	docs := &docRepoFake{docs: map[string]*domain.Document{
		"doc-1": {ID: "doc-1", Title: "Facture consulting", Content: "facture pour services de consulting"},
	}}
	corrections := &correctionRepoFake{}
	uc := NewRecordCorrectionUseCase(docs, corrections, newEngine(t), nil)

	got, err := uc.Record(context.Background(), domain.CorrectionRequest{
		DocumentID: "doc-1",
		Field:      domain.FieldCorrespondent,
		OldValue:   "",
		NewValue:   "5",
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got.ID == "" {
		t.Fatal("expected generated correction id")
	}
	if got.Source != domain.SourceManual {
		t.Fatalf("default source = %s, want manual", got.Source)
	}
	if got.CorrectedAt.IsZero() {
		t.Fatal("expected corrected_at timestamp")
	}
	if len(got.Features.Keywords) == 0 {
		t.Fatal("expected extracted keywords in the feature snapshot")
	}
	if len(corrections.created) != 1 {
		t.Fatalf("expected one persisted correction, got %d", len(corrections.created))
	}
	if corrections.created[0].NewValue != "5" {
		t.Fatalf("persisted new_value = %q, want %q", corrections.created[0].NewValue, "5")
	}
}

func TestRecordCorrectionValidation(t *testing.T) {
	docs := &docRepoFake{docs: map[string]*domain.Document{"doc-1": {ID: "doc-1"}}}
	uc := NewRecordCorrectionUseCase(docs, &correctionRepoFake{}, newEngine(t), nil)

	tests := []struct {
		name string
		req  domain.CorrectionRequest
	}{
		{"missing document id", domain.CorrectionRequest{Field: domain.FieldCorrespondent, NewValue: "5"}},
		{"amount is not predictable", domain.CorrectionRequest{DocumentID: "doc-1", Field: domain.FieldAmount, NewValue: "5"}},
		{"unknown field", domain.CorrectionRequest{DocumentID: "doc-1", Field: "owner", NewValue: "5"}},
		{"missing new value", domain.CorrectionRequest{DocumentID: "doc-1", Field: domain.FieldCorrespondent}},
		{"confidence above one", domain.CorrectionRequest{DocumentID: "doc-1", Field: domain.FieldCorrespondent, NewValue: "5", Confidence: 1.5}},
		{"unknown source", domain.CorrectionRequest{DocumentID: "doc-1", Field: domain.FieldCorrespondent, NewValue: "5", Source: "oracle"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Record(context.Background(), tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			if !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid-input kind, got %v", err)
			}
		})
	}
}

func TestRecordCorrectionUnknownDocument(t *testing.T) {
	uc := NewRecordCorrectionUseCase(&docRepoFake{}, &correctionRepoFake{}, newEngine(t), nil)

	_, err := uc.Record(context.Background(), domain.CorrectionRequest{
		DocumentID: "missing",
		Field:      domain.FieldCorrespondent,
		NewValue:   "5",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected document-not-found kind, got %v", err)
	}
}

func TestRecordCorrectionPersistError(t *testing.T) {
	docs := &docRepoFake{docs: map[string]*domain.Document{"doc-1": {ID: "doc-1"}}}
	corrections := &correctionRepoFake{createErr: errors.New("log unavailable")}
	uc := NewRecordCorrectionUseCase(docs, corrections, newEngine(t), nil)

	_, err := uc.Record(context.Background(), domain.CorrectionRequest{
		DocumentID: "doc-1",
		Field:      domain.FieldCorrespondent,
		NewValue:   "5",
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
