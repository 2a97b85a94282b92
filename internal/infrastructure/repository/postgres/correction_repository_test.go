package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kdocs/attribution-engine/internal/core/domain"
)

func newCorrectionRepoWithMock(t *testing.T) (*CorrectionRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &CorrectionRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestCorrectionCreateMarshalsFeatures(t *testing.T) {
	repo, mock, done := newCorrectionRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO attribution_corrections").
		WithArgs("c-1", "doc-1", "correspondent", "", "5", sqlmock.AnyArg(), "manual", 0.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.Correction{
		ID:         "c-1",
		DocumentID: "doc-1",
		Field:      domain.FieldCorrespondent,
		NewValue:   "5",
		Features: domain.FeatureSet{
			Keywords: []string{"facture", "consulting"},
			FileType: domain.FileTypePDF,
		},
		Source:      domain.SourceManual,
		CorrectedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRecentByFieldDecodesFeatures(t *testing.T) {
	repo, mock, done := newCorrectionRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	features := `{"correspondent_id":5,"amount_range":"500-1k","keywords":["facture","consulting"],"file_type":"pdf"}`
	rows := sqlmock.NewRows([]string{
		"id", "document_id", "field", "old_value", "new_value",
		"features", "source", "confidence", "corrected_at",
	}).AddRow("c-1", "doc-1", "correspondent", "", "5", []byte(features), "manual", 0.9, now)

	mock.ExpectQuery("SELECT id, document_id, field").
		WithArgs("correspondent", 200).
		WillReturnRows(rows)

	got, err := repo.ListRecentByField(context.Background(), domain.FieldCorrespondent, 200)
	if err != nil {
		t.Fatalf("ListRecentByField() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one correction, got %d", len(got))
	}
	c := got[0]
	if c.Field != domain.FieldCorrespondent || c.Source != domain.SourceManual {
		t.Fatalf("typed fields = %s/%s, want correspondent/manual", c.Field, c.Source)
	}
	if c.Features.CorrespondentID == nil || *c.Features.CorrespondentID != 5 {
		t.Fatalf("features.correspondent_id = %v, want 5", c.Features.CorrespondentID)
	}
	if c.Features.AmountRange != "500-1k" || len(c.Features.Keywords) != 2 {
		t.Fatalf("features = %+v, want amount_range 500-1k with two keywords", c.Features)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
