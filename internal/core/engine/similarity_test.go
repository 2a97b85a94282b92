package engine

import (
	"math"
	"testing"

	"github.com/kdocs/attribution-engine/internal/core/domain"
)

func TestSimilarityReflexive(t *testing.T) {
	e := newTestEngine(t)

	sets := []domain.FeatureSet{
		{},
		{FileType: domain.FileTypeOther},
		{
			CorrespondentID: int64Ptr(5),
			DocumentTypeID:  int64Ptr(2),
			AmountRange:     "500-1k",
			Keywords:        []string{"facture", "consulting"},
			TagIDs:          []int64{1, 4},
			FileType:        domain.FileTypePDF,
		},
		{Keywords: []string{"devis"}, FileType: domain.FileTypeImage},
	}
	for i, fs := range sets {
		if got := e.Similarity(fs, fs); got != 1.0 {
			t.Fatalf("Similarity(F,F) = %v for set %d, want exactly 1.0", got, i)
		}
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	e := newTestEngine(t)

	a := domain.FeatureSet{
		CorrespondentID: int64Ptr(5),
		AmountRange:     "100-500",
		Keywords:        []string{"facture", "services", "consulting"},
		TagIDs:          []int64{1},
		FileType:        domain.FileTypePDF,
	}
	b := domain.FeatureSet{
		CorrespondentID: int64Ptr(5),
		DocumentTypeID:  int64Ptr(9),
		AmountRange:     "500-1k",
		Keywords:        []string{"facture", "audit"},
		TagIDs:          []int64{1, 2},
		FileType:        domain.FileTypeImage,
	}

	if e.Similarity(a, b) != e.Similarity(b, a) {
		t.Fatalf("similarity is not symmetric: %v vs %v", e.Similarity(a, b), e.Similarity(b, a))
	}
}

func TestSimilarityFullyDisjointSetsScoreLow(t *testing.T) {
	e := newTestEngine(t)

	a := domain.FeatureSet{
		CorrespondentID: int64Ptr(1),
		DocumentTypeID:  int64Ptr(1),
		AmountRange:     "0-100",
		Keywords:        []string{"loyer", "appartement"},
		TagIDs:          []int64{1},
		FileType:        domain.FileTypePDF,
	}
	b := domain.FeatureSet{
		CorrespondentID: int64Ptr(2),
		DocumentTypeID:  int64Ptr(2),
		AmountRange:     "10k+",
		Keywords:        []string{"facture", "consulting"},
		TagIDs:          []int64{2},
		FileType:        domain.FileTypeImage,
	}

	if got := e.Similarity(a, b); got >= 0.3 {
		t.Fatalf("disjoint feature sets scored %v, want < 0.3", got)
	}
}

func TestSimilarityNearIdenticalInvoicesScoreHigh(t *testing.T) {
	e := newTestEngine(t)

	a := domain.FeatureSet{
		CorrespondentID: int64Ptr(5),
		DocumentTypeID:  int64Ptr(2),
		AmountRange:     "500-1k",
		Keywords:        []string{"facture", "consulting", "services", "janvier"},
		TagIDs:          []int64{1, 4},
		FileType:        domain.FileTypePDF,
	}
	b := domain.FeatureSet{
		CorrespondentID: int64Ptr(5),
		DocumentTypeID:  int64Ptr(2),
		AmountRange:     "500-1k",
		Keywords:        []string{"facture", "consulting", "services", "fevrier"},
		TagIDs:          []int64{1, 4},
		FileType:        domain.FileTypePDF,
	}

	// Shared: correspondent, type, bucket, tags, file type, 3-of-4 keywords.
	got := e.Similarity(a, b)
	if got <= 0.85 {
		t.Fatalf("near-identical invoices scored %v, want > 0.85", got)
	}
	want := 0.30 + 0.25 + 0.15 + 0.15*(3.0/5.0) + 0.10 + 0.05
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestSimilarityPartialKeywordOverlapUsesJaccard(t *testing.T) {
	e := newTestEngine(t)

	a := domain.FeatureSet{Keywords: []string{"facture", "consulting"}, FileType: domain.FileTypePDF}
	b := domain.FeatureSet{Keywords: []string{"facture", "audit"}, FileType: domain.FileTypeImage}

	// Null ids, empty bucket and empty tag sets contribute nothing; the
	// keyword Jaccard is 1/3 and the file types differ.
	want := 0.15 * (1.0 / 3.0)
	got := e.Similarity(a, b)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestSimilaritySparseUnrelatedSetsScoreNearZero(t *testing.T) {
	e := newTestEngine(t)

	// Neither side carries ids, an amount bucket, or tags. Absent
	// evidence must not count as agreement; only a shared file type
	// could contribute, and here even those differ.
	a := domain.FeatureSet{Keywords: []string{"loyer", "appartement"}, FileType: domain.FileTypePDF}
	b := domain.FeatureSet{Keywords: []string{"facture", "consulting"}, FileType: domain.FileTypeImage}

	if got := e.Similarity(a, b); got != 0.0 {
		t.Fatalf("unrelated sparse sets scored %v, want 0.0", got)
	}

	b.FileType = domain.FileTypePDF
	if got := e.Similarity(a, b); got != 0.05 {
		t.Fatalf("sparse sets sharing only file type scored %v, want 0.05", got)
	}
}

func TestSimilarityWithAlternateWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights = Weights{Correspondent: 1.0}
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	a := domain.FeatureSet{CorrespondentID: int64Ptr(5), Keywords: []string{"x"}, FileType: domain.FileTypePDF}
	b := domain.FeatureSet{CorrespondentID: int64Ptr(5), Keywords: []string{"y"}, FileType: domain.FileTypeText}
	if got := e.Similarity(a, b); got != 1.0 {
		t.Fatalf("correspondent-only weights: score = %v, want 1.0", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"weights off by a little", func(c *Config) { c.Weights.FileType = 0.06 }, true},
		{"negative weight", func(c *Config) { c.Weights.Correspondent = -0.3; c.Weights.DocumentType = 0.85 }, true},
		{"zero keyword limit", func(c *Config) { c.KeywordLimit = 0 }, true},
		{"threshold out of range", func(c *Config) { c.SimilarityThreshold = 1.0 }, true},
		{"rule weight below similarity ceiling", func(c *Config) { c.RuleVoteWeight = 0.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
