package engine

import (
	"slices"

	"github.com/kdocs/attribution-engine/internal/core/domain"
)

// Similarity computes the weighted similarity of two feature sets,
// always within [0,1]. Equality components count only when both sides
// carry a value, and the Jaccard of two empty sets contributes nothing,
// so documents sharing no evidence score at most the file-type weight.
// Identical inputs short-circuit to 1.0, which keeps
// Similarity(F, F) == 1.0 even for sparse sets; the vote aggregator
// still refuses votes from corpus entries without signal
// (see FeatureSet.HasSignal).
func (e *Engine) Similarity(a, b domain.FeatureSet) float64 {
	if featureSetsEqual(a, b) {
		return 1.0
	}

	w := e.cfg.Weights
	score := 0.0

	if bothEqual(a.CorrespondentID, b.CorrespondentID) {
		score += w.Correspondent
	}
	if bothEqual(a.DocumentTypeID, b.DocumentTypeID) {
		score += w.DocumentType
	}
	if a.AmountRange != "" && a.AmountRange == b.AmountRange {
		score += w.AmountRange
	}
	score += w.Keywords * jaccardStrings(a.Keywords, b.Keywords)
	score += w.Tags * jaccardInts(a.TagIDs, b.TagIDs)
	if a.FileType == b.FileType {
		score += w.FileType
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func bothEqual(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}

func featureSetsEqual(a, b domain.FeatureSet) bool {
	return idsEqual(a.CorrespondentID, b.CorrespondentID) &&
		idsEqual(a.DocumentTypeID, b.DocumentTypeID) &&
		a.AmountRange == b.AmountRange &&
		a.FileType == b.FileType &&
		a.ContentHash == b.ContentHash &&
		a.HasAmount == b.HasAmount &&
		slices.Equal(a.Keywords, b.Keywords) &&
		slices.Equal(a.TagIDs, b.TagIDs) &&
		slices.Equal(a.TitleKeywords, b.TitleKeywords)
}

func idsEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func jaccardStrings(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	intersection := 0
	union := len(set)
	seen := make(map[string]struct{}, len(b))
	for _, v := range b {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if _, ok := set[v]; ok {
			intersection++
		} else {
			union++
		}
	}
	return float64(intersection) / float64(union)
}

func jaccardInts(a, b []int64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	set := make(map[int64]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	intersection := 0
	union := len(set)
	seen := make(map[int64]struct{}, len(b))
	for _, v := range b {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if _, ok := set[v]; ok {
			intersection++
		} else {
			union++
		}
	}
	return float64(intersection) / float64(union)
}
