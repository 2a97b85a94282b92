package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/kdocs/attribution-engine/internal/core/domain"
)

// ExtractFeatures derives the comparable fingerprint of a document.
// Extraction is deterministic and total: absent fields map to empty
// feature values, never an error.
func (e *Engine) ExtractFeatures(doc *domain.Document) domain.FeatureSet {
	if doc == nil {
		return domain.FeatureSet{FileType: domain.FileTypeOther}
	}
	fs := domain.FeatureSet{
		CorrespondentID: doc.CorrespondentID,
		DocumentTypeID:  doc.DocumentTypeID,
		Keywords:        e.extractKeywords(doc.Content, e.cfg.KeywordLimit),
		TagIDs:          append([]int64(nil), doc.TagIDs...),
		FileType:        classifyFileType(doc.MimeType, doc.Filename),
		ContentHash:     hashContent(doc.Content),
		TitleKeywords:   e.extractKeywords(doc.Title, e.cfg.TitleKeywordLimit),
	}
	if doc.Amount != nil {
		fs.AmountRange = amountRange(*doc.Amount)
		fs.HasAmount = true
	}
	return fs
}

// extractKeywords lowercases the text, tokenizes on non-alphanumeric
// boundaries, drops tokens shorter than three runes and stop-words, then
// keeps the limit most frequent tokens. Tokens with equal frequency rank
// by first occurrence, which keeps the result deterministic.
func (e *Engine) extractKeywords(text string, limit int) []string {
	if text == "" || limit <= 0 {
		return nil
	}

	tokens := tokenize(strings.ToLower(text))

	type entry struct {
		count int
		first int
	}
	counts := make(map[string]*entry)
	order := make([]string, 0, len(tokens))
	for i, token := range tokens {
		if len([]rune(token)) < 3 {
			continue
		}
		if _, stop := e.stopwords[token]; stop {
			continue
		}
		if existing, ok := counts[token]; ok {
			existing.count++
			continue
		}
		counts[token] = &entry{count: 1, first: i}
		order = append(order, token)
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := counts[order[i]], counts[order[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		return a.first < b.first
	})

	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// amountBuckets is scanned top-down: the first threshold the absolute
// amount reaches names the bucket, so every bucket is inclusive of its
// lower edge and exclusive of the upper one.
var amountBuckets = []struct {
	threshold float64
	label     string
}{
	{10000, "10k+"},
	{5000, "5k-10k"},
	{1000, "1k-5k"},
	{500, "500-1k"},
	{100, "100-500"},
	{0, "0-100"},
}

func amountRange(amount float64) string {
	amount = math.Abs(amount)
	for _, bucket := range amountBuckets {
		if amount >= bucket.threshold {
			return bucket.label
		}
	}
	return "0-100"
}

var mimeFileTypes = map[string]domain.FileType{
	"application/pdf": domain.FileTypePDF,
	"image/jpeg":      domain.FileTypeImage,
	"image/jpg":       domain.FileTypeImage,
	"image/png":       domain.FileTypeImage,
	"image/gif":       domain.FileTypeImage,
	"image/tiff":      domain.FileTypeImage,
	"application/msword": domain.FileTypeWord,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": domain.FileTypeWord,
	"application/vnd.ms-excel": domain.FileTypeExcel,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": domain.FileTypeExcel,
	"text/plain": domain.FileTypeText,
}

var extensionFileTypes = map[string]domain.FileType{
	".pdf":  domain.FileTypePDF,
	".jpg":  domain.FileTypeImage,
	".jpeg": domain.FileTypeImage,
	".png":  domain.FileTypeImage,
	".gif":  domain.FileTypeImage,
	".tiff": domain.FileTypeImage,
	".doc":  domain.FileTypeWord,
	".docx": domain.FileTypeWord,
	".xls":  domain.FileTypeExcel,
	".xlsx": domain.FileTypeExcel,
	".txt":  domain.FileTypeText,
}

func classifyFileType(mimeType, filename string) domain.FileType {
	if ft, ok := mimeFileTypes[strings.ToLower(strings.TrimSpace(mimeType))]; ok {
		return ft
	}
	if ft, ok := extensionFileTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ft
	}
	return domain.FileTypeOther
}

// hashContent digests whitespace- and punctuation-normalized content.
// The hash serves as an equality and dedup signal only; it never feeds
// the similarity score.
func hashContent(content string) string {
	normalized := strings.ToLower(strings.TrimSpace(content))
	var b strings.Builder
	b.Grow(len(normalized))
	lastSpace := false
	for _, r := range normalized {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) && !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(b.String())))
	return hex.EncodeToString(sum[:])
}
