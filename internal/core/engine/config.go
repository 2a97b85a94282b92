package engine

import (
	"fmt"
	"math"
)

// Weights is the component weight table of the similarity score.
// The six weights must sum to exactly 1.0; this is validated once at
// construction time, not per document.
type Weights struct {
	Correspondent float64 `yaml:"correspondent"`
	DocumentType  float64 `yaml:"document_type"`
	AmountRange   float64 `yaml:"amount_range"`
	Keywords      float64 `yaml:"keywords"`
	Tags          float64 `yaml:"tags"`
	FileType      float64 `yaml:"file_type"`
}

func (w Weights) sum() float64 {
	return w.Correspondent + w.DocumentType + w.AmountRange + w.Keywords + w.Tags + w.FileType
}

// Config carries every tunable of the attribution engine. Zero values
// are not usable; start from DefaultConfig and override.
type Config struct {
	Weights Weights `yaml:"weights"`

	// KeywordLimit caps the keyword set extracted from document content;
	// TitleKeywordLimit does the same for the title.
	KeywordLimit      int `yaml:"keyword_limit"`
	TitleKeywordLimit int `yaml:"title_keyword_limit"`

	// SimilarityThreshold is the minimum similarity score a corpus entry
	// must reach before it casts a vote.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// RuleVoteWeight is the fixed weight of a firing rule's vote. Rules
	// encode explicit admin intent, so the weight must stay above 1.0,
	// the maximum weight any single similarity vote can carry.
	RuleVoteWeight float64 `yaml:"rule_vote_weight"`

	// ExtraStopwords extends the built-in stop-word list.
	ExtraStopwords []string `yaml:"extra_stopwords"`
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Correspondent: 0.30,
			DocumentType:  0.25,
			AmountRange:   0.15,
			Keywords:      0.15,
			Tags:          0.10,
			FileType:      0.05,
		},
		KeywordLimit:        20,
		TitleKeywordLimit:   10,
		SimilarityThreshold: 0.3,
		RuleVoteWeight:      2.0,
	}
}

const weightSumTolerance = 1e-9

// Validate fails loudly on misconfiguration so that a broken weight
// table is a startup error, never a silent per-document one.
func (c Config) Validate() error {
	if diff := math.Abs(c.Weights.sum() - 1.0); diff > weightSumTolerance {
		return fmt.Errorf("similarity weights must sum to 1.0, got %v", c.Weights.sum())
	}
	for name, w := range map[string]float64{
		"correspondent": c.Weights.Correspondent,
		"document_type": c.Weights.DocumentType,
		"amount_range":  c.Weights.AmountRange,
		"keywords":      c.Weights.Keywords,
		"tags":          c.Weights.Tags,
		"file_type":     c.Weights.FileType,
	} {
		if w < 0 {
			return fmt.Errorf("similarity weight %s must not be negative, got %v", name, w)
		}
	}
	if c.KeywordLimit <= 0 {
		return fmt.Errorf("keyword limit must be positive, got %d", c.KeywordLimit)
	}
	if c.TitleKeywordLimit <= 0 {
		return fmt.Errorf("title keyword limit must be positive, got %d", c.TitleKeywordLimit)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold >= 1 {
		return fmt.Errorf("similarity threshold must be within [0,1), got %v", c.SimilarityThreshold)
	}
	if c.RuleVoteWeight < 1.0 {
		return fmt.Errorf("rule vote weight must be >= 1.0 so rules outweigh any single similarity vote, got %v", c.RuleVoteWeight)
	}
	return nil
}
