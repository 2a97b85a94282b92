package ports

import (
	"context"

	"github.com/kdocs/attribution-engine/internal/core/domain"
	"github.com/kdocs/attribution-engine/internal/core/engine"
)

// SuggestionService is the inbound contract for computing attribute
// suggestions, either for a stored document or for an ad-hoc payload.
type SuggestionService interface {
	SuggestByID(ctx context.Context, documentID string) ([]domain.Suggestion, error)
	Preview(ctx context.Context, doc *domain.Document) ([]domain.Suggestion, error)
}

// RuleTester is the inbound contract for dry-running a stored rule
// against a document payload without casting any votes.
type RuleTester interface {
	TestRule(ctx context.Context, ruleID string, doc *domain.Document) (*engine.RuleEvaluation, error)
}

// CorrectionRecorder is the inbound contract for recording a confirmed
// attribution so it can vote on future documents.
type CorrectionRecorder interface {
	Record(ctx context.Context, req domain.CorrectionRequest) (*domain.Correction, error)
}

// Reclassifier is the inbound contract for asynchronous reclassification.
type Reclassifier interface {
	Enqueue(ctx context.Context, documentID string) error
	ProcessByID(ctx context.Context, documentID string) error
}
