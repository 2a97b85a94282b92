package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kdocs/attribution-engine/internal/core/domain"
	"github.com/kdocs/attribution-engine/internal/core/engine"
	"github.com/kdocs/attribution-engine/internal/core/ports"
)

type SuggestUseCase struct {
	docs        ports.DocumentRepository
	rules       ports.RuleRepository
	corrections ports.CorrectionRepository
	engine      *engine.Engine

	corpusWindow        int
	suggestionThreshold float64
	log                 *slog.Logger
}

func NewSuggestUseCase(
	docs ports.DocumentRepository,
	rules ports.RuleRepository,
	corrections ports.CorrectionRepository,
	eng *engine.Engine,
	corpusWindow int,
	suggestionThreshold float64,
	log *slog.Logger,
) *SuggestUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &SuggestUseCase{
		docs:                docs,
		rules:               rules,
		corrections:         corrections,
		engine:              eng,
		corpusWindow:        corpusWindow,
		suggestionThreshold: suggestionThreshold,
		log:                 log,
	}
}

// SuggestByID computes suggestions for a stored document. Suggestions
// below the serving threshold are dropped, not surfaced with a caveat.
func (uc *SuggestUseCase) SuggestByID(ctx context.Context, documentID string) ([]domain.Suggestion, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return uc.suggest(ctx, doc)
}

// Preview computes suggestions for a document payload that may not be
// persisted, using the same rules and corpus as SuggestByID.
func (uc *SuggestUseCase) Preview(ctx context.Context, doc *domain.Document) ([]domain.Suggestion, error) {
	if doc == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "preview suggestions", errors.New("missing document payload"))
	}
	return uc.suggest(ctx, doc)
}

// TestRule dry-runs one stored rule against a document payload and
// returns the per-condition evaluation detail. Disabled rules can be
// tested too; no votes are cast and nothing is written.
func (uc *SuggestUseCase) TestRule(ctx context.Context, ruleID string, doc *domain.Document) (*engine.RuleEvaluation, error) {
	if doc == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "test rule", errors.New("missing document payload"))
	}
	rule, err := uc.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("fetch rule by id: %w", err)
	}
	eval := uc.engine.EvaluateRule(*rule, doc)
	return &eval, nil
}

func (uc *SuggestUseCase) suggest(ctx context.Context, doc *domain.Document) ([]domain.Suggestion, error) {
	rules, err := uc.rules.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled rules: %w", err)
	}

	corpus, err := uc.loadCorpus(ctx)
	if err != nil {
		return nil, err
	}

	suggestions := uc.engine.Suggest(doc, rules, corpus)

	served := suggestions[:0]
	for _, s := range suggestions {
		if s.Confidence >= uc.suggestionThreshold {
			served = append(served, s)
		}
	}
	uc.log.Debug("computed suggestions",
		"document_id", doc.ID,
		"rules", len(rules),
		"corpus", len(corpus),
		"served", len(served),
		"dropped", len(suggestions)-len(served))
	return served, nil
}

// loadCorpus reads a bounded recent correction window per predictable
// field. A large history must not slow a single suggestion call down.
func (uc *SuggestUseCase) loadCorpus(ctx context.Context) ([]domain.Correction, error) {
	var corpus []domain.Correction
	for _, field := range domain.PredictableFields() {
		window, err := uc.corrections.ListRecentByField(ctx, field, uc.corpusWindow)
		if err != nil {
			return nil, fmt.Errorf("list corrections for %s: %w", field, err)
		}
		corpus = append(corpus, window...)
	}
	return corpus, nil
}
