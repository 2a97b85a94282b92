package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/kdocs/attribution-engine/internal/core/domain"
	"github.com/kdocs/attribution-engine/internal/core/ports"
)

type ReclassifyUseCase struct {
	docs     ports.DocumentRepository
	suggest  ports.SuggestionService
	recorder ports.CorrectionRecorder
	queue    ports.MessageQueue

	autoApplyThreshold float64
	log                *slog.Logger

	onAutoApply func(field domain.FieldType)
}

// OnAutoApply registers a callback invoked once per auto-applied
// attribute. The worker hangs its counters off this.
func (uc *ReclassifyUseCase) OnAutoApply(fn func(field domain.FieldType)) {
	uc.onAutoApply = fn
}

func NewReclassifyUseCase(
	docs ports.DocumentRepository,
	suggest ports.SuggestionService,
	recorder ports.CorrectionRecorder,
	queue ports.MessageQueue,
	autoApplyThreshold float64,
	log *slog.Logger,
) *ReclassifyUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &ReclassifyUseCase{
		docs:               docs,
		suggest:            suggest,
		recorder:           recorder,
		queue:              queue,
		autoApplyThreshold: autoApplyThreshold,
		log:                log,
	}
}

// Enqueue requests asynchronous reclassification of one document. The
// document must exist; a dangling id would poison the work queue.
func (uc *ReclassifyUseCase) Enqueue(ctx context.Context, documentID string) error {
	if _, err := uc.docs.GetByID(ctx, documentID); err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}
	if err := uc.queue.PublishReclassify(ctx, documentID); err != nil {
		return fmt.Errorf("publish reclassify event: %w", err)
	}
	return nil
}

// EnqueueRecent publishes reclassification requests for the most
// recently updated documents. Used by the periodic sweep.
func (uc *ReclassifyUseCase) EnqueueRecent(ctx context.Context, limit int) (int, error) {
	ids, err := uc.docs.ListRecentIDs(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list recent document ids: %w", err)
	}
	published := 0
	for _, id := range ids {
		if err := uc.queue.PublishReclassify(ctx, id); err != nil {
			return published, fmt.Errorf("publish reclassify event: %w", err)
		}
		published++
	}
	return published, nil
}

// ProcessByID recomputes suggestions for one document and applies those
// the engine is confident enough about. Attributes the document already
// carries are never overwritten; reclassification fills gaps, a human
// resolves conflicts.
func (uc *ReclassifyUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	suggestions, err := uc.suggest.SuggestByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("compute suggestions: %w", err)
	}

	applied := 0
	for _, s := range suggestions {
		if s.Confidence < uc.autoApplyThreshold {
			continue
		}
		set, err := attributeAlreadySet(doc, s.Field, s.Value)
		if err != nil {
			uc.log.Warn("skipping unapplicable suggestion",
				"document_id", documentID, "field", string(s.Field), "error", err)
			continue
		}
		if set {
			continue
		}

		if err := uc.docs.ApplyAttribute(ctx, documentID, s.Field, s.Value, string(domain.SourceAuto)); err != nil {
			return fmt.Errorf("apply %s: %w", s.Field, err)
		}
		if _, err := uc.recorder.Record(ctx, domain.CorrectionRequest{
			DocumentID: documentID,
			Field:      s.Field,
			NewValue:   s.Value,
			Source:     domain.SourceAuto,
			Confidence: s.Confidence,
		}); err != nil {
			return fmt.Errorf("record auto correction: %w", err)
		}
		applied++
		if uc.onAutoApply != nil {
			uc.onAutoApply(s.Field)
		}
		uc.log.Info("attribute auto-applied",
			"document_id", documentID,
			"field", string(s.Field),
			"value", s.Value,
			"confidence", s.Confidence)
	}

	uc.log.Debug("reclassification done",
		"document_id", documentID, "suggestions", len(suggestions), "applied", applied)
	return nil
}

// ProcessBatch reclassifies many documents with bounded parallelism and
// returns the combined failures. One bad document does not abort the
// batch.
func (uc *ReclassifyUseCase) ProcessBatch(ctx context.Context, documentIDs []string, parallelism int) error {
	if parallelism < 1 {
		parallelism = 1
	}

	ids := make(chan string)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for w := 0; w < parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				if err := uc.ProcessByID(ctx, id); err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("document %s: %w", id, err))
					mu.Unlock()
				}
			}
		}()
	}

	for _, id := range documentIDs {
		select {
		case <-ctx.Done():
			close(ids)
			wg.Wait()
			return ctx.Err()
		case ids <- id:
		}
	}
	close(ids)
	wg.Wait()

	return errors.Join(errs...)
}

func attributeAlreadySet(doc *domain.Document, field domain.FieldType, value string) (bool, error) {
	switch field {
	case domain.FieldCorrespondent:
		return doc.CorrespondentID != nil, nil
	case domain.FieldDocumentType:
		return doc.DocumentTypeID != nil, nil
	case domain.FieldTag:
		tagID, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return false, fmt.Errorf("tag value %q is not a numeric id", value)
		}
		return doc.HasTag(tagID), nil
	default:
		return false, fmt.Errorf("field %q is not applicable", string(field))
	}
}
