package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kdocs/attribution-engine/internal/core/domain"
	"github.com/kdocs/attribution-engine/internal/core/engine"
	"github.com/kdocs/attribution-engine/internal/core/ports"
)

type RecordCorrectionUseCase struct {
	docs        ports.DocumentRepository
	corrections ports.CorrectionRepository
	engine      *engine.Engine
	log         *slog.Logger
}

func NewRecordCorrectionUseCase(
	docs ports.DocumentRepository,
	corrections ports.CorrectionRepository,
	eng *engine.Engine,
	log *slog.Logger,
) *RecordCorrectionUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &RecordCorrectionUseCase{
		docs:        docs,
		corrections: corrections,
		engine:      eng,
		log:         log,
	}
}

// Record snapshots the document's current feature set together with the
// confirmed attribute value and appends it to the correction log. The
// snapshot is taken at correction time on purpose: later edits to the
// document must not rewrite the evidence this correction carries.
func (uc *RecordCorrectionUseCase) Record(ctx context.Context, req domain.CorrectionRequest) (*domain.Correction, error) {
	if err := validateCorrectionRequest(req); err != nil {
		return nil, err
	}

	doc, err := uc.docs.GetByID(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	source := req.Source
	if source == "" {
		source = domain.SourceManual
	}

	correction := &domain.Correction{
		ID:          uuid.NewString(),
		DocumentID:  doc.ID,
		Field:       req.Field,
		OldValue:    req.OldValue,
		NewValue:    req.NewValue,
		Features:    uc.engine.ExtractFeatures(doc),
		Source:      source,
		Confidence:  req.Confidence,
		CorrectedAt: time.Now().UTC(),
	}

	if err := uc.corrections.Create(ctx, correction); err != nil {
		return nil, fmt.Errorf("create correction: %w", err)
	}

	uc.log.Info("correction recorded",
		"correction_id", correction.ID,
		"document_id", correction.DocumentID,
		"field", string(correction.Field),
		"source", string(correction.Source))
	return correction, nil
}

func validateCorrectionRequest(req domain.CorrectionRequest) error {
	switch {
	case req.DocumentID == "":
		return domain.WrapError(domain.ErrInvalidInput, "record correction", errors.New("missing document_id"))
	case !req.Field.Predictable():
		return domain.WrapError(domain.ErrInvalidInput, "record correction",
			fmt.Errorf("field %q is not a predictable attribute", string(req.Field)))
	case req.NewValue == "":
		return domain.WrapError(domain.ErrInvalidInput, "record correction", errors.New("missing new_value"))
	case req.Confidence < 0 || req.Confidence > 1:
		return domain.WrapError(domain.ErrInvalidInput, "record correction",
			fmt.Errorf("confidence %v outside [0,1]", req.Confidence))
	}
	switch req.Source {
	case "", domain.SourceManual, domain.SourceRules, domain.SourceAuto:
		return nil
	default:
		return domain.WrapError(domain.ErrInvalidInput, "record correction",
			fmt.Errorf("unknown source %q", string(req.Source)))
	}
}
