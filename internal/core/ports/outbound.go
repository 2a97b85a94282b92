package ports

import (
	"context"

	"github.com/kdocs/attribution-engine/internal/core/domain"
)

// DocumentRepository reads and updates document attribution state.
type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListRecentIDs(ctx context.Context, limit int) ([]string, error)
	ApplyAttribute(ctx context.Context, id string, field domain.FieldType, value string, appliedBy string) error
}

// RuleRepository reads the attribution rule set. Rules are authored
// elsewhere; this service only evaluates them.
type RuleRepository interface {
	ListEnabled(ctx context.Context) ([]domain.Rule, error)
	GetByID(ctx context.Context, id string) (*domain.Rule, error)
}

// CorrectionRepository persists confirmed attributions and serves the
// per-field corpus windows that similarity voting runs against.
type CorrectionRepository interface {
	Create(ctx context.Context, correction *domain.Correction) error
	ListRecentByField(ctx context.Context, field domain.FieldType, limit int) ([]domain.Correction, error)
}

// MessageQueue publishes/consumes reclassification requests.
type MessageQueue interface {
	PublishReclassify(ctx context.Context, documentID string) error
	SubscribeReclassify(ctx context.Context, handler func(context.Context, string) error) error
}
