package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kdocs/attribution-engine/internal/core/domain"
)

// CorrectionRepository persists the append-only correction log and
// serves the bounded recent windows the similarity corpus is built
// from.
type CorrectionRepository struct {
	db *sql.DB
}

func NewCorrectionRepository(db *sql.DB) *CorrectionRepository {
	return &CorrectionRepository{db: db}
}

func (r *CorrectionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030503)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS attribution_corrections (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	field TEXT NOT NULL,
	old_value TEXT NOT NULL DEFAULT '',
	new_value TEXT NOT NULL,
	features JSONB NOT NULL DEFAULT '{}'::jsonb,
	source TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	corrected_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_corrections_field_corrected_at ON attribution_corrections(field, corrected_at DESC);
CREATE INDEX IF NOT EXISTS idx_corrections_document ON attribution_corrections(document_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CorrectionRepository) Create(ctx context.Context, correction *domain.Correction) error {
	featuresJSON, err := json.Marshal(correction.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO attribution_corrections (
	id, document_id, field, old_value, new_value, features, source, confidence, corrected_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		correction.ID, correction.DocumentID, string(correction.Field), correction.OldValue,
		correction.NewValue, featuresJSON, string(correction.Source), correction.Confidence,
		correction.CorrectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert correction: %w", err)
	}
	return nil
}

func (r *CorrectionRepository) ListRecentByField(ctx context.Context, field domain.FieldType, limit int) ([]domain.Correction, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, field, old_value, new_value, features, source, confidence, corrected_at
FROM attribution_corrections
WHERE field = $1
ORDER BY corrected_at DESC
LIMIT $2
`, string(field), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent corrections: %w", err)
	}
	defer rows.Close()

	var corrections []domain.Correction
	for rows.Next() {
		var c domain.Correction
		var featuresRaw []byte
		var fieldRaw, sourceRaw string

		err := rows.Scan(
			&c.ID, &c.DocumentID, &fieldRaw, &c.OldValue, &c.NewValue,
			&featuresRaw, &sourceRaw, &c.Confidence, &c.CorrectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		if err := json.Unmarshal(featuresRaw, &c.Features); err != nil {
			return nil, fmt.Errorf("unmarshal features: %w", err)
		}
		c.Field = domain.FieldType(fieldRaw)
		c.Source = domain.CorrectionSource(sourceRaw)
		corrections = append(corrections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corrections: %w", err)
	}
	return corrections, nil
}
