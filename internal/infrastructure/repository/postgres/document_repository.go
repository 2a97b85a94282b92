package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kdocs/attribution-engine/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL DEFAULT '',
	mime_type TEXT NOT NULL DEFAULT '',
	correspondent_id BIGINT,
	document_type_id BIGINT,
	amount DOUBLE PRECISION,
	currency TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	tag_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	last_classified_at TIMESTAMPTZ,
	last_classified_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_correspondent ON documents(correspondent_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, filename, mime_type, correspondent_id, document_type_id, amount, currency, content, tag_ids, last_classified_at, last_classified_by, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var tagsRaw []byte

	err := row.Scan(
		&doc.ID, &doc.Title, &doc.Filename, &doc.MimeType, &doc.CorrespondentID, &doc.DocumentTypeID,
		&doc.Amount, &doc.Currency, &doc.Content, &tagsRaw, &doc.LastClassifiedAt, &doc.LastClassifiedBy,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "fetch document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if err := json.Unmarshal(tagsRaw, &doc.TagIDs); err != nil {
		return nil, fmt.Errorf("unmarshal tag ids: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListRecentIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id
FROM documents
ORDER BY updated_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent documents: %w", err)
	}
	return ids, nil
}

// ApplyAttribute writes one suggested attribute. Correspondent and
// document type are scalar columns; a tag is appended to the JSONB
// array only when not already present, so re-applying is safe.
func (r *DocumentRepository) ApplyAttribute(ctx context.Context, id string, field domain.FieldType, value, appliedBy string) error {
	now := time.Now().UTC()

	switch field {
	case domain.FieldCorrespondent, domain.FieldDocumentType:
		refID, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return domain.WrapError(domain.ErrInvalidInput, "apply attribute",
				fmt.Errorf("%s value %q is not a numeric id", field, value))
		}
		column := "correspondent_id"
		if field == domain.FieldDocumentType {
			column = "document_type_id"
		}
		query := fmt.Sprintf(`
UPDATE documents
SET %s = $2, last_classified_at = $3, last_classified_by = $4, updated_at = $3
WHERE id = $1
`, column)
		res, err := r.db.ExecContext(ctx, query, id, refID, now, appliedBy)
		if err != nil {
			return fmt.Errorf("apply %s: %w", field, err)
		}
		return requireRow(res, id)

	case domain.FieldTag:
		tagID, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return domain.WrapError(domain.ErrInvalidInput, "apply attribute",
				fmt.Errorf("tag value %q is not a numeric id", value))
		}
		res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET tag_ids = CASE WHEN tag_ids @> to_jsonb($2::bigint) THEN tag_ids ELSE tag_ids || to_jsonb($2::bigint) END,
    last_classified_at = $3, last_classified_by = $4, updated_at = $3
WHERE id = $1
`, id, tagID, now, appliedBy)
		if err != nil {
			return fmt.Errorf("apply tag: %w", err)
		}
		return requireRow(res, id)

	default:
		return domain.WrapError(domain.ErrInvalidInput, "apply attribute",
			fmt.Errorf("field %q is not applicable", string(field)))
	}
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "apply attribute", fmt.Errorf("id %s", id))
	}
	return nil
}
