package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kdocs/attribution-engine/internal/core/domain"
)

// RuleRepository reads the attribution rules. Rules are authored by the
// document management UI; this service never writes them.
type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030502)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS attribution_rules (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	stop_on_match BOOLEAN NOT NULL DEFAULT FALSE,
	condition_groups JSONB NOT NULL DEFAULT '[]'::jsonb,
	actions JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attribution_rules_enabled_priority ON attribution_rules(enabled, priority);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RuleRepository) ListEnabled(ctx context.Context) ([]domain.Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, priority, enabled, stop_on_match, condition_groups, actions, created_at, updated_at
FROM attribution_rules
WHERE enabled = TRUE
ORDER BY priority DESC, name
`)
	if err != nil {
		return nil, fmt.Errorf("query enabled rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*domain.Rule, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, priority, enabled, stop_on_match, condition_groups, actions, created_at, updated_at
FROM attribution_rules
WHERE id = $1
`, id)

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRuleNotFound, "fetch rule", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return rule, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*domain.Rule, error) {
	var rule domain.Rule
	var groupsRaw, actionsRaw []byte

	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Priority, &rule.Enabled, &rule.StopOnMatch,
		&groupsRaw, &actionsRaw, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan rule: %w", err)
	}

	if err := json.Unmarshal(groupsRaw, &rule.Groups); err != nil {
		return nil, fmt.Errorf("unmarshal condition groups: %w", err)
	}
	if err := json.Unmarshal(actionsRaw, &rule.Actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	return &rule, nil
}
