package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kelechi-nwosu/docpipeline/internal/entity"
)

// RuleRepository serves the administrator-configured routing rule set.
// The pipeline only ever reads it.
type RuleRepository interface {
	ListActive(ctx context.Context) ([]entity.RoutingRule, error)
	Upsert(ctx context.Context, rule *entity.RoutingRule) error
}

type ruleRepo struct {
	db  *DB
	log *slog.Logger
}

func NewRuleRepository(db *DB, log *slog.Logger) RuleRepository {
	if log == nil {
		log = slog.Default()
	}
	return &ruleRepo{db: db, log: log}
}

func (r *ruleRepo) ListActive(ctx context.Context) ([]entity.RoutingRule, error) {
	q := r.db.Rebind(`SELECT id, condition, provider, rationale, priority, is_active
		FROM routing_rules WHERE is_active = ? ORDER BY priority ASC, condition ASC`)
	rows, err := r.db.QueryContext(ctx, q, true)
	if err != nil {
		return nil, fmt.Errorf("list routing rules: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.log.Warn("rule rows close error", "err", err)
		}
	}()

	var out []entity.RoutingRule
	for rows.Next() {
		var (
			rule  entity.RoutingRule
			idStr string
		)
		if err := rows.Scan(&idStr, &rule.Condition, &rule.Provider, &rule.Rationale, &rule.Priority, &rule.IsActive); err != nil {
			return nil, fmt.Errorf("scan routing rule: %w", err)
		}
		if rule.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parse rule id %q: %w", idStr, err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *ruleRepo) Upsert(ctx context.Context, rule *entity.RoutingRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	q := r.db.Rebind(`INSERT INTO routing_rules (id, condition, provider, rationale, priority, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			condition = excluded.condition,
			provider = excluded.provider,
			rationale = excluded.rationale,
			priority = excluded.priority,
			is_active = excluded.is_active`)
	_, err := r.db.ExecContext(ctx, q,
		rule.ID.String(), rule.Condition, rule.Provider, rule.Rationale, rule.Priority, rule.IsActive)
	if err != nil {
		r.log.Error("routing rule upsert failed", "condition", rule.Condition, "err", err)
		return fmt.Errorf("upsert routing rule: %w", err)
	}
	r.log.Info("routing rule saved", "rule_id", rule.ID, "condition", rule.Condition, "provider", rule.Provider, "priority", rule.Priority)
	return nil
}
