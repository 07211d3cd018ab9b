package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kitchen-print-router/internal/domain"
)

// RulesRepo serves the two-tier routing-rule lookup. Rules are read-only
// from the engine's point of view; the admin UI owns writes.
type RulesRepo struct {
	db *pgxpool.Pool
}

func NewRulesRepo(db *pgxpool.Pool) *RulesRepo { return &RulesRepo{db: db} }

func (r *RulesRepo) StationForItem(ctx context.Context, itemID string) (string, bool, error) {
	rule, ok, err := r.lookup(ctx,
		`SELECT COALESCE(item_id, ''), COALESCE(category_id, ''), station_id
		 FROM routing_rules WHERE item_id=$1`, itemID)
	if err != nil || !ok {
		return "", false, err
	}
	return rule.StationID, true, nil
}

func (r *RulesRepo) StationForCategory(ctx context.Context, categoryID string) (string, bool, error) {
	rule, ok, err := r.lookup(ctx,
		`SELECT COALESCE(item_id, ''), COALESCE(category_id, ''), station_id
		 FROM routing_rules WHERE category_id=$1`, categoryID)
	if err != nil || !ok {
		return "", false, err
	}
	return rule.StationID, true, nil
}

func (r *RulesRepo) lookup(ctx context.Context, query, arg string) (domain.RoutingRule, bool, error) {
	var rule domain.RoutingRule
	err := r.db.QueryRow(ctx, query, arg).Scan(&rule.ItemID, &rule.CategoryID, &rule.StationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RoutingRule{}, false, nil
	}
	if err != nil {
		return domain.RoutingRule{}, false, err
	}
	return rule, true, nil
}
