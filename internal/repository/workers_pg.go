package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WorkersRepo tracks router-worker instances so operators can see which
// worker is draining the print queue and since when.
type WorkersRepo struct {
	db *pgxpool.Pool
}

func NewWorkersRepo(db *pgxpool.Pool) *WorkersRepo { return &WorkersRepo{db: db} }

// RegisterOrFail registers the worker as online. A worker name that is
// already online is refused so two instances never share a consumer tag.
func (r *WorkersRepo) RegisterOrFail(ctx context.Context, name string) error {
	var status string
	err := r.db.QueryRow(ctx,
		`SELECT status FROM print_workers WHERE name=$1`, name).Scan(&status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = r.db.Exec(ctx, `
INSERT INTO print_workers(name, status, last_seen) VALUES ($1, 'online', now())
`, name)
		return err
	case err != nil:
		return err
	default:
		if status == "online" {
			return fmt.Errorf("worker %s already online", name)
		}
		_, err = r.db.Exec(ctx, `
UPDATE print_workers SET status='online', last_seen=now() WHERE name=$1
`, name)
		return err
	}
}

func (r *WorkersRepo) Heartbeat(ctx context.Context, name string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE print_workers SET last_seen=now() WHERE name=$1`, name)
	return err
}

func (r *WorkersRepo) SetOffline(ctx context.Context, name string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE print_workers SET status='offline', last_seen=now() WHERE name=$1`, name)
	return err
}

// BumpProcessed increments the worker's routed-order counter.
func (r *WorkersRepo) BumpProcessed(ctx context.Context, name string) error {
	_, err := r.db.Exec(ctx, `
UPDATE print_workers SET orders_routed = orders_routed + 1, last_seen=now() WHERE name=$1
`, name)
	return err
}
