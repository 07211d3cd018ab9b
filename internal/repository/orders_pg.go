package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kitchen-print-router/internal/domain"
)

// OrdersRepo loads the order aggregate for the gateway's manual reprint
// trigger. The worker path decodes the same shape off the queue instead.
type OrdersRepo struct {
	db *pgxpool.Pool
}

func NewOrdersRepo(db *pgxpool.Pool) *OrdersRepo { return &OrdersRepo{db: db} }

func (r *OrdersRepo) GetOrder(ctx context.Context, id string) (domain.Order, bool, error) {
	var o domain.Order
	err := r.db.QueryRow(ctx, `
SELECT id, number, order_type, COALESCE(table_label,''), COALESCE(notes,'')
FROM orders WHERE id=$1
`, id).Scan(&o.ID, &o.Number, &o.Type, &o.TableLabel, &o.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, err
	}

	rows, err := r.db.Query(ctx, `
SELECT item_id, category_id, name, quantity, COALESCE(notes,''), COALESCE(modifiers,'[]')
FROM order_lines WHERE order_id=$1
ORDER BY position ASC
`, id)
	if err != nil {
		return domain.Order{}, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		var modsRaw []byte
		if err := rows.Scan(&line.ItemID, &line.CategoryID, &line.Name,
			&line.Quantity, &line.Notes, &modsRaw); err != nil {
			return domain.Order{}, false, err
		}
		var mods []domain.ModifierMsg
		if err := json.Unmarshal(modsRaw, &mods); err != nil {
			return domain.Order{}, false, fmt.Errorf("order %s modifiers: %w", id, err)
		}
		for _, m := range mods {
			line.Modifiers = append(line.Modifiers, domain.Modifier{Name: m.Name, IsRemoval: m.IsRemoval})
		}
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, false, err
	}
	return o, true, nil
}
