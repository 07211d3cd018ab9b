// Package routing decides which station each order line belongs to.
package routing

import (
	"context"
	"fmt"

	"kitchen-print-router/internal/domain"
	"kitchen-print-router/internal/logger"
	"kitchen-print-router/internal/ticket"
)

// RuleStore is the two-tier routing-rule lookup. Both lookups return
// (stationID, found, err); found=false is not an error.
type RuleStore interface {
	StationForItem(ctx context.Context, itemID string) (string, bool, error)
	StationForCategory(ctx context.Context, categoryID string) (string, bool, error)
}

// Assignment buckets an order's renderable items per station, preserving the
// order stations were first seen in while walking the order lines.
type Assignment struct {
	StationIDs []string
	Items      map[string][]domain.RenderableItem
}

type Resolver struct {
	rules RuleStore
	lg    *logger.Logger
}

func New(rules RuleStore, lg *logger.Logger) *Resolver {
	return &Resolver{rules: rules, lg: lg}
}

// Resolve maps every order line to exactly one station. An item rule beats a
// category rule for the same line. A line with no rule at all is dropped from
// every ticket and logged as a warning; it never fails the order.
func (r *Resolver) Resolve(ctx context.Context, order domain.Order) (Assignment, error) {
	asg := Assignment{Items: make(map[string][]domain.RenderableItem)}

	for _, line := range order.Lines {
		stationID, found, err := r.rules.StationForItem(ctx, line.ItemID)
		if err != nil {
			return Assignment{}, fmt.Errorf("item rule lookup %s: %w", line.ItemID, err)
		}
		if !found {
			stationID, found, err = r.rules.StationForCategory(ctx, line.CategoryID)
			if err != nil {
				return Assignment{}, fmt.Errorf("category rule lookup %s: %w", line.CategoryID, err)
			}
		}
		if !found {
			r.lg.Warn("unrouted_order_line", map[string]any{
				"order_id": order.ID,
				"item_id":  line.ItemID,
				"item":     line.Name,
			})
			continue
		}

		if _, known := asg.Items[stationID]; !known {
			asg.StationIDs = append(asg.StationIDs, stationID)
		}
		asg.Items[stationID] = append(asg.Items[stationID], ticket.Renderable(line))
	}
	return asg, nil
}
