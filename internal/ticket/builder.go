// Package ticket turns raw order data into the pre-render form a station
// ticket is printed from. Everything here is pure; no I/O, no clocks.
package ticket

import (
	"strings"
	"time"

	"kitchen-print-router/internal/domain"
)

var urgentKeywords = []string{"urgent", "emergency", "asap"}

// Allergen vocabulary, matched case-insensitively as substrings. "allerg"
// covers allergy/allergic/allergen; "nut" also matches inside "peanut", which
// the warning dedup absorbs.
var allergenKeywords = []string{
	"allerg", "peanut", "nut", "dairy", "lactose",
	"gluten", "shellfish", "seafood", "egg", "soy",
}

// Content is the station-independent part of an order's tickets: every
// station gets the same priority and the same allergy block.
type Content struct {
	Priority        domain.Priority
	AllergyWarnings []string
}

func Analyze(order domain.Order) Content {
	return Content{
		Priority:        ClassifyPriority(order.Type, order.Notes),
		AllergyWarnings: ExtractAllergyWarnings(order),
	}
}

// ClassifyPriority: an urgent keyword in the notes wins outright, even when
// the notes also say "rush". Otherwise takeout/delivery orders and notes
// mentioning "rush" are rush; everything else is normal.
func ClassifyPriority(orderType, notes string) domain.Priority {
	lower := strings.ToLower(notes)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return domain.PriorityUrgent
		}
	}
	if strings.Contains(lower, "rush") {
		return domain.PriorityRush
	}
	switch orderType {
	case domain.OrderTypeTakeout, domain.OrderTypeDelivery:
		return domain.PriorityRush
	}
	return domain.PriorityNormal
}

// ExtractAllergyWarnings scans the order's notes and every line's notes for
// allergen keywords. A hit captures the whole containing sentence, trimmed,
// so the kitchen sees the context and not a bare keyword. Duplicate sentences
// collapse to one warning; first-seen order is kept.
func ExtractAllergyWarnings(order domain.Order) []string {
	var warnings []string
	seen := make(map[string]struct{})

	collect := func(notes string) {
		for _, sentence := range splitSentences(notes) {
			s := strings.TrimSpace(sentence)
			if s == "" {
				continue
			}
			lower := strings.ToLower(s)
			for _, kw := range allergenKeywords {
				if strings.Contains(lower, kw) {
					if _, dup := seen[s]; !dup {
						seen[s] = struct{}{}
						warnings = append(warnings, s)
					}
					break
				}
			}
		}
	}

	collect(order.Notes)
	for _, line := range order.Lines {
		collect(line.Notes)
	}
	return warnings
}

func splitSentences(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '!'
	})
}

// Renderable converts one order line for ticket rendering.
func Renderable(line domain.OrderLine) domain.RenderableItem {
	item := domain.RenderableItem{
		Name:     line.Name,
		Quantity: line.Quantity,
		Notes:    line.Notes,
	}
	if len(line.Modifiers) > 0 {
		item.Modifiers = append([]domain.Modifier(nil), line.Modifiers...)
	}
	return item
}

// NewDescriptor assembles the final per-station descriptor once routing has
// decided which items the station gets. Items must be non-empty; the resolver
// never produces an empty bucket.
func NewDescriptor(station domain.Station, order domain.Order, items []domain.RenderableItem, content Content, now time.Time) domain.TicketDescriptor {
	return domain.TicketDescriptor{
		StationName:     station.Name,
		OrderNumber:     order.Number,
		TableLabel:      order.TableLabel,
		OrderType:       order.Type,
		Priority:        content.Priority,
		Items:           items,
		Timestamp:       now,
		AllergyWarnings: content.AllergyWarnings,
	}
}
