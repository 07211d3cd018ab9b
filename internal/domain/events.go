package domain

import "time"

// OrderMessage is the queue payload published by the order service into
// orders_topic and consumed by the router worker.
type OrderMessage struct {
	OrderID    string         `json:"order_id"`
	Number     string         `json:"order_number"`
	OrderType  string         `json:"order_type"` // dine_in | takeout | delivery
	TableLabel string         `json:"table_label,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	Lines      []OrderLineMsg `json:"items"`
}

type OrderLineMsg struct {
	ItemID     string        `json:"item_id"`
	CategoryID string        `json:"category_id"`
	Name       string        `json:"name"`
	Quantity   int           `json:"quantity"`
	Notes      string        `json:"notes,omitempty"`
	Modifiers  []ModifierMsg `json:"modifiers,omitempty"`
}

type ModifierMsg struct {
	Name      string `json:"name"`
	IsRemoval bool   `json:"is_removal"`
}

// PrintFailureEvent is fanned out on every tier-1/tier-2 transport failure so
// dashboards see flaky printers without polling the failure log.
type PrintFailureEvent struct {
	DeviceID  string    `json:"device_id"`
	OrderID   string    `json:"order_id"`
	Transport string    `json:"transport"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Order converts the wire payload into the engine's input aggregate.
func (m OrderMessage) Order() Order {
	o := Order{
		ID:         m.OrderID,
		Number:     m.Number,
		Type:       m.OrderType,
		TableLabel: m.TableLabel,
		Notes:      m.Notes,
		Lines:      make([]OrderLine, 0, len(m.Lines)),
	}
	for _, l := range m.Lines {
		line := OrderLine{
			ItemID:     l.ItemID,
			CategoryID: l.CategoryID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			Notes:      l.Notes,
		}
		for _, mod := range l.Modifiers {
			line.Modifiers = append(line.Modifiers, Modifier{Name: mod.Name, IsRemoval: mod.IsRemoval})
		}
		o.Lines = append(o.Lines, line)
	}
	return o
}
