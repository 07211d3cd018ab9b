package domain

import "time"

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityRush   Priority = "rush"
	PriorityUrgent Priority = "urgent"
)

// Order types match the values the order service publishes.
const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeTakeout  = "takeout"
	OrderTypeDelivery = "delivery"
)

type Modifier struct {
	Name      string
	IsRemoval bool
}

type OrderLine struct {
	ItemID     string
	CategoryID string
	Name       string
	Quantity   int
	Notes      string
	Modifiers  []Modifier
}

type Order struct {
	ID         string
	Number     string
	Type       string // dine_in | takeout | delivery
	TableLabel string
	Notes      string
	Lines      []OrderLine
}

// RoutingRule maps either a single item or a whole category to a station.
// Exactly one of ItemID/CategoryID is set; an item rule beats a category rule.
type RoutingRule struct {
	ItemID     string
	CategoryID string
	StationID  string
}

type Station struct {
	ID       string
	Name     string
	ColorTag string
}

const DeviceRolePrinter = "printer"

type Device struct {
	ID         string
	StationID  string
	Name       string
	Role       string
	Address    string // host:port of the printer itself; empty if only bridged
	PaperWidth int    // columns: 32 or 42
	Status     string // online | offline
	LastSeen   time.Time
}

type RenderableItem struct {
	Name      string
	Quantity  int
	Notes     string
	Modifiers []Modifier
}

// TicketDescriptor is the pre-render form of one station's ticket for one
// order. Built fresh per station per order, never persisted.
type TicketDescriptor struct {
	StationName     string
	OrderNumber     string
	TableLabel      string
	OrderType       string
	Priority        Priority
	Items           []RenderableItem
	Timestamp       time.Time
	AllergyWarnings []string
}

// DeliveryOutcome is an append-only health record; one per station per order.
type DeliveryOutcome struct {
	ID            string
	DeviceID      string
	OrderID       string
	Success       bool
	TransportUsed string
	LatencyMs     int64
	ErrorMessage  string
	RecordedAt    time.Time
}
