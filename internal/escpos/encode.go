// Package escpos renders a ticket descriptor into the byte stream a thermal
// printer consumes. Encoding is a pure function of the descriptor: the print
// timestamp comes from the descriptor itself, so repeated calls are
// byte-identical.
package escpos

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"kitchen-print-router/internal/domain"
)

// Width is the paper size in text columns. The two sizes have independent
// layouts; adding a third means writing a third layout, not scaling one.
type Width int

const (
	Narrow Width = 32
	Wide   Width = 42
)

// Item-name column per width. Long names truncate here; they are never
// wrapped. Known limitation carried over from the original layout.
const (
	narrowNameCols = 20
	wideNameCols   = 30
)

// ErrBadDescriptor marks a descriptor that violates the construction
// contract. It signals an upstream data defect and propagates to the caller
// instead of degrading into a half-rendered ticket.
var ErrBadDescriptor = errors.New("bad ticket descriptor")

// No kitchen order line carries more than this; anything above it is a
// corrupt upstream payload, not a real ticket.
const maxItemQuantity = 999

func WidthFor(cols int) (Width, error) {
	switch cols {
	case int(Narrow):
		return Narrow, nil
	case int(Wide):
		return Wide, nil
	}
	return 0, fmt.Errorf("unsupported paper width %d", cols)
}

// Encode renders the descriptor for the given paper width. Stream order is
// fixed: init, header, meta, allergy block, items, footer, feed, cut.
func Encode(d domain.TicketDescriptor, w Width) ([]byte, error) {
	if err := validate(d); err != nil {
		return nil, err
	}
	switch w {
	case Narrow:
		return encodeNarrow(d), nil
	case Wide:
		return encodeWide(d), nil
	}
	return nil, fmt.Errorf("unsupported paper width %d", w)
}

func validate(d domain.TicketDescriptor) error {
	switch {
	case d.StationName == "":
		return fmt.Errorf("%w: empty station name", ErrBadDescriptor)
	case d.OrderNumber == "":
		return fmt.Errorf("%w: empty order number", ErrBadDescriptor)
	case d.OrderType == "":
		return fmt.Errorf("%w: empty order type", ErrBadDescriptor)
	case len(d.Items) == 0:
		return fmt.Errorf("%w: no items", ErrBadDescriptor)
	case d.Timestamp.IsZero():
		return fmt.Errorf("%w: zero timestamp", ErrBadDescriptor)
	}
	for _, it := range d.Items {
		if it.Quantity <= 0 || it.Quantity > maxItemQuantity {
			return fmt.Errorf("%w: item %q quantity %d out of range", ErrBadDescriptor, it.Name, it.Quantity)
		}
	}
	return nil
}

// Narrow (32 col) layout: stacked meta lines, compact item rows.
func encodeNarrow(d domain.TicketDescriptor) []byte {
	var b bytes.Buffer
	b.Write(cmdInit)
	if d.Priority == domain.PriorityUrgent {
		b.Write(cmdPulse)
	}

	// Header: station emphasized, order number double-height.
	b.Write(cmdAlignCenter)
	b.Write(cmdBoldOn)
	b.Write(cmdDoubleOn)
	line(&b, truncate(d.StationName, int(Narrow)/2))
	line(&b, truncate("#"+d.OrderNumber, int(Narrow)/2))
	b.Write(cmdDoubleOff)
	b.Write(cmdBoldOff)
	b.Write(cmdAlignLeft)
	line(&b, strings.Repeat("-", int(Narrow)))

	// Meta block.
	if d.TableLabel != "" {
		line(&b, truncate("TBL: "+d.TableLabel, int(Narrow)))
	}
	line(&b, truncate("TYPE: "+strings.ToUpper(d.OrderType)+priorityMarker(d.Priority), int(Narrow)))
	line(&b, "TIME: "+d.Timestamp.Format("15:04"))

	writeAllergyBlock(&b, d, int(Narrow))
	line(&b, strings.Repeat("-", int(Narrow)))

	// Items.
	for _, it := range d.Items {
		line(&b, fmt.Sprintf("%2dx %s", it.Quantity, truncate(it.Name, narrowNameCols)))
		for _, m := range it.Modifiers {
			line(&b, truncate("   "+modifierPrefix(m)+m.Name, int(Narrow)))
		}
		if it.Notes != "" {
			b.Write(cmdBoldOn)
			line(&b, truncate("   *"+it.Notes+"*", int(Narrow)))
			b.Write(cmdBoldOff)
		}
	}

	// Footer.
	line(&b, strings.Repeat("-", int(Narrow)))
	line(&b, fmt.Sprintf("ITEMS: %d", countItems(d.Items)))
	line(&b, truncate("PRINTED "+d.Timestamp.Format("2006-01-02 15:04:05"), int(Narrow)))

	b.Write(cmdFeed)
	b.Write(cmdCut)
	return b.Bytes()
}

// Wide (42 col) layout: two-column meta row, padded item columns.
func encodeWide(d domain.TicketDescriptor) []byte {
	var b bytes.Buffer
	b.Write(cmdInit)
	if d.Priority == domain.PriorityUrgent {
		b.Write(cmdPulse)
	}

	b.Write(cmdAlignCenter)
	b.Write(cmdDoubleOn)
	line(&b, truncate(d.StationName, int(Wide)/2))
	b.Write(cmdDoubleOff)
	b.Write(cmdBoldOn)
	line(&b, truncate("ORDER #"+d.OrderNumber, int(Wide)))
	b.Write(cmdBoldOff)
	b.Write(cmdAlignLeft)
	line(&b, strings.Repeat("=", int(Wide)))

	// Meta: table and time share one row, type gets its own.
	left := "TBL: -"
	if d.TableLabel != "" {
		left = truncate("TBL: "+d.TableLabel, int(Wide)/2)
	}
	line(&b, spread(left, d.Timestamp.Format("15:04:05"), int(Wide)))
	line(&b, truncate("TYPE: "+strings.ToUpper(d.OrderType)+priorityMarker(d.Priority), int(Wide)))

	writeAllergyBlock(&b, d, int(Wide))
	line(&b, strings.Repeat("=", int(Wide)))

	for _, it := range d.Items {
		line(&b, fmt.Sprintf("%2d x ", it.Quantity)+padRight(truncate(it.Name, wideNameCols), wideNameCols))
		for _, m := range it.Modifiers {
			line(&b, truncate("     "+modifierPrefix(m)+m.Name, int(Wide)))
		}
		if it.Notes != "" {
			b.Write(cmdBoldOn)
			line(&b, truncate("     *"+it.Notes+"*", int(Wide)))
			b.Write(cmdBoldOff)
		}
	}

	line(&b, strings.Repeat("=", int(Wide)))
	total := fmt.Sprintf("ITEMS: %d", countItems(d.Items))
	stamp := d.Timestamp.Format("2006-01-02 15:04:05")
	line(&b, spread(total, stamp, int(Wide)))

	b.Write(cmdFeed)
	b.Write(cmdCut)
	return b.Bytes()
}

// Allergy warnings render in their own emphasized block between the meta
// lines and the items so the cook reads them before any item.
func writeAllergyBlock(b *bytes.Buffer, d domain.TicketDescriptor, cols int) {
	if len(d.AllergyWarnings) == 0 {
		return
	}
	b.Write(cmdBoldOn)
	b.Write(cmdAlignCenter)
	line(b, "*** ALLERGY ***")
	b.Write(cmdAlignLeft)
	for _, w := range d.AllergyWarnings {
		line(b, truncate("! "+w, cols))
	}
	b.Write(cmdBoldOff)
}

func priorityMarker(p domain.Priority) string {
	switch p {
	case domain.PriorityRush:
		return " [!!]"
	case domain.PriorityUrgent:
		return " [!!!]"
	}
	return ""
}

func modifierPrefix(m domain.Modifier) string {
	if m.IsRemoval {
		return "- "
	}
	return "+ "
}

func countItems(items []domain.RenderableItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// truncate clips to a rune count, never mid-rune: the printer renders one
// column per character and a split rune would put garbage on the wire.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func padRight(s string, cols int) string {
	pad := cols - utf8.RuneCountInString(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}

// spread lays left and right at opposite ends of one row, collapsing to a
// single separating space when the texts no longer fit.
func spread(left, right string, cols int) string {
	pad := cols - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + right
}

func line(b *bytes.Buffer, s string) {
	b.WriteString(s)
	b.WriteByte(lf)
}
