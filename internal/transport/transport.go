// Package transport delivers an encoded ticket to a physical printer through
// an ordered chain of fallbacks: local print bridge, raw printer socket,
// interactive dialog.
package transport

import (
	"context"
	"errors"

	"kitchen-print-router/internal/domain"
)

// Status tracks one attempt's lifecycle; it only feeds logs.
type Status int

const (
	StatusNotConnected Status = iota
	StatusConnecting
	StatusConnected
	StatusPrinting
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNotConnected:
		return "not_connected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusPrinting:
		return "printing"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// ErrUnavailable means the tier has no way to reach this device (no bridge
// configured, no printer address). The chain skips it without recording a
// failure; it is absence, not breakage.
var ErrUnavailable = errors.New("transport unavailable for device")

// Request carries everything a tier might need: the raw protocol stream for
// the wire tiers, the descriptor for the human-readable fallback.
type Request struct {
	OrderID    string
	Station    domain.Station
	Device     domain.Device
	Descriptor domain.TicketDescriptor
	Payload    []byte
}

type Transport interface {
	Name() string
	Attempt(ctx context.Context, req Request) error
}
