package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"kitchen-print-router/internal/config"
)

// Default JetDirect raw-print port; used when a device address has no port.
const defaultPrinterPort = "9100"

// NetworkTransport is tier 2: a direct socket to the printer itself. Raw
// port-9100 printing is fire-and-forget; the printer sends nothing back.
type NetworkTransport struct {
	dial         Dialer
	printTimeout time.Duration
}

func NewNetworkTransport(cfg config.Printing) *NetworkTransport {
	return &NetworkTransport{
		dial:         netDialer(cfg.ConnectTimeout()),
		printTimeout: cfg.PrintTimeout(),
	}
}

func (t *NetworkTransport) Name() string { return "network" }

func (t *NetworkTransport) Attempt(ctx context.Context, req Request) error {
	if req.Device.Address == "" {
		return ErrUnavailable
	}
	addr := req.Device.Address
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, defaultPrinterPort)
	}

	conn, err := t.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("printer connect %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(t.printTimeout)); err != nil {
		return fmt.Errorf("printer deadline: %w", err)
	}
	if _, err := conn.Write(req.Payload); err != nil {
		return fmt.Errorf("printer write %s: %w", addr, err)
	}
	return nil
}
