package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"kitchen-print-router/internal/config"
)

// BridgeTransport is tier 1: a pre-configured local print-bridge daemon that
// spools jobs to printers it manages. The wire protocol is one JSON header
// line (device, order, payload size), the raw payload, then one status line
// back ("ok" or "err <reason>").
type BridgeTransport struct {
	addr         string
	cache        *ConnCache
	printTimeout time.Duration
}

type bridgeHeader struct {
	DeviceID string `json:"device_id"`
	OrderID  string `json:"order_id"`
	Size     int    `json:"size"`
}

func NewBridgeTransport(cfg config.Printing) *BridgeTransport {
	return &BridgeTransport{
		addr:         cfg.BridgeAddr,
		cache:        NewConnCache(netDialer(cfg.ConnectTimeout())),
		printTimeout: cfg.PrintTimeout(),
	}
}

func (t *BridgeTransport) Name() string { return "bridge" }

func (t *BridgeTransport) Attempt(ctx context.Context, req Request) error {
	if t.addr == "" {
		return ErrUnavailable
	}
	header, err := json.Marshal(bridgeHeader{
		DeviceID: req.Device.ID,
		OrderID:  req.OrderID,
		Size:     len(req.Payload),
	})
	if err != nil {
		return fmt.Errorf("bridge header: %w", err)
	}

	return t.cache.Do(ctx, t.addr, func(conn net.Conn) error {
		if err := conn.SetDeadline(time.Now().Add(t.printTimeout)); err != nil {
			return fmt.Errorf("bridge deadline: %w", err)
		}
		if _, err := conn.Write(append(header, '\n')); err != nil {
			return fmt.Errorf("bridge write header: %w", err)
		}
		if _, err := conn.Write(req.Payload); err != nil {
			return fmt.Errorf("bridge write payload: %w", err)
		}
		status, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return fmt.Errorf("bridge read status: %w", err)
		}
		status = strings.TrimSpace(status)
		if status != "ok" {
			return fmt.Errorf("bridge rejected job: %s", status)
		}
		return nil
	})
}

// Close drops the cached bridge connection.
func (t *BridgeTransport) Close() { t.cache.Close() }
