package transport

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"kitchen-print-router/internal/domain"
	"kitchen-print-router/internal/logger"
)

// FailureSink receives a record for every tier-1/tier-2 failure, even when a
// later tier rescues the ticket. The engine never blocks on it failing.
type FailureSink interface {
	RecordFailure(ctx context.Context, deviceID, orderID, transport, message string) error
}

// Chain tries each transport in order; the first success short-circuits.
// Exactly one outcome comes back per call.
type Chain struct {
	tiers    []Transport
	failures FailureSink
	lg       *logger.Logger
	now      func() time.Time
}

func NewChain(lg *logger.Logger, failures FailureSink, tiers ...Transport) *Chain {
	return &Chain{tiers: tiers, failures: failures, lg: lg, now: time.Now}
}

// Deliver runs the fallback chain for one station's ticket. Tier failures
// are recovered here: logged, recorded, and the chain advances. The caller
// sees only the final outcome.
func (c *Chain) Deliver(ctx context.Context, req Request) domain.DeliveryOutcome {
	start := c.now()
	var lastErr error

	for _, tier := range c.tiers {
		err := tier.Attempt(ctx, req)
		if err == nil {
			c.lg.Info("ticket_delivered", map[string]any{
				"device_id": req.Device.ID,
				"order_id":  req.OrderID,
				"station":   req.Station.Name,
				"transport": tier.Name(),
				"status":    StatusDone.String(),
			})
			return c.outcome(req, true, tier.Name(), start, nil)
		}
		if errors.Is(err, ErrUnavailable) {
			c.lg.Debug("transport_skipped", map[string]any{
				"device_id": req.Device.ID,
				"transport": tier.Name(),
			})
			continue
		}

		lastErr = err
		c.lg.Warn("transport_failed", map[string]any{
			"device_id": req.Device.ID,
			"order_id":  req.OrderID,
			"transport": tier.Name(),
			"status":    StatusFailed.String(),
			"error":     err.Error(),
		})
		if recErr := c.failures.RecordFailure(ctx, req.Device.ID, req.OrderID, tier.Name(), err.Error()); recErr != nil {
			c.lg.Error("failure_record_write", recErr, map[string]any{"device_id": req.Device.ID})
		}
	}

	// Reaching here means even the dialog tier was missing or broken, which
	// a correctly configured chain never allows.
	return c.outcome(req, false, "", start, lastErr)
}

func (c *Chain) outcome(req Request, ok bool, transport string, start time.Time, err error) domain.DeliveryOutcome {
	o := domain.DeliveryOutcome{
		ID:            uuid.NewString(),
		DeviceID:      req.Device.ID,
		OrderID:       req.OrderID,
		Success:       ok,
		TransportUsed: transport,
		LatencyMs:     c.now().Sub(start).Milliseconds(),
		RecordedAt:    c.now().UTC(),
	}
	if err != nil {
		o.ErrorMessage = err.Error()
	}
	return o
}
