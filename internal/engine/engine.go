// Package engine runs the full routing pass for one order: build ticket
// content, resolve stations, encode, deliver, record health.
package engine

import (
	"context"
	"fmt"
	"time"

	"kitchen-print-router/internal/domain"
	"kitchen-print-router/internal/escpos"
	"kitchen-print-router/internal/logger"
	"kitchen-print-router/internal/routing"
	"kitchen-print-router/internal/ticket"
	"kitchen-print-router/internal/transport"
)

// DeviceStore is the registry view the engine needs.
type DeviceStore interface {
	StationByID(ctx context.Context, id string) (domain.Station, bool, error)
	PrintersForStation(ctx context.Context, stationID string) ([]domain.Device, error)
	MarkOnline(ctx context.Context, deviceID string) error
}

// HealthStore appends one delivery outcome per station per order.
type HealthStore interface {
	RecordOutcome(ctx context.Context, o domain.DeliveryOutcome) error
}

type Engine struct {
	resolver *routing.Resolver
	devices  DeviceStore
	chain    *transport.Chain
	health   HealthStore
	lg       *logger.Logger

	deliverTimeout    time.Duration
	defaultPaperWidth int
	now               func() time.Time
}

type Options struct {
	DeliverTimeout    time.Duration
	DefaultPaperWidth int
}

func New(resolver *routing.Resolver, devices DeviceStore, chain *transport.Chain, health HealthStore, lg *logger.Logger, opts Options) *Engine {
	if opts.DeliverTimeout <= 0 {
		opts.DeliverTimeout = 30 * time.Second
	}
	if opts.DefaultPaperWidth == 0 {
		opts.DefaultPaperWidth = int(escpos.Narrow)
	}
	return &Engine{
		resolver:          resolver,
		devices:           devices,
		chain:             chain,
		health:            health,
		lg:                lg,
		deliverTimeout:    opts.DeliverTimeout,
		defaultPaperWidth: opts.DefaultPaperWidth,
		now:               time.Now,
	}
}

// RouteOrder fans the order out to its stations and prints one ticket per
// station, sequentially, in the order the stations were discovered. Skipped
// stations and tier failures are logged, never raised; only a descriptor or
// encoding contract violation comes back as an error.
func (e *Engine) RouteOrder(ctx context.Context, order domain.Order) error {
	if order.ID == "" || len(order.Lines) == 0 {
		return fmt.Errorf("order %q has no routable content", order.ID)
	}

	content := ticket.Analyze(order)
	asg, err := e.resolver.Resolve(ctx, order)
	if err != nil {
		return fmt.Errorf("resolve order %s: %w", order.ID, err)
	}
	if len(asg.StationIDs) == 0 {
		e.lg.Warn("order_fully_unrouted", map[string]any{"order_id": order.ID})
		return nil
	}

	for _, stationID := range asg.StationIDs {
		if err := e.dispatchStation(ctx, order, stationID, asg.Items[stationID], content); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) dispatchStation(ctx context.Context, order domain.Order, stationID string, items []domain.RenderableItem, content ticket.Content) error {
	station, found, err := e.devices.StationByID(ctx, stationID)
	if err != nil {
		return fmt.Errorf("station lookup %s: %w", stationID, err)
	}
	if !found {
		e.lg.Warn("station_not_found", map[string]any{
			"order_id":   order.ID,
			"station_id": stationID,
		})
		return nil
	}

	printers, err := e.devices.PrintersForStation(ctx, stationID)
	if err != nil {
		return fmt.Errorf("device lookup %s: %w", stationID, err)
	}
	device, ok := pickPrinter(printers)
	if !ok {
		e.lg.Warn("station_has_no_printer", map[string]any{
			"order_id": order.ID,
			"station":  station.Name,
		})
		return nil
	}

	desc := ticket.NewDescriptor(station, order, items, content, e.now())
	width, err := e.widthFor(device)
	if err != nil {
		return err
	}
	payload, err := escpos.Encode(desc, width)
	if err != nil {
		// Contract violation: upstream handed us broken data.
		return fmt.Errorf("encode ticket for %s: %w", station.Name, err)
	}

	dctx, cancel := context.WithTimeout(ctx, e.deliverTimeout)
	outcome := e.chain.Deliver(dctx, transport.Request{
		OrderID:    order.ID,
		Station:    station,
		Device:     device,
		Descriptor: desc,
		Payload:    payload,
	})
	cancel()

	if err := e.health.RecordOutcome(ctx, outcome); err != nil {
		e.lg.Error("outcome_record_write", err, map[string]any{
			"device_id": device.ID,
			"order_id":  order.ID,
		})
	}
	if outcome.Success {
		if err := e.devices.MarkOnline(ctx, device.ID); err != nil {
			e.lg.Error("device_mark_online", err, map[string]any{"device_id": device.ID})
		}
	}
	return nil
}

// pickPrinter takes the station's primary printer: the first online device,
// else the first registered one.
func pickPrinter(devices []domain.Device) (domain.Device, bool) {
	if len(devices) == 0 {
		return domain.Device{}, false
	}
	for _, d := range devices {
		if d.Status == "online" {
			return d, true
		}
	}
	return devices[0], true
}

func (e *Engine) widthFor(d domain.Device) (escpos.Width, error) {
	cols := d.PaperWidth
	if cols == 0 {
		cols = e.defaultPaperWidth
	}
	w, err := escpos.WidthFor(cols)
	if err != nil {
		return 0, fmt.Errorf("device %s: %w", d.ID, err)
	}
	return w, nil
}
