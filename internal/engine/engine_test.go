package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"kitchen-print-router/internal/domain"
	"kitchen-print-router/internal/logger"
	"kitchen-print-router/internal/routing"
	"kitchen-print-router/internal/transport"
)

type fakeRules struct {
	byItem     map[string]string
	byCategory map[string]string
}

func (f *fakeRules) StationForItem(_ context.Context, itemID string) (string, bool, error) {
	s, ok := f.byItem[itemID]
	return s, ok, nil
}

func (f *fakeRules) StationForCategory(_ context.Context, categoryID string) (string, bool, error) {
	s, ok := f.byCategory[categoryID]
	return s, ok, nil
}

type fakeRegistry struct {
	stations map[string]domain.Station
	printers map[string][]domain.Device
	online   []string
}

func (f *fakeRegistry) StationByID(_ context.Context, id string) (domain.Station, bool, error) {
	s, ok := f.stations[id]
	return s, ok, nil
}

func (f *fakeRegistry) PrintersForStation(_ context.Context, stationID string) ([]domain.Device, error) {
	return f.printers[stationID], nil
}

func (f *fakeRegistry) MarkOnline(_ context.Context, deviceID string) error {
	f.online = append(f.online, deviceID)
	return nil
}

type memHealth struct {
	outcomes []domain.DeliveryOutcome
}

func (m *memHealth) RecordOutcome(_ context.Context, o domain.DeliveryOutcome) error {
	m.outcomes = append(m.outcomes, o)
	return nil
}

func (m *memHealth) RecordFailure(context.Context, string, string, string, string) error {
	return nil
}

type captureTransport struct {
	name     string
	err      error
	requests []transport.Request
}

func (c *captureTransport) Name() string { return c.name }

func (c *captureTransport) Attempt(_ context.Context, req transport.Request) error {
	c.requests = append(c.requests, req)
	return c.err
}

func newTestEngine(rules *fakeRules, reg *fakeRegistry, tiers ...transport.Transport) (*Engine, *memHealth, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	lg := logger.FromZap(zap.New(core), "test")
	health := &memHealth{}
	chain := transport.NewChain(lg, health, tiers...)
	eng := New(routing.New(rules, lg), reg, chain, health, lg, Options{})
	return eng, health, logs
}

func grillRegistry() *fakeRegistry {
	return &fakeRegistry{
		stations: map[string]domain.Station{
			"st-grill": {ID: "st-grill", Name: "GRILL"},
		},
		printers: map[string][]domain.Device{
			"st-grill": {{
				ID: "dev-grill", StationID: "st-grill", Name: "Grill printer",
				Role: domain.DeviceRolePrinter, PaperWidth: 32, Status: "online",
			}},
		},
	}
}

// An order with one item routed by an item rule and one unmapped. Exactly one
// ticket reaches GRILL with one item; the unrouted line only leaves a log.
func TestRouteOrderMappedAndUnmapped(t *testing.T) {
	rules := &fakeRules{byItem: map[string]string{"burger": "st-grill"}, byCategory: map[string]string{}}
	tier := &captureTransport{name: "bridge"}
	eng, health, logs := newTestEngine(rules, grillRegistry(), tier)

	order := domain.Order{
		ID: "o-1", Number: "ORD-1", Type: domain.OrderTypeDineIn,
		Lines: []domain.OrderLine{
			{ItemID: "burger", CategoryID: "mains", Name: "Burger", Quantity: 1},
			{ItemID: "mystery", CategoryID: "unknown", Name: "Mystery Dish", Quantity: 1},
		},
	}
	require.NoError(t, eng.RouteOrder(context.Background(), order))

	require.Len(t, tier.requests, 1)
	desc := tier.requests[0].Descriptor
	assert.Equal(t, "GRILL", desc.StationName)
	require.Len(t, desc.Items, 1)
	assert.Equal(t, "Burger", desc.Items[0].Name)

	assert.Len(t, logs.FilterMessage("unrouted_order_line").All(), 1)
	require.Len(t, health.outcomes, 1)
	assert.True(t, health.outcomes[0].Success)
	assert.Equal(t, []string{"dev-grill"}, eng.devices.(*fakeRegistry).online)
}

// A peanut-allergy note surfaces as the full sentence on the
// ticket descriptor handed to the transport.
func TestRouteOrderCarriesAllergyWarning(t *testing.T) {
	rules := &fakeRules{byItem: map[string]string{"satay": "st-grill"}}
	tier := &captureTransport{name: "bridge"}
	eng, _, _ := newTestEngine(rules, grillRegistry(), tier)

	order := domain.Order{
		ID: "o-2", Number: "ORD-2", Type: domain.OrderTypeDineIn,
		Notes: "customer has a severe peanut allergy, no nuts please.",
		Lines: []domain.OrderLine{{ItemID: "satay", Name: "Chicken Satay", Quantity: 1}},
	}
	require.NoError(t, eng.RouteOrder(context.Background(), order))

	require.Len(t, tier.requests, 1)
	warnings := tier.requests[0].Descriptor.AllergyWarnings
	require.Len(t, warnings, 1)
	assert.Equal(t, "customer has a severe peanut allergy, no nuts please", warnings[0])
}

func TestRouteOrderStationsDispatchedInDiscoveryOrder(t *testing.T) {
	rules := &fakeRules{byItem: map[string]string{
		"cola": "st-bar", "burger": "st-grill",
	}}
	reg := grillRegistry()
	reg.stations["st-bar"] = domain.Station{ID: "st-bar", Name: "BAR"}
	reg.printers["st-bar"] = []domain.Device{{
		ID: "dev-bar", StationID: "st-bar", Role: domain.DeviceRolePrinter, PaperWidth: 42,
	}}
	tier := &captureTransport{name: "bridge"}
	eng, health, _ := newTestEngine(rules, reg, tier)

	order := domain.Order{
		ID: "o-3", Number: "ORD-3", Type: domain.OrderTypeDineIn,
		Lines: []domain.OrderLine{
			{ItemID: "cola", Name: "Cola", Quantity: 1},
			{ItemID: "burger", Name: "Burger", Quantity: 1},
		},
	}
	require.NoError(t, eng.RouteOrder(context.Background(), order))

	require.Len(t, tier.requests, 2)
	assert.Equal(t, "BAR", tier.requests[0].Descriptor.StationName)
	assert.Equal(t, "GRILL", tier.requests[1].Descriptor.StationName)
	assert.Len(t, health.outcomes, 2)
}

func TestRouteOrderMissingStationSkipsDispatch(t *testing.T) {
	rules := &fakeRules{byItem: map[string]string{"burger": "st-ghost"}}
	tier := &captureTransport{name: "bridge"}
	eng, health, logs := newTestEngine(rules, grillRegistry(), tier)

	order := domain.Order{
		ID: "o-4", Number: "ORD-4", Type: domain.OrderTypeDineIn,
		Lines: []domain.OrderLine{{ItemID: "burger", Name: "Burger", Quantity: 1}},
	}
	require.NoError(t, eng.RouteOrder(context.Background(), order))
	assert.Empty(t, tier.requests)
	assert.Empty(t, health.outcomes)
	assert.Len(t, logs.FilterMessage("station_not_found").All(), 1)
}

func TestRouteOrderTierFallback(t *testing.T) {
	rules := &fakeRules{byItem: map[string]string{"burger": "st-grill"}}
	t1 := &captureTransport{name: "bridge", err: errors.New("bridge down")}
	t2 := &captureTransport{name: "network"}
	eng, health, logs := newTestEngine(rules, grillRegistry(), t1, t2)

	order := domain.Order{
		ID: "o-5", Number: "ORD-5", Type: domain.OrderTypeDineIn,
		Lines: []domain.OrderLine{{ItemID: "burger", Name: "Burger", Quantity: 1}},
	}
	require.NoError(t, eng.RouteOrder(context.Background(), order))

	require.Len(t, health.outcomes, 1)
	assert.True(t, health.outcomes[0].Success)
	assert.Equal(t, "network", health.outcomes[0].TransportUsed)
	assert.Len(t, logs.FilterMessage("transport_failed").All(), 1)
}

func TestRouteOrderEmptyOrderRejected(t *testing.T) {
	rules := &fakeRules{}
	eng, _, _ := newTestEngine(rules, grillRegistry(), &captureTransport{name: "bridge"})
	err := eng.RouteOrder(context.Background(), domain.Order{ID: "o-6"})
	assert.Error(t, err)
}

func TestRouteOrderFullyUnroutedIsNotAnError(t *testing.T) {
	rules := &fakeRules{}
	tier := &captureTransport{name: "bridge"}
	eng, health, logs := newTestEngine(rules, grillRegistry(), tier)

	order := domain.Order{
		ID: "o-7", Number: "ORD-7", Type: domain.OrderTypeDineIn,
		Lines: []domain.OrderLine{{ItemID: "mystery", Name: "Mystery", Quantity: 1}},
	}
	require.NoError(t, eng.RouteOrder(context.Background(), order))
	assert.Empty(t, tier.requests)
	assert.Empty(t, health.outcomes)
	assert.Len(t, logs.FilterMessage("order_fully_unrouted").All(), 1)
}
