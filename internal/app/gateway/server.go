// Package gateway exposes the manual routing trigger and the device health
// readout over HTTP. The POS front end calls the trigger for reprints.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kitchen-print-router/internal/config"
	"kitchen-print-router/internal/connections/database"
	"kitchen-print-router/internal/engine"
	"kitchen-print-router/internal/escpos"
	"kitchen-print-router/internal/logger"
	"kitchen-print-router/internal/repository"
	"kitchen-print-router/internal/routing"
	"kitchen-print-router/internal/transport"
)

type server struct {
	eng    *engine.Engine
	orders *repository.OrdersRepo
	health *repository.HealthRepo
	lg     *logger.Logger
}

// Run starts the gateway on the given port and serves until the context is
// canceled.
func Run(ctx context.Context, cfg config.App, port int, lg *logger.Logger) error {
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	health := repository.NewHealthRepo(pool)
	devices := repository.NewDevicesRepo(pool)
	rules := repository.NewRulesRepo(pool)

	bridge := transport.NewBridgeTransport(cfg.Printing)
	defer bridge.Close()
	network := transport.NewNetworkTransport(cfg.Printing)
	dialog := transport.NewDialogTransport(transport.NewSpoolSurface(cfg.Printing.SpoolDir), lg)
	chain := transport.NewChain(lg, health, bridge, network, dialog)

	eng := engine.New(routing.New(rules, lg), devices, chain, health, lg, engine.Options{
		DeliverTimeout:    cfg.Printing.DeliverTimeout(),
		DefaultPaperWidth: cfg.Printing.DefaultPaperWidth,
	})

	s := &server{
		eng:    eng,
		orders: repository.NewOrdersRepo(pool),
		health: health,
		lg:     lg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders/{id}/route", s.handleRouteOrder)
	mux.HandleFunc("GET /devices/health", s.handleDeviceHealth)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) handleRouteOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	order, found, err := s.orders.GetOrder(r.Context(), id)
	if err != nil {
		s.lg.Error("order_load_failed", err, map[string]any{"order_id": id})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "order load failed"})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}

	if err := s.eng.RouteOrder(r.Context(), order); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, escpos.ErrBadDescriptor) {
			status = http.StatusUnprocessableEntity
		}
		s.lg.Error("route_order_failed", err, map[string]any{"order_id": id})
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"order_id": id, "status": "routed"})
}

func (s *server) handleDeviceHealth(w http.ResponseWriter, r *http.Request) {
	rows, err := s.health.DeviceHealth(r.Context())
	if err != nil {
		s.lg.Error("device_health_query", err, nil)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "health query failed"})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
