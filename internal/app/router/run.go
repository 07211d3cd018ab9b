// Package router is the worker mode: it drains the print queue and runs the
// routing pass for every order message.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"kitchen-print-router/internal/config"
	"kitchen-print-router/internal/connections/database"
	"kitchen-print-router/internal/connections/rabbitmq"
	"kitchen-print-router/internal/domain"
	"kitchen-print-router/internal/engine"
	"kitchen-print-router/internal/escpos"
	"kitchen-print-router/internal/logger"
	"kitchen-print-router/internal/repository"
	"kitchen-print-router/internal/routing"
	"kitchen-print-router/internal/transport"
)

var (
	ErrRequeue = errors.New("requeue")     // nack(requeue=true)
	ErrDLQ     = errors.New("dead_letter") // nack(requeue=false)
)

type Options struct {
	WorkerName string
	Prefetch   int
	Heartbeat  time.Duration
}

type worker struct {
	opts    Options
	lg      *logger.Logger
	eng     *engine.Engine
	workers *repository.WorkersRepo
	mq      *rabbitmq.Client
}

// Run wires the full engine against Postgres and RabbitMQ and consumes until
// the context is canceled.
func Run(ctx context.Context, cfg config.App, opts Options, lg *logger.Logger) error {
	if opts.WorkerName == "" {
		return errors.New("worker name is empty: pass --worker-name")
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 30 * time.Second
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	mq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer mq.Close()
	if err := mq.DeclareTopology(); err != nil {
		return err
	}

	health := repository.NewHealthRepo(pool)
	devices := repository.NewDevicesRepo(pool)
	rules := repository.NewRulesRepo(pool)

	bridge := transport.NewBridgeTransport(cfg.Printing)
	defer bridge.Close()
	network := transport.NewNetworkTransport(cfg.Printing)
	dialog := transport.NewDialogTransport(transport.NewSpoolSurface(cfg.Printing.SpoolDir), lg)

	// Failures go to Postgres and, best effort, to the notifications fanout.
	failures := &fanoutFailureSink{pg: health, mq: mq, lg: lg}
	chain := transport.NewChain(lg, failures, bridge, network, dialog)

	eng := engine.New(routing.New(rules, lg), devices, chain, health, lg, engine.Options{
		DeliverTimeout:    cfg.Printing.DeliverTimeout(),
		DefaultPaperWidth: cfg.Printing.DefaultPaperWidth,
	})

	w := &worker{
		opts: opts, lg: lg, eng: eng,
		workers: repository.NewWorkersRepo(pool), mq: mq,
	}
	return w.consume(ctx)
}

func (w *worker) consume(ctx context.Context) error {
	if err := w.workers.RegisterOrFail(ctx, w.opts.WorkerName); err != nil {
		w.lg.Error("worker_registration_failed", err, map[string]any{"worker": w.opts.WorkerName})
		return err
	}
	w.lg.Info("worker_registered", map[string]any{"worker": w.opts.WorkerName})

	ch := w.mq.Channel()
	closeCh := ch.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if e := <-closeCh; e != nil {
			w.lg.Error("amqp_channel_closed", e, map[string]any{"code": e.Code})
		}
	}()

	msgs, err := w.mq.Consume(rabbitmq.PrintQueue, w.opts.WorkerName, w.opts.Prefetch)
	if err != nil {
		return err
	}

	stopBeat := make(chan struct{})
	go func() {
		t := time.NewTicker(w.opts.Heartbeat)
		defer t.Stop()
		for {
			select {
			case <-stopBeat:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				if err := w.workers.Heartbeat(context.Background(), w.opts.WorkerName); err == nil {
					w.lg.Debug("heartbeat_sent", map[string]any{"worker": w.opts.WorkerName})
				}
			}
		}
	}()

	w.lg.Info("consuming", map[string]any{
		"queue":    rabbitmq.PrintQueue,
		"prefetch": w.opts.Prefetch,
		"worker":   w.opts.WorkerName,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for d := range msgs {
			err := w.processOne(ctx, d)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, ErrDLQ):
				_ = d.Nack(false, false)
			default:
				_ = d.Nack(false, true)
			}
		}
	}()

	<-ctx.Done()
	w.lg.Info("graceful_shutdown", map[string]any{"worker": w.opts.WorkerName})

	_ = w.mq.Channel().Cancel(w.opts.WorkerName, false)
	_ = w.workers.SetOffline(context.Background(), w.opts.WorkerName)
	close(stopBeat)
	<-done
	return nil
}

func (w *worker) processOne(ctx context.Context, d amqp.Delivery) error {
	var msg domain.OrderMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		// Unparseable payload can never succeed; dead-letter it.
		return ErrDLQ
	}
	if msg.OrderID == "" || msg.OrderType == "" {
		return ErrDLQ
	}

	order := msg.Order()
	if err := w.eng.RouteOrder(ctx, order); err != nil {
		if errors.Is(err, escpos.ErrBadDescriptor) {
			// Contract violation: retrying the same payload cannot help.
			w.lg.Error("order_routing_contract_violation", err, map[string]any{"order_id": order.ID})
			return ErrDLQ
		}
		w.lg.Error("order_routing_failed", err, map[string]any{"order_id": order.ID})
		return ErrRequeue
	}

	if err := w.workers.BumpProcessed(ctx, w.opts.WorkerName); err != nil {
		w.lg.Error("worker_counter_update", err, map[string]any{"worker": w.opts.WorkerName})
	}
	w.lg.Debug("order_routed", map[string]any{"order_id": order.ID, "worker": w.opts.WorkerName})
	return nil
}

// fanoutFailureSink records transport failures in Postgres and mirrors them
// onto the notifications fanout for live dashboards. The fanout publish is
// best effort; losing it never fails the routing pass.
type fanoutFailureSink struct {
	pg *repository.HealthRepo
	mq *rabbitmq.Client
	lg *logger.Logger
}

func (s *fanoutFailureSink) RecordFailure(ctx context.Context, deviceID, orderID, tname, message string) error {
	body, err := json.Marshal(domain.PrintFailureEvent{
		DeviceID:  deviceID,
		OrderID:   orderID,
		Transport: tname,
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
	if err == nil {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.mq.Publish(pctx, rabbitmq.NotificationsExchange, "", body, amqp.Table{
			"x-source":     "print-router",
			"x-message-id": uuid.NewString(),
		}); err != nil {
			s.lg.Warn("failure_event_publish", map[string]any{"device_id": deviceID, "error": err.Error()})
		}
		cancel()
	}
	return s.pg.RecordFailure(ctx, deviceID, orderID, tname, message)
}
