package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kitchen-print-router/internal/app/gateway"
	"kitchen-print-router/internal/app/router"
	"kitchen-print-router/internal/config"
	"kitchen-print-router/internal/logger"
)

func main() {
	mode := flag.String("mode", "", "router-worker | gateway")
	cfgPath := flag.String("config", "", "path to YAML config (default: auto-discover)")
	port := flag.Int("port", 3003, "gateway: http port")
	workerName := flag.String("worker-name", "", "router-worker: unique worker name")
	prefetch := flag.Int("prefetch", 1, "router-worker: RabbitMQ prefetch")
	heartbeat := flag.Int("heartbeat-interval", 30, "router-worker: heartbeat interval seconds")
	flag.Parse()

	lg := logger.New("print-router")
	defer lg.Sync()

	path := *cfgPath
	if path == "" {
		var err error
		path, err = config.FindConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, "no config file found; pass --config")
			os.Exit(2)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": path})
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "router-worker":
		if *workerName == "" {
			fmt.Fprintln(os.Stderr, "--worker-name is required for router-worker")
			os.Exit(2)
		}
		lg.Info("service_started", map[string]any{"mode": "router-worker", "worker": *workerName})
		if err := router.Run(ctx, cfg, router.Options{
			WorkerName: *workerName,
			Prefetch:   *prefetch,
			Heartbeat:  time.Duration(*heartbeat) * time.Second,
		}, lg); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "gateway":
		lg.Info("service_started", map[string]any{"mode": "gateway", "port": *port})
		if err := gateway.Run(ctx, cfg, *port, lg); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: router-worker | gateway")
		os.Exit(2)
	}
}
