package config

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

type RabbitMQ struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	UseTLS   bool   `yaml:"use_tls"`
}

// Printing configures the delivery chain. BridgeAddr is the local
// print-bridge daemon; empty disables tier 1. SpoolDir is where the
// interactive fallback drops its HTML renditions.
type Printing struct {
	BridgeAddr        string `yaml:"bridge_addr"`
	ConnectTimeoutMS  int    `yaml:"connect_timeout_ms"`
	PrintTimeoutMS    int    `yaml:"print_timeout_ms"`
	DeliverTimeoutMS  int    `yaml:"deliver_timeout_ms"`
	SpoolDir          string `yaml:"spool_dir"`
	DefaultPaperWidth int    `yaml:"default_paper_width"`
}

type App struct {
	Database Database `yaml:"database"`
	RabbitMQ RabbitMQ `yaml:"rabbitmq"`
	Printing Printing `yaml:"printing"`
}

func defaults() App {
	return App{
		Database: Database{Port: 5432, SSLMode: "disable", MaxConns: 10},
		RabbitMQ: RabbitMQ{Port: 5672, VHost: "/"},
		Printing: Printing{
			ConnectTimeoutMS:  3000,
			PrintTimeoutMS:    5000,
			DeliverTimeoutMS:  30000,
			SpoolDir:          "spool",
			DefaultPaperWidth: 32,
		},
	}
}

func Load(path string) (App, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return App{}, fmt.Errorf("read config %s: %w", path, err)
	}
	a := defaults()
	if err := yaml.Unmarshal(b, &a); err != nil {
		return App{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := a.validate(); err != nil {
		return App{}, err
	}
	return a, nil
}

func (a App) validate() error {
	if a.Database.Host == "" || a.Database.User == "" || a.Database.Database == "" {
		return fmt.Errorf("database config incomplete")
	}
	if a.RabbitMQ.Host == "" || a.RabbitMQ.User == "" {
		return fmt.Errorf("rabbitmq config incomplete")
	}
	if w := a.Printing.DefaultPaperWidth; w != 32 && w != 42 {
		return fmt.Errorf("printing.default_paper_width must be 32 or 42, got %d", w)
	}
	return nil
}

func (p Printing) ConnectTimeout() time.Duration { return time.Duration(p.ConnectTimeoutMS) * time.Millisecond }
func (p Printing) PrintTimeout() time.Duration   { return time.Duration(p.PrintTimeoutMS) * time.Millisecond }
func (p Printing) DeliverTimeout() time.Duration { return time.Duration(p.DeliverTimeoutMS) * time.Millisecond }

// FindConfig returns the first config file present among the usual locations.
func FindConfig() (string, error) {
	for _, p := range []string{"config.yaml", "config.yml", "deploy/config.example.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}
