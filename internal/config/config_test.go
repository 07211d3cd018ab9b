package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.local
  user: app
  database: print_router
rabbitmq:
  host: mq.local
  user: app
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "/", cfg.RabbitMQ.VHost)
	assert.Equal(t, 32, cfg.Printing.DefaultPaperWidth)
	assert.Equal(t, 3*time.Second, cfg.Printing.ConnectTimeout())
	assert.Equal(t, 30*time.Second, cfg.Printing.DeliverTimeout())
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.local
  port: 5433
  user: app
  password: secret
  database: print_router
rabbitmq:
  host: mq.local
  port: 5673
  user: app
  password: secret
  vhost: "pos"
  use_tls: true
printing:
  bridge_addr: "10.0.0.5:9323"
  print_timeout_ms: 1500
  default_paper_width: 42
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "pos", cfg.RabbitMQ.VHost)
	assert.True(t, cfg.RabbitMQ.UseTLS)
	assert.Equal(t, "10.0.0.5:9323", cfg.Printing.BridgeAddr)
	assert.Equal(t, 1500*time.Millisecond, cfg.Printing.PrintTimeout())
	assert.Equal(t, 42, cfg.Printing.DefaultPaperWidth)
}

func TestLoadRejectsIncompleteConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.local
rabbitmq:
  host: mq.local
  user: app
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadPaperWidth(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.local
  user: app
  database: print_router
rabbitmq:
  host: mq.local
  user: app
printing:
  default_paper_width: 58
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_paper_width")
}
