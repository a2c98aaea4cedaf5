package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsRunnable(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 50, cfg.Backtest.WarmupBars)
	assert.Equal(t, 60.0, cfg.Backtest.ConfidenceThreshold)
	assert.Equal(t, 100000.0, cfg.Risk.AccountEquity)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout())
	assert.Equal(t, 15*time.Second, cfg.Redis.DefaultTTL())
	assert.Equal(t, 5*time.Second, cfg.Postgres.QueryTimeout())
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockpulse.yaml")
	body := `
server:
  port: 9999
backtest:
  confidence_threshold: 75
ledger:
  cooldown_seconds: 120
redis:
  addr: localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 75.0, cfg.Backtest.ConfidenceThreshold)
	assert.Equal(t, 2*time.Minute, cfg.Ledger.Cooldown())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	// Untouched keys keep their defaults.
	assert.Equal(t, 50, cfg.Backtest.WarmupBars)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)

	assert.Error(t, err)
}
