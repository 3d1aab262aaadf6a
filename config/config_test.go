package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 50, cfg.Workers)
	require.Equal(t, 1000, cfg.Units)
	require.Equal(t, "tasks", cfg.Strategy)
	require.Equal(t, 500*time.Millisecond, cfg.Dispatch.PollInterval)
	require.Equal(t, time.Second, cfg.Monitor.Interval)
	require.Equal(t, "somefile", cfg.Write.Output)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()
	r := require.New(t)
	path := writeFile(t, `
workers: 8
units: 64
strategy: "1"
dispatch:
  unit_delay: 250ms
  poll_interval: 50ms
monitor:
  interval: 2s
write:
  output: /tmp/out.bin
  style: coroutine
log:
  level: debug
  format: json
  outputs: [stdout, /tmp/samples.log]
  rotation:
    enable: true
metrics:
  addr: ":9090"
`)
	cfg, err := Load(path)
	r.NoError(err)
	r.Equal(8, cfg.Workers)
	r.Equal(64, cfg.Units)
	r.Equal("1", cfg.Strategy)
	r.Equal(250*time.Millisecond, cfg.Dispatch.UnitDelay)
	r.Equal(2*time.Second, cfg.Dispatch.BlockingWork)
	r.Equal(50*time.Millisecond, cfg.Dispatch.PollInterval)
	r.Equal(2*time.Second, cfg.Monitor.Interval)
	r.Equal("coroutine", cfg.Write.Style)
	r.Equal("json", cfg.Log.Format)
	r.Equal([]string{"stdout", "/tmp/samples.log"}, cfg.Log.Outputs)
	r.True(cfg.Log.Rotation.Enable)
	r.Equal(3, cfg.Log.Rotation.MaxBackups)
	r.Equal(":9090", cfg.Metrics.Addr)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()
	path := writeFile(t, `
workers: 0
strategy: fastest
dispatch:
  poll_interval: 0s
`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalid)
	require.Contains(t, err.Error(), "workers")
	require.Contains(t, err.Error(), "fastest")
	require.Contains(t, err.Error(), "poll_interval")
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "workers: [1, 2"))
	require.Error(t, err)
}
