package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"firestige.xyz/peeracct/internal/classify"
	"firestige.xyz/peeracct/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
peeracct:
  node:
    hostname: "edge-1"
  control:
    socket: "/tmp/test.sock"
    pid_file: "/tmp/test.pid"
  capture:
    interface: "ens3"
    local_macs: ["02:00:00:00:00:01"]
  ports:
    a: 19981
    b: 0
    c: 19984
  store:
    capacity_v4: 1024
  export:
    enabled: true
    interval: 30s
    sqlite:
      enabled: true
      path: "/tmp/traffic.db"
  log:
    level: "debug"
    format: "text"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Node.Hostname != "edge-1" {
		t.Errorf("Expected hostname edge-1, got %s", cfg.Node.Hostname)
	}
	if cfg.Control.Socket != "/tmp/test.sock" {
		t.Errorf("Expected socket /tmp/test.sock, got %s", cfg.Control.Socket)
	}
	if cfg.Capture.Interface != "ens3" {
		t.Errorf("Expected interface ens3, got %s", cfg.Capture.Interface)
	}
	if got := cfg.Ports.PortMap(); got != (classify.PortMap{A: 19981, B: 0, C: 19984}) {
		t.Errorf("Unexpected ports %+v", got)
	}
	if cfg.Store.CapacityV4 != 1024 {
		t.Errorf("Expected capacity_v4 1024, got %d", cfg.Store.CapacityV4)
	}
	if cfg.Store.CapacityV6 != 65535 {
		t.Errorf("Expected default capacity_v6 65535, got %d", cfg.Store.CapacityV6)
	}
	if cfg.Export.Interval != 30*time.Second {
		t.Errorf("Expected export interval 30s, got %v", cfg.Export.Interval)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Unexpected log config %+v", cfg.Log)
	}
	if macs := cfg.LocalMACs(); len(macs) != 1 || macs[0].String() != "02:00:00:00:00:01" {
		t.Errorf("Unexpected local MACs %v", macs)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "peeracct: {}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if got := cfg.Ports.PortMap(); got != (classify.PortMap{A: 9981, B: 9984, C: 9984}) {
		t.Errorf("Unexpected default ports %+v", got)
	}
	if cfg.Metrics.Listen != ":9181" || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Unexpected metrics defaults %+v", cfg.Metrics)
	}
	if cfg.Export.Interval != time.Minute {
		t.Errorf("Expected default export interval 1m, got %v", cfg.Export.Interval)
	}
	if cfg.Resolver.TTL != 10*time.Minute {
		t.Errorf("Expected default resolver ttl 10m, got %v", cfg.Resolver.TTL)
	}
	if cfg.Node.Hostname == "" {
		t.Error("Expected auto-detected hostname")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"log level", "peeracct:\n  log:\n    level: loud\n", "invalid log level"},
		{"log format", "peeracct:\n  log:\n    format: xml\n", "invalid log format"},
		{"port range", "peeracct:\n  ports:\n    a: 70000\n", "ports.a"},
		{"negative port", "peeracct:\n  ports:\n    c: -1\n", "ports.c"},
		{"capacity", "peeracct:\n  store:\n    capacity_v6: 0\n", "store.capacity_v6"},
		{"export without sink", "peeracct:\n  export:\n    enabled: true\n", "requires export.sqlite or export.kafka"},
		{"kafka without brokers", "peeracct:\n  export:\n    kafka:\n      enabled: true\n", "export.kafka.brokers"},
		{"kafka compression", "peeracct:\n  export:\n    kafka:\n      enabled: true\n      brokers: [\"k:9092\"]\n      compression: brotli\n", "compression"},
		{"bad mac", "peeracct:\n  capture:\n    local_macs: [\"nope\"]\n", "local_macs"},
		{"capture interface", "peeracct:\n  capture:\n    interface: \"\"\n", "capture.interface"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
			require.ErrorIs(t, err, core.ErrConfigInvalid)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "peeracct:\n  ports:\n    a: 1000\n")

	t.Setenv("PEERACCT_PORTS_A", "2000")
	t.Setenv("PEERACCT_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Ports.A != 2000 {
		t.Errorf("Expected ports.a 2000 from env var, got %d", cfg.Ports.A)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Expected log level warn from env var, got %s", cfg.Log.Level)
	}
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if cfg.Store.CapacityV4 != 65535 {
		t.Errorf("Expected capacity 65535, got %d", cfg.Store.CapacityV4)
	}
}

func TestWatchAppliesValidChanges(t *testing.T) {
	path := writeConfig(t, "peeracct:\n  ports:\n    a: 1000\n")

	var lastA atomic.Int64
	require.NoError(t, Watch(path, func(cfg *GlobalConfig) {
		lastA.Store(int64(cfg.Ports.A))
	}))

	require.NoError(t, os.WriteFile(path, []byte("peeracct:\n  ports:\n    a: 3000\n"), 0644))
	require.Eventually(t, func() bool {
		return lastA.Load() == 3000
	}, 5*time.Second, 50*time.Millisecond)
}
