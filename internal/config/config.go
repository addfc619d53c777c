// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/peeracct/internal/classify"
	"firestige.xyz/peeracct/internal/core"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `peeracct:` root key in YAML.
type GlobalConfig struct {
	Node     NodeConfig     `mapstructure:"node" yaml:"node"`
	Control  ControlConfig  `mapstructure:"control" yaml:"control"`
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Ports    PortsConfig    `mapstructure:"ports" yaml:"ports"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Export   ExportConfig   `mapstructure:"export" yaml:"export"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// ─── Node Identity ───

// NodeConfig contains node identification settings.
type NodeConfig struct {
	Hostname string `mapstructure:"hostname" yaml:"hostname"` // Empty = os.Hostname()
}

// ─── Control Plane ───

// ControlConfig contains local control plane settings.
type ControlConfig struct {
	Socket  string `mapstructure:"socket" yaml:"socket"`
	PIDFile string `mapstructure:"pid_file" yaml:"pid_file"`
}

// ─── Capture ───

// CaptureConfig configures the live AF_PACKET capture feeding the hooks.
type CaptureConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	Interface    string `mapstructure:"interface" yaml:"interface"`
	SnapLen      int    `mapstructure:"snap_len" yaml:"snap_len"`
	BufferSizeMB int    `mapstructure:"buffer_size_mb" yaml:"buffer_size_mb"`
	TimeoutMs    int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	FanoutID     int    `mapstructure:"fanout_id" yaml:"fanout_id"` // 0 = no fanout
	// LocalMACs marks frames sourced from these addresses as egress. The
	// capture interface's own MAC is always included for live capture.
	LocalMACs []string `mapstructure:"local_macs" yaml:"local_macs"`
}

// Timeout returns the ring poll timeout.
func (c CaptureConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ─── Ports ───

// PortsConfig maps each traffic class to its service port. 0 disables a class.
type PortsConfig struct {
	A int `mapstructure:"a" yaml:"a"` // TCP
	B int `mapstructure:"b" yaml:"b"` // TCP
	C int `mapstructure:"c" yaml:"c"` // UDP
}

// PortMap converts to the classifier's form. Call after validation.
func (p PortsConfig) PortMap() classify.PortMap {
	return classify.PortMap{A: uint16(p.A), B: uint16(p.B), C: uint16(p.C)}
}

// ─── Peer Store ───

// StoreConfig sizes the peer tables.
type StoreConfig struct {
	CapacityV4 int `mapstructure:"capacity_v4" yaml:"capacity_v4"`
	CapacityV6 int `mapstructure:"capacity_v6" yaml:"capacity_v6"`
}

// ─── Export ───

// ExportConfig controls the periodic delta export.
type ExportConfig struct {
	Enabled  bool              `mapstructure:"enabled" yaml:"enabled"`
	Interval time.Duration     `mapstructure:"interval" yaml:"interval"`
	SQLite   SQLiteConfig      `mapstructure:"sqlite" yaml:"sqlite"`
	Kafka    KafkaExportConfig `mapstructure:"kafka" yaml:"kafka"`
}

// SQLiteConfig configures the local traffic history database.
type SQLiteConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// KafkaExportConfig configures the Kafka export sink.
type KafkaExportConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	Brokers      []string      `mapstructure:"brokers" yaml:"brokers"`
	Topic        string        `mapstructure:"topic" yaml:"topic"`
	Compression  string        `mapstructure:"compression" yaml:"compression"` // none | gzip | snappy | lz4 | zstd
	BatchSize    int           `mapstructure:"batch_size" yaml:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout" yaml:"batch_timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// ─── Reverse DNS ───

// ResolverConfig configures PTR lookups for exported and exposed peers.
type ResolverConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Server  string        `mapstructure:"server" yaml:"server"` // host:port; empty = first resolv.conf nameserver
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics and HTTP API settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
	// PeerSeries exports one counter series per peer, class and direction.
	PeerSeries bool `mapstructure:"peer_series" yaml:"peer_series"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Loading ───

// rootKey is the top-level YAML key; it also gives env vars their PEERACCT_ prefix.
const rootKey = "peeracct"

// configRoot is the top-level wrapper matching the YAML structure `peeracct: ...`.
type configRoot struct {
	Peeracct GlobalConfig `mapstructure:"peeracct"`
}

// newViper builds a viper instance with env overrides and defaults.
// No explicit env prefix: key "peeracct.ports.a" maps to env PEERACCT_PORTS_A
// through the key replacer.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load loads configuration from file.
func Load(path string) (*GlobalConfig, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(v)
}

// Default returns the built-in defaults with env overrides applied.
func Default() (*GlobalConfig, error) {
	return decode(newViper())
}

func decode(v *viper.Viper) (*GlobalConfig, error) {
	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Peeracct

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfigInvalid, err)
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "peeracct." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	d := func(key string, value any) { v.SetDefault(rootKey+"."+key, value) }

	// Node
	d("node.hostname", "")

	// Control defaults
	d("control.socket", "/var/run/peeracct.sock")
	d("control.pid_file", "/var/run/peeracct.pid")

	// Capture defaults
	d("capture.enabled", true)
	d("capture.interface", "eth0")
	d("capture.snap_len", 65535)
	d("capture.buffer_size_mb", 8)
	d("capture.timeout_ms", 100)
	d("capture.fanout_id", 0)
	d("capture.local_macs", []string{})

	// Service ports per class
	d("ports.a", 9981)
	d("ports.b", 9984)
	d("ports.c", 9984)

	// Peer tables
	d("store.capacity_v4", 65535)
	d("store.capacity_v6", 65535)

	// Export defaults
	d("export.enabled", false)
	d("export.interval", "1m")
	d("export.sqlite.enabled", false)
	d("export.sqlite.path", "/var/lib/peeracct/traffic.db")
	d("export.kafka.enabled", false)
	d("export.kafka.brokers", []string{})
	d("export.kafka.topic", "peeracct-traffic")
	d("export.kafka.compression", "snappy")
	d("export.kafka.batch_size", 100)
	d("export.kafka.batch_timeout", "1s")
	d("export.kafka.max_attempts", 3)

	// Resolver defaults
	d("resolver.enabled", false)
	d("resolver.server", "")
	d("resolver.timeout", "2s")
	d("resolver.ttl", "10m")

	// Metrics defaults
	d("metrics.enabled", true)
	d("metrics.listen", ":9181")
	d("metrics.path", "/metrics")
	d("metrics.peer_series", true)

	// Log defaults
	d("log.level", "info")
	d("log.format", "json")
	d("log.outputs.file.enabled", false)
	d("log.outputs.file.path", "/var/log/peeracct/peeracct.log")
	d("log.outputs.file.rotation.max_size_mb", 100)
	d("log.outputs.file.rotation.max_age_days", 30)
	d("log.outputs.file.rotation.max_backups", 5)
	d("log.outputs.file.rotation.compress", true)
}

// maxTableCapacity bounds a peer table so a typo cannot exhaust memory.
const maxTableCapacity = 1 << 24

var validCompression = map[string]bool{"none": true, "gzip": true, "snappy": true, "lz4": true, "zstd": true}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("log.outputs.file.path is required when file output is enabled")
	}

	// ── Node hostname auto-detect ──
	if cfg.Node.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		cfg.Node.Hostname = hostname
	}

	// ── Ports ──
	for name, port := range map[string]int{"a": cfg.Ports.A, "b": cfg.Ports.B, "c": cfg.Ports.C} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("ports.%s: %d out of range (0-65535)", name, port)
		}
	}

	// ── Store ──
	if cfg.Store.CapacityV4 <= 0 || cfg.Store.CapacityV4 > maxTableCapacity {
		return fmt.Errorf("store.capacity_v4: %d out of range (1-%d)", cfg.Store.CapacityV4, maxTableCapacity)
	}
	if cfg.Store.CapacityV6 <= 0 || cfg.Store.CapacityV6 > maxTableCapacity {
		return fmt.Errorf("store.capacity_v6: %d out of range (1-%d)", cfg.Store.CapacityV6, maxTableCapacity)
	}

	// ── Capture ──
	if cfg.Capture.Enabled {
		if cfg.Capture.Interface == "" {
			return fmt.Errorf("capture.interface is required when capture.enabled=true")
		}
		if cfg.Capture.SnapLen < 64 || cfg.Capture.SnapLen > 65535 {
			return fmt.Errorf("capture.snap_len: %d out of range (64-65535)", cfg.Capture.SnapLen)
		}
		if cfg.Capture.FanoutID < 0 || cfg.Capture.FanoutID > 65535 {
			return fmt.Errorf("capture.fanout_id: %d out of range (0-65535)", cfg.Capture.FanoutID)
		}
	}
	for _, mac := range cfg.Capture.LocalMACs {
		if _, err := net.ParseMAC(mac); err != nil {
			return fmt.Errorf("capture.local_macs: %w", err)
		}
	}

	// ── Export ──
	if cfg.Export.Enabled {
		if cfg.Export.Interval <= 0 {
			return fmt.Errorf("export.interval must be positive")
		}
		if !cfg.Export.SQLite.Enabled && !cfg.Export.Kafka.Enabled {
			return fmt.Errorf("export.enabled=true requires export.sqlite or export.kafka")
		}
	}
	if cfg.Export.SQLite.Enabled && cfg.Export.SQLite.Path == "" {
		return fmt.Errorf("export.sqlite.path is required when export.sqlite.enabled=true")
	}
	if cfg.Export.Kafka.Enabled {
		k := &cfg.Export.Kafka
		if len(k.Brokers) == 0 {
			return fmt.Errorf("export.kafka.brokers is required when export.kafka.enabled=true")
		}
		if k.Topic == "" {
			return fmt.Errorf("export.kafka.topic is required when export.kafka.enabled=true")
		}
		if k.Compression == "" {
			k.Compression = "none"
		}
		if !validCompression[k.Compression] {
			return fmt.Errorf("export.kafka.compression: unsupported %q", k.Compression)
		}
	}

	// ── Resolver ──
	if cfg.Resolver.Enabled {
		if cfg.Resolver.Timeout <= 0 {
			return fmt.Errorf("resolver.timeout must be positive")
		}
		if cfg.Resolver.TTL <= 0 {
			return fmt.Errorf("resolver.ttl must be positive")
		}
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics.enabled=true")
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	return nil
}

// LocalMACs parses Capture.LocalMACs. Call after validation.
func (cfg *GlobalConfig) LocalMACs() []net.HardwareAddr {
	out := make([]net.HardwareAddr, 0, len(cfg.Capture.LocalMACs))
	for _, s := range cfg.Capture.LocalMACs {
		if mac, err := net.ParseMAC(s); err == nil {
			out = append(out, mac)
		}
	}
	return out
}
