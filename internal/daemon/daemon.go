// Package daemon implements the daemon lifecycle manager.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"firestige.xyz/peeracct/internal/classify"
	"firestige.xyz/peeracct/internal/command"
	"firestige.xyz/peeracct/internal/config"
	"firestige.xyz/peeracct/internal/engine"
	"firestige.xyz/peeracct/internal/export"
	logpkg "firestige.xyz/peeracct/internal/log"
	"firestige.xyz/peeracct/internal/metrics"
	"firestige.xyz/peeracct/internal/peerstats"
	"firestige.xyz/peeracct/internal/pipeline"
	"firestige.xyz/peeracct/internal/resolve"
	"firestige.xyz/peeracct/internal/source/afpacket"
)

// shutdownReplyGrace delays a command-triggered stop so the UDS reply is sent.
const shutdownReplyGrace = 200 * time.Millisecond

// Daemon manages the peeracct daemon process lifecycle.
type Daemon struct {
	// Configuration
	mu         sync.Mutex // guards config
	config     *config.GlobalConfig
	configPath string
	socketPath string
	pidFile    string

	// Core components
	engine        *engine.Engine
	resolver      *resolve.Resolver      // nil if resolver disabled
	collector     *metrics.PeerCollector // nil if metrics disabled
	metricsServer *metrics.Server        // nil if metrics disabled
	flusher       *export.Flusher        // nil if export disabled
	capture       *afpacket.Source       // nil if capture disabled
	pipeline      *pipeline.Pipeline     // nil if capture disabled
	cmdHandler    *command.CommandHandler
	udsServer     *command.UDSServer

	// Lifecycle management
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	stopOnce     sync.Once
	sigChan      chan os.Signal
}

// New creates a new Daemon instance. Empty socketPath or pidFile fall back
// to the control section of the configuration.
func New(configPath, socketPath, pidFile string) (*Daemon, error) {
	globalConfig, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if socketPath == "" {
		socketPath = globalConfig.Control.Socket
	}
	if pidFile == "" {
		pidFile = globalConfig.Control.PIDFile
	}

	d := &Daemon{
		config:       globalConfig,
		configPath:   configPath,
		socketPath:   socketPath,
		pidFile:      pidFile,
		shutdownChan: make(chan struct{}),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// Engine returns the accounting engine. Valid after Start.
func (d *Daemon) Engine() *engine.Engine {
	return d.engine
}

// Start initializes and starts all daemon components.
func (d *Daemon) Start() error {
	cfg := d.config

	// 1. Initialize logging system
	if err := d.initLogging(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	slog.Info("starting peeracct daemon",
		"version", command.Version,
		"hostname", cfg.Node.Hostname,
		"config", d.configPath,
		"socket", d.socketPath,
	)

	// 2. Write PID file
	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	// 3. Accounting core
	ports := classify.NewPorts(cfg.Ports.PortMap())
	store := peerstats.NewStore(cfg.Store.CapacityV4, cfg.Store.CapacityV6)
	d.engine = engine.New(ports, store, nil)
	slog.Info("accounting engine ready",
		"ports", cfg.Ports,
		"capacity_v4", store.V4.Cap(),
		"capacity_v6", store.V6.Cap(),
	)

	// 4. Reverse DNS (non-fatal)
	if cfg.Resolver.Enabled {
		r, err := resolve.New(cfg.Resolver)
		if err != nil {
			slog.Warn("reverse resolver disabled", "error", err)
		} else {
			d.resolver = r
			slog.Info("reverse resolver enabled", "server", r.Server(), "ttl", cfg.Resolver.TTL)
		}
	}

	// 5. Metrics and HTTP API
	if err := d.startMetrics(); err != nil {
		d.cleanupFailedStart()
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	// 6. Exporter
	if err := d.startExport(); err != nil {
		d.cleanupFailedStart()
		return fmt.Errorf("failed to start exporter: %w", err)
	}

	// 7. Capture
	if err := d.startCapture(); err != nil {
		d.cleanupFailedStart()
		return fmt.Errorf("failed to start capture: %w", err)
	}

	// 8. Command handler and UDS server for CLI control
	d.cmdHandler = command.NewCommandHandler(d.engine, d)
	d.cmdHandler.SetShutdownFunc(func() {
		slog.Info("shutdown triggered via daemon_shutdown command")
		// The reply is still being written on the same connection.
		time.Sleep(shutdownReplyGrace)
		d.TriggerShutdown()
	})
	if d.flusher != nil {
		d.cmdHandler.SetFlusher(d.flusher)
	}
	if d.pipeline != nil {
		d.cmdHandler.SetPipelineStats(d.pipeline.Stats)
	}

	d.udsServer = command.NewUDSServer(d.socketPath, d.cmdHandler)
	if err := d.udsServer.Listen(); err != nil {
		d.cleanupFailedStart()
		return err
	}
	go func() {
		if err := d.udsServer.Serve(d.ctx); err != nil {
			slog.Error("uds server failed", "error", err)
		}
	}()

	// 9. Hot reload on config file changes
	watchFn := func(cfg *config.GlobalConfig) {
		if d.ctx.Err() == nil {
			d.apply(cfg)
		}
	}
	if err := config.Watch(d.configPath, watchFn); err != nil {
		slog.Warn("config file watch disabled", "error", err)
	}

	slog.Info("daemon started successfully")
	return nil
}

// cleanupFailedStart releases what Start created before failing.
func (d *Daemon) cleanupFailedStart() {
	d.Stop()
}

// Stop performs graceful shutdown of all daemon components. Safe to call
// more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(d.stop)
}

func (d *Daemon) stop() {
	slog.Info("initiating graceful shutdown")

	// 1. Stop capture first (no new frames)
	if d.capture != nil {
		if packets, drops, err := d.capture.Stats(); err == nil {
			slog.Info("capture socket totals", "interface", d.config.Capture.Interface,
				"packets", packets, "drops", drops)
		}
	}
	if d.pipeline != nil {
		slog.Info("stopping capture pipeline")
		if err := d.pipeline.Stop(); err != nil {
			slog.Error("error stopping pipeline", "error", err)
		}
	}

	// 2. Final export
	if d.flusher != nil {
		slog.Info("stopping exporter")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.flusher.Stop(ctx); err != nil {
			slog.Error("error stopping exporter", "error", err)
		}
		cancel()
	}

	// 3. Stop UDS server (no new CLI commands)
	if d.udsServer != nil {
		slog.Info("stopping uds server")
		d.udsServer.Stop()
	}

	// 4. Stop metrics server
	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.metricsServer.Stop(shutdownCtx); err != nil {
			slog.Error("error stopping metrics server", "error", err)
		}
		cancel()
	}
	if d.collector != nil {
		prometheus.Unregister(d.collector)
	}

	// 5. Cancel context to signal all goroutines
	d.cancel()

	// 6. Unregister signal handler to prevent goroutine leak
	if d.sigChan != nil {
		signal.Stop(d.sigChan)
	}

	// 7. Remove PID file
	if err := d.removePIDFile(); err != nil {
		slog.Error("error removing PID file", "error", err)
	}

	slog.Info("daemon stopped gracefully")

	// 8. Flush logs
	logpkg.Flush()
}

// Run runs the daemon main loop, blocking until shutdown is triggered.
// Shutdown can be triggered by:
//  1. OS signals (SIGTERM, SIGINT)
//  2. daemon_shutdown command via UDS
//  3. SIGHUP triggers config reload
func (d *Daemon) Run() error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	slog.Info("daemon running, waiting for signals or commands")

	for {
		select {
		case sig := <-d.sigChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				slog.Info("received shutdown signal", "signal", sig)
				d.Stop()
				return nil

			case syscall.SIGHUP:
				slog.Info("received reload signal")
				if err := d.Reload(); err != nil {
					slog.Error("failed to reload config", "error", err)
				}
			}

		case <-d.shutdownChan:
			slog.Info("shutdown triggered by command")
			d.Stop()
			return nil

		case <-d.ctx.Done():
			slog.Info("context cancelled", "error", d.ctx.Err())
			d.Stop()
			return d.ctx.Err()
		}
	}
}

// Reload re-reads the configuration file and applies it.
// Implements ConfigReloader interface for CommandHandler.
func (d *Daemon) Reload() error {
	slog.Info("reloading configuration", "path", d.configPath)

	newConfig, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}
	d.apply(newConfig)
	return nil
}

// apply installs a validated configuration.
// Hot-reloadable: class ports, log level/format/outputs.
// Cold (requires restart): capture, store capacities, export, resolver,
// metrics listener, node.hostname.
func (d *Daemon) apply(newConfig *config.GlobalConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()

	old := d.config
	hotReloaded := []string{}

	if newConfig.Log != old.Log {
		d.config = newConfig
		if err := d.initLogging(); err != nil {
			slog.Error("failed to reinitialize logging", "error", err)
			d.config = old
			newConfig.Log = old.Log
		} else {
			hotReloaded = append(hotReloaded, "log")
		}
	}

	if d.engine != nil && newConfig.Ports != old.Ports {
		d.engine.Ports().Apply(newConfig.Ports.PortMap())
		hotReloaded = append(hotReloaded, "ports")
	}

	requiresRestart := []string{}
	if newConfig.Node.Hostname != old.Node.Hostname {
		requiresRestart = append(requiresRestart, "node.hostname")
	}
	if newConfig.Capture.Interface != old.Capture.Interface || newConfig.Capture.Enabled != old.Capture.Enabled {
		requiresRestart = append(requiresRestart, "capture")
	}
	if newConfig.Store != old.Store {
		requiresRestart = append(requiresRestart, "store")
	}
	if newConfig.Metrics != old.Metrics {
		requiresRestart = append(requiresRestart, "metrics")
	}
	if newConfig.Export.Enabled != old.Export.Enabled || newConfig.Export.Interval != old.Export.Interval {
		requiresRestart = append(requiresRestart, "export")
	}

	d.config = newConfig
	slog.Info("configuration reloaded",
		"hot_reloaded", hotReloaded,
		"requires_restart", requiresRestart,
		"ports", d.portSnapshot(),
	)
}

func (d *Daemon) portSnapshot() classify.PortMap {
	if d.engine == nil {
		return classify.PortMap{}
	}
	return d.engine.Ports().Snapshot()
}

// Config returns the configuration currently in effect.
func (d *Daemon) Config() *config.GlobalConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

// TriggerShutdown triggers graceful shutdown from external caller (e.g., daemon_shutdown command).
func (d *Daemon) TriggerShutdown() {
	d.shutdownOnce.Do(func() { close(d.shutdownChan) })
}

// initLogging initializes the logging system from config.
func (d *Daemon) initLogging() error {
	if err := logpkg.Init(d.config.Log); err != nil {
		return err
	}
	slog.Debug("logging initialized",
		"level", d.config.Log.Level,
		"format", d.config.Log.Format,
	)
	return nil
}

// startMetrics registers the peer collector and starts the HTTP server if enabled.
func (d *Daemon) startMetrics() error {
	cfg := d.config.Metrics
	if !cfg.Enabled {
		slog.Info("metrics server disabled")
		return nil
	}

	var names metrics.NameCache
	if d.resolver != nil {
		names = d.resolver
	}
	collector := metrics.NewPeerCollector(d.engine.Store(), d.engine.Diag(), names, cfg.PeerSeries)
	if err := prometheus.Register(collector); err != nil {
		return fmt.Errorf("register peer collector: %w", err)
	}
	d.collector = collector

	d.metricsServer = metrics.NewServer(cfg.Listen, cfg.Path, d.engine, nil)
	return d.metricsServer.Start(d.ctx)
}

// startExport opens the configured sinks and starts the flusher.
func (d *Daemon) startExport() error {
	cfg := d.config.Export
	if !cfg.Enabled {
		slog.Info("export disabled")
		return nil
	}

	var sinks []export.Sink
	if cfg.SQLite.Enabled {
		s, err := export.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		sinks = append(sinks, s)
	}
	if cfg.Kafka.Enabled {
		k, err := export.NewKafkaSink(cfg.Kafka)
		if err != nil {
			for _, s := range sinks {
				s.Close()
			}
			return err
		}
		sinks = append(sinks, k)
	}

	var names export.Namer
	if d.resolver != nil {
		names = d.resolver
	}
	d.flusher = export.NewFlusher(d.engine.Store(), d.config.Node.Hostname, cfg.Interval, names, sinks...)
	d.flusher.Start(d.ctx)
	return nil
}

// startCapture opens the live source and starts the pipeline.
func (d *Daemon) startCapture() error {
	cfg := d.config.Capture
	if !cfg.Enabled {
		slog.Info("live capture disabled")
		return nil
	}

	src, err := afpacket.Open(cfg)
	if err != nil {
		return err
	}

	d.capture = src

	locals := append(d.config.LocalMACs(), src.HardwareAddr())
	d.pipeline = pipeline.New(pipeline.Config{
		Name:      cfg.Interface,
		Source:    src,
		Hooks:     d.engine,
		Direction: pipeline.ByLocalMAC(locals...),
	})
	d.pipeline.Start(d.ctx)
	return nil
}

// writePIDFile writes the current process ID to the PID file.
func (d *Daemon) writePIDFile() error {
	if d.pidFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(d.pidFile), 0o755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}

	pid := os.Getpid()
	data := []byte(strconv.Itoa(pid) + "\n")

	if err := os.WriteFile(d.pidFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", d.pidFile, err)
	}

	slog.Debug("PID file written", "path", d.pidFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file.
func (d *Daemon) removePIDFile() error {
	if d.pidFile == "" {
		return nil
	}

	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", d.pidFile, err)
	}

	slog.Debug("PID file removed", "path", d.pidFile)
	return nil
}
