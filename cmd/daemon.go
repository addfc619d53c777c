// Package cmd implements CLI commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/peeracct/internal/daemon"
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run peeracct daemon in foreground",
	Long: `Run the peeracct daemon process in foreground.

The daemon will:
  1. Load global configuration from config file
  2. Initialize logging, the peer tables and the accounting hooks
  3. Start the metrics server and HTTP API (if enabled)
  4. Start the exporter (if enabled) and live capture (if enabled)
  5. Start UDS server for CLI control
  6. Handle signals for graceful shutdown (SIGTERM, SIGINT) and reload (SIGHUP)`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDaemon(cmd); err != nil {
			slog.Error("daemon failed", "error", err)
			os.Exit(1)
		}
	},
}

var pidFile string

func init() {
	daemonCmd.Flags().StringVarP(&pidFile, "pidfile", "p", "",
		"PID file path (default: control.pid_file from config)")
}

func runDaemon(cmd *cobra.Command) error {
	// The socket flag only overrides the config when given explicitly.
	socket := ""
	if cmd.Flags().Changed("socket") {
		socket = socketPath
	}

	d, err := daemon.New(configFile, socket, pidFile)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	// Start all components
	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// Run main loop (blocks until shutdown)
	return d.Run()
}
