// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"

	"firestige.xyz/peeracct/internal/command"
)

var (
	// Global flags
	configFile string
	socketPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "peeracct",
	Short: "peeracct - per-peer traffic accounting",
	Long: `peeracct counts bytes per remote peer for three monitored services.

Every frame seen on the capture interface is parsed (Ethernet, IPv4/IPv6,
TCP/UDP), matched against the configured service ports and added to one of
six counters (class A/B/C, up/down) on the peer's row.

Features:
  - Live AF_PACKET capture or offline pcap/pcapng replay
  - Prometheus metrics and an HTTP API for peer tables
  - Periodic delta export to SQLite and Kafka
  - Local control: CLI via Unix Domain Socket`,
	Version:      command.Version,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/peeracct/config.yml",
		"config file path")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "/var/run/peeracct.sock",
		"daemon socket path")

	// Add subcommands
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(peersCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateCmd)
}
