// Package cmd implements CLI commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Query the peeracct daemon for its overall status.

Shows: version, uptime, class ports and peer table occupancy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd.Context(), client(), cmd.OutOrStdout())
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show runtime statistics",
	Long: `Query the peeracct daemon for runtime statistics.

Shows: table occupancy, diagnostic event counters and capture pipeline counters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd.Context(), client(), cmd.OutOrStdout(), statsOutput)
	},
}

var statsOutput string

func init() {
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", formatJSON, "output format: json or yaml")
}

func runStatus(ctx context.Context, c ControlClient, out io.Writer) error {
	status, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to query daemon status: %w", err)
	}

	fmt.Fprintf(out, "peeracct %s, up %s\n", status.Version, time.Duration(status.UptimeSec)*time.Second)
	fmt.Fprintf(out, "ports: A=%d/tcp B=%d/tcp C=%d/udp\n", status.Ports.A, status.Ports.B, status.Ports.C)
	fmt.Fprintf(out, "peers: ipv4 %d/%d, ipv6 %d/%d\n",
		status.Occupancy.V4Entries, status.Occupancy.V4Capacity,
		status.Occupancy.V6Entries, status.Occupancy.V6Capacity)
	return nil
}

func runStats(ctx context.Context, c ControlClient, out io.Writer, format string) error {
	stats, err := c.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to query stats: %w", err)
	}
	return render(out, format, stats)
}
