// Package cmd implements CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/peeracct/internal/core"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the peeracct daemon",
	Long: `Stop the peeracct daemon gracefully.

This command sends daemon_shutdown via Unix Domain Socket. The daemon stops
capture, runs a final export, and exits cleanly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop(cmd.Context(), client(), cmd.OutOrStdout())
	},
}

func runStop(ctx context.Context, c ControlClient, out io.Writer) error {
	err := c.Shutdown(ctx)
	if errors.Is(err, core.ErrDaemonNotRunning) {
		fmt.Fprintln(out, "Daemon is not running.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	fmt.Fprintln(out, "✓ Daemon is shutting down")
	return nil
}
