package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Show diagnostic counters",
	Long: `Show the hot path's diagnostic counters and the last accounted IPv4
egress addresses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiag(cmd.Context(), client(), cmd.OutOrStdout(), diagOutput)
	},
}

var diagOutput string

func init() {
	diagCmd.Flags().StringVarP(&diagOutput, "output", "o", formatYAML, "output format: json or yaml")
}

func runDiag(ctx context.Context, c ControlClient, out io.Writer, format string) error {
	snap, err := c.DiagDump(ctx)
	if err != nil {
		return fmt.Errorf("failed to dump diagnostics: %w", err)
	}
	return render(out, format, snap)
}
