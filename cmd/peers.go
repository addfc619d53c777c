package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// peersCmd represents the peers command group
var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Inspect and manage peer rows",
}

var peersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List peer counters",
	Long: `List every peer row with its six counters, sorted by address.

Examples:
  peeracct peers list
  peeracct peers list --family ipv6 -o yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPeersList(cmd.Context(), client(), cmd.OutOrStdout(), peersFamily, peersOutput)
	},
}

var peersDeleteCmd = &cobra.Command{
	Use:   "delete <address>",
	Short: "Delete one peer row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPeersDelete(cmd.Context(), client(), cmd.OutOrStdout(), args[0])
	},
}

var peersClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every peer row",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPeersClear(cmd.Context(), client(), cmd.OutOrStdout())
	},
}

var (
	peersFamily string
	peersOutput string
)

func init() {
	peersListCmd.Flags().StringVar(&peersFamily, "family", "", "address family: ipv4 or ipv6 (default: both)")
	peersListCmd.Flags().StringVarP(&peersOutput, "output", "o", formatTable, "output format: table, json or yaml")

	peersCmd.AddCommand(peersListCmd)
	peersCmd.AddCommand(peersDeleteCmd)
	peersCmd.AddCommand(peersClearCmd)
}

func runPeersList(ctx context.Context, c ControlClient, out io.Writer, family, format string) error {
	records, err := c.PeersDump(ctx, family)
	if err != nil {
		return fmt.Errorf("failed to dump peers: %w", err)
	}
	return renderPeers(out, format, records)
}

func runPeersDelete(ctx context.Context, c ControlClient, out io.Writer, peer string) error {
	if err := c.PeersDelete(ctx, peer); err != nil {
		return fmt.Errorf("failed to delete peer %s: %w", peer, err)
	}
	fmt.Fprintf(out, "Peer %s deleted.\n", peer)
	return nil
}

func runPeersClear(ctx context.Context, c ControlClient, out io.Writer) error {
	n, err := c.PeersClear(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear peers: %w", err)
	}
	fmt.Fprintf(out, "%d peer row(s) cleared.\n", n)
	return nil
}
