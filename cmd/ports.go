package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"firestige.xyz/peeracct/internal/classify"
)

// portsCmd represents the ports command group
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Show or change class service ports",
	Long: `Show or change the service port of each traffic class.

Class A and B match TCP, class C matches UDP. Port 0 disables a class.
Changes made here last until the next reload or restart.`,
}

var portsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show class ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPortsGet(cmd.Context(), client(), cmd.OutOrStdout())
	},
}

var portsSetCmd = &cobra.Command{
	Use:   "set <class> <port>",
	Short: "Set the service port of a class",
	Long: `Set the service port of a class (a, b or c).

Examples:
  peeracct ports set a 9981
  peeracct ports set c 0        # stop counting class C`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", args[1], err)
		}
		return runPortsSet(cmd.Context(), client(), cmd.OutOrStdout(), args[0], port)
	},
}

func init() {
	portsCmd.AddCommand(portsGetCmd)
	portsCmd.AddCommand(portsSetCmd)
}

func printPorts(out io.Writer, m classify.PortMap) {
	fmt.Fprintf(out, "A  tcp  %d\n", m.A)
	fmt.Fprintf(out, "B  tcp  %d\n", m.B)
	fmt.Fprintf(out, "C  udp  %d\n", m.C)
}

func runPortsGet(ctx context.Context, c ControlClient, out io.Writer) error {
	m, err := c.PortsGet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get ports: %w", err)
	}
	printPorts(out, m)
	return nil
}

func runPortsSet(ctx context.Context, c ControlClient, out io.Writer, class string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("port %d out of range (0-65535)", port)
	}
	m, err := c.PortsSet(ctx, class, port)
	if err != nil {
		return fmt.Errorf("failed to set port: %w", err)
	}
	printPorts(out, m)
	return nil
}
