package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"

	"github.com/spf13/cobra"

	"firestige.xyz/peeracct/internal/classify"
	"firestige.xyz/peeracct/internal/config"
	"firestige.xyz/peeracct/internal/engine"
	"firestige.xyz/peeracct/internal/peerstats"
	"firestige.xyz/peeracct/internal/pipeline"
	filesource "firestige.xyz/peeracct/internal/source/file"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Account a capture file offline",
	Long: `Feed a pcap or pcapng file through the accounting hooks and print the
resulting peer table. No daemon is needed.

Frames sent from one of the local MACs go through the egress hook, all
others through ingress. Ports come from the config file when it exists,
otherwise from the built-in defaults.

Examples:
  peeracct replay -f trace.pcap --local-mac 52:54:00:12:34:56
  peeracct replay -f trace.pcapng -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if errors.Is(err, fs.ErrNotExist) {
			cfg, err = config.Default()
		}
		if err != nil {
			return err
		}
		return runReplay(cmd.Context(), cmd.OutOrStdout(), cfg, replayFile, replayMACs, replayOutput)
	},
}

var (
	replayFile   string
	replayMACs   []string
	replayOutput string
)

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "pcap or pcapng file (required)")
	replayCmd.Flags().StringSliceVar(&replayMACs, "local-mac", nil, "MAC address of the local host (repeatable)")
	replayCmd.Flags().StringVarP(&replayOutput, "output", "o", formatTable, "output format: table, json or yaml")
	replayCmd.MarkFlagRequired("file")
}

func runReplay(ctx context.Context, out io.Writer, cfg *config.GlobalConfig, path string, macs []string, format string) error {
	locals := cfg.LocalMACs()
	for _, s := range macs {
		mac, err := net.ParseMAC(s)
		if err != nil {
			return fmt.Errorf("invalid --local-mac %q: %w", s, err)
		}
		locals = append(locals, mac)
	}

	src, err := filesource.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	eng := engine.New(
		classify.NewPorts(cfg.Ports.PortMap()),
		peerstats.NewStore(cfg.Store.CapacityV4, cfg.Store.CapacityV6),
		nil,
	)
	p := pipeline.New(pipeline.Config{
		Name:      "replay",
		Source:    src,
		Hooks:     eng,
		Direction: pipeline.ByLocalMAC(locals...),
	})
	if err := p.Run(ctx); err != nil {
		return err
	}
	return renderPeers(out, format, eng.Store().Snapshot())
}
