package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/peeracct/internal/config"
	"firestige.xyz/peeracct/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export control",
}

var exportFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Export pending deltas now",
	Long:  `Run one export cycle immediately instead of waiting for the next interval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExportFlush(cmd.Context(), client(), cmd.OutOrStdout())
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show daily totals from the SQLite history",
	Long: `Sum the exported deltas in the local SQLite history per peer for one UTC day.

Examples:
  peeracct history                       # today, database from config
  peeracct history --day 2024-05-01 --db /var/lib/peeracct/traffic.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db := historyDB
		if db == "" {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			db = cfg.Export.SQLite.Path
		}
		day := time.Now().UTC()
		if historyDay != "" {
			var err error
			if day, err = time.Parse(time.DateOnly, historyDay); err != nil {
				return fmt.Errorf("invalid --day %q: %w", historyDay, err)
			}
		}
		return runHistory(cmd.Context(), cmd.OutOrStdout(), db, day, historyOutput)
	},
}

var (
	historyDB     string
	historyDay    string
	historyOutput string
)

func init() {
	exportCmd.AddCommand(exportFlushCmd)

	historyCmd.Flags().StringVar(&historyDB, "db", "", "SQLite database path (default: export.sqlite.path from config)")
	historyCmd.Flags().StringVar(&historyDay, "day", "", "UTC day as YYYY-MM-DD (default: today)")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", formatTable, "output format: table, json or yaml")
}

func runExportFlush(ctx context.Context, c ControlClient, out io.Writer) error {
	n, err := c.ExportFlush(ctx)
	if err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	fmt.Fprintf(out, "✓ Exported %d record(s)\n", n)
	return nil
}

func runHistory(ctx context.Context, out io.Writer, db string, day time.Time, format string) error {
	store, err := export.OpenSQLite(db)
	if err != nil {
		return err
	}
	defer store.Close()

	totals, err := store.DailyTotals(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", db, err)
	}
	if format != formatTable {
		return render(out, format, totals)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "IP\tDNS\tA_UP\tA_DOWN\tB_UP\tB_DOWN\tC_UP\tC_DOWN")
	for _, t := range totals {
		c := t.Counters
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			t.IP, t.DNS, c.AUp, c.ADown, c.BUp, c.BDown, c.CUp, c.CDown)
	}
	return tw.Flush()
}
