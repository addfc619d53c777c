package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"firestige.xyz/peeracct/internal/peerstats"
)

// Output formats accepted by --output.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// render writes v as indented JSON or YAML.
func render(out io.Writer, format string, v interface{}) error {
	switch format {
	case formatJSON, "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format result: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to format result: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format: %s (must be table, json or yaml)", format)
	}
}

// peerRow is the YAML/JSON shape of a peer in CLI output.
type peerRow struct {
	Peer               string `json:"peer" yaml:"peer"`
	Family             string `json:"family" yaml:"family"`
	peerstats.Counters `yaml:",inline"`
	Total              uint64 `json:"total" yaml:"total"`
}

func peerRows(records []peerstats.PeerRecord) []peerRow {
	rows := make([]peerRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, peerRow{
			Peer:     r.Peer.String(),
			Family:   r.Family(),
			Counters: r.Counters,
			Total:    r.Total(),
		})
	}
	return rows
}

// renderPeers prints records in the requested format.
func renderPeers(out io.Writer, format string, records []peerstats.PeerRecord) error {
	if format != formatTable {
		return render(out, format, peerRows(records))
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PEER\tA_UP\tA_DOWN\tB_UP\tB_DOWN\tC_UP\tC_DOWN\tTOTAL\t")
	for _, r := range records {
		c := r.Counters
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			r.Peer, c.AUp, c.ADown, c.BUp, c.BDown, c.CUp, c.CDown, c.Total())
	}
	return tw.Flush()
}
