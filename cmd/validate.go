// Package cmd implements CLI commands.
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/peeracct/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file without starting the daemon, then
print the effective configuration (defaults and environment overrides applied).

Examples:
  peeracct validate -f /etc/peeracct/config.yml
  PEERACCT_PORTS_A=7000 peeracct validate -f config.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := validateConfigFile
		if path == "" {
			path = configFile
		}
		return runValidate(cmd.OutOrStdout(), path)
	},
}

var validateConfigFile string

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "file", "f", "",
		"configuration file to validate (default: --config)")
}

func runValidate(out io.Writer, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}
	fmt.Fprintf(out, "VALID: %s\n", path)
	return render(out, formatYAML, map[string]*config.GlobalConfig{"peeracct": cfg})
}
