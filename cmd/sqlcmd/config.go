package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/sqlcmd/internal/cli"
)

var (
	configShowSource bool
	configShowFormat string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect sqlcmd configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the settings commands will run with",
	Long: `Print the driver, database target, timeout and output format after
defaults, sqlcmd.yaml and SQLCMD_* environment variables are merged.
Flags given to other commands are not included.

The database password and any password in database.url are masked.`,
	Example: `  # Settings as YAML
  sqlcmd config show

  # Which sqlcmd.yaml was picked up, as JSON
  sqlcmd config show --source -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.ValidateFormat(configShowFormat); err != nil || configShowFormat == cli.FormatTable {
			return cli.ConfigError(fmt.Sprintf("config show supports yaml or json, not %q", configShowFormat), err)
		}

		out := cmd.OutOrStdout()
		if configShowSource {
			source := configPath
			if source == "" {
				source = "(none, defaults and environment only)"
			}
			if configShowFormat == cli.FormatYAML {
				fmt.Fprintf(out, "# source: %s\n", source)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "source: %s\n", source)
			}
		}
		return encode(out, cfg.Redacted(), configShowFormat)
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowSource, "source", false, "also print which config file was loaded")
	configShowCmd.Flags().StringVarP(&configShowFormat, "format", "o", cli.FormatYAML, "yaml or json")
	configCmd.AddCommand(configShowCmd)
}
