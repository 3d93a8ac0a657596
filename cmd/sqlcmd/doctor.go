package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/sqlcmd/internal/cli"
	"github.com/pthm/sqlcmd/internal/doctor"
)

var doctorVerbose bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks",
	Long:  `Check that the configured driver can reach the database, bind named and NULL parameters, and query the server.`,
	Example: `  # Run health checks
  sqlcmd doctor --db postgres://localhost/mydb

  # Check a lib/pq setup with verbose output
  sqlcmd doctor --driver pq --details`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(run.db)
		if err != nil {
			return err
		}
		if run.askPassword {
			password, err := promptPassword()
			if err != nil {
				return cli.GeneralError("reading password", err)
			}
			dsn = withPassword(dsn, password)
		}
		factory, err := cli.ResolveFactory(resolveString(run.driver, cfg.Driver))
		if err != nil {
			return cli.ConfigError("selecting driver", err)
		}

		ctx, cancel := commandContext(cmd.Context())
		defer cancel()

		out := cmd.OutOrStdout()
		if !quiet {
			fmt.Fprintln(out, "sqlcmd doctor - Health Check")
		}

		report := doctor.New(factory, dsn, logger).Run(ctx)
		report.Print(out, doctorVerbose || verbose > 0)

		if report.HasErrors() {
			return cli.GeneralError("health checks failed", nil)
		}
		return nil
	},
}

func init() {
	addConnFlags(doctorCmd.Flags())
	doctorCmd.Flags().BoolVar(&doctorVerbose, "details", false, "show check details")
}
