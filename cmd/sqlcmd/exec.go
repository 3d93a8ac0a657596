package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm/sqlcmd"
	"github.com/pthm/sqlcmd/internal/cli"
)

var queryLimit int

var execCmd = &cobra.Command{
	Use:   "exec [query]",
	Short: "Execute a statement and report rows affected",
	Long:  `Execute an INSERT, UPDATE, DELETE, DDL statement or stored procedure and print the number of rows affected.`,
	Example: `  # Update a row
  sqlcmd exec --db postgres://localhost/mydb "UPDATE t SET x = @v WHERE id = @id" -p v=5 -p id=1

  # Call a stored procedure
  sqlcmd exec --proc log_action -p action=login -p user_id=7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommand(cmd, args, func(ctx context.Context, conn *sqlcmd.Connection, c *sqlcmd.Command, format string) error {
			n, err := conn.ExecuteNonQuery(ctx, c)
			if err != nil {
				return cli.ExecError("executing command", err)
			}
			return printAffected(cmd.OutOrStdout(), n, format)
		})
	},
}

var scalarCmd = &cobra.Command{
	Use:   "scalar [query]",
	Short: "Print the first column of the first row",
	Example: `  # Count rows
  sqlcmd scalar "SELECT count(*) FROM users"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommand(cmd, args, func(ctx context.Context, conn *sqlcmd.Connection, c *sqlcmd.Command, format string) error {
			v, err := conn.ExecuteScalar(ctx, c)
			if err != nil {
				return cli.ExecError("executing command", err)
			}
			return printScalar(cmd.OutOrStdout(), v, format)
		})
	},
}

var queryCmd = &cobra.Command{
	Use:   "query [query]",
	Short: "Stream rows as they are read",
	Long: `Run a query and print each row as soon as it is read. Table output is
tab separated, JSON output is one object per line, YAML output is one
document per row.

With --limit the query stops after that many rows and the connection is
released without reading the rest.`,
	Example: `  # First ten users
  sqlcmd query "SELECT id, username FROM users ORDER BY id" --limit 10 -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommand(cmd, args, func(ctx context.Context, conn *sqlcmd.Connection, c *sqlcmd.Command, format string) error {
			seq, err := sqlcmd.ExecuteReader(ctx, conn, c, readRow)
			if err != nil {
				return cli.ExecError("executing command", err)
			}

			p := newRowPrinter(cmd.OutOrStdout(), format)
			for row, err := range seq {
				if err != nil {
					return cli.ExecError("reading rows", err)
				}
				if err := p.print(row); err != nil {
					return cli.GeneralError("writing output", err)
				}
				if queryLimit > 0 && p.count >= queryLimit {
					break
				}
			}
			return p.flush()
		})
	},
}

var tableCmd = &cobra.Command{
	Use:   "table [query]",
	Short: "Print the first result set",
	Example: `  # Print a table
  sqlcmd table "SELECT * FROM users" -o yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommand(cmd, args, func(ctx context.Context, conn *sqlcmd.Connection, c *sqlcmd.Command, format string) error {
			t, err := conn.GetDataTable(ctx, c)
			if err != nil {
				return cli.ExecError("executing command", err)
			}
			return printTable(cmd.OutOrStdout(), t, format)
		})
	},
}

var datasetCmd = &cobra.Command{
	Use:   "dataset [query]",
	Short: "Print every result set",
	Long: `Run a command that may return several result sets and print them all.
Whether several statements can be sent at once depends on the driver;
lib/pq (--driver pq) accepts them when no parameters are given.`,
	Example: `  # Two result sets
  sqlcmd dataset --driver pq "SELECT * FROM users; SELECT * FROM audit_log"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommand(cmd, args, func(ctx context.Context, conn *sqlcmd.Connection, c *sqlcmd.Command, format string) error {
			ds, err := conn.GetDataSet(ctx, c)
			if err != nil {
				return cli.ExecError("executing command", err)
			}
			return printDataSet(cmd.OutOrStdout(), ds, format)
		})
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the database is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()

		start := time.Now()
		conn, err := connect(ctx)
		if err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "OK %s (%s)\n", redactDSN(conn.ConnString()), time.Since(start).Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{execCmd, scalarCmd, queryCmd, tableCmd, datasetCmd} {
		addExecFlags(c.Flags())
	}
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "stop after this many rows (0 = all)")
	addConnFlags(pingCmd.Flags())
}

// withCommand resolves the output format, builds the command, opens the
// connection and hands them to fn under the command timeout.
func withCommand(cmd *cobra.Command, args []string, fn func(context.Context, *sqlcmd.Connection, *sqlcmd.Command, string) error) error {
	format, err := resolveFormat()
	if err != nil {
		return err
	}

	c, err := buildCommand(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, conn, c, format)
}

// readRow is the reader selector used by the query command.
func readRow(r sqlcmd.Record) (resultRow, error) {
	values, err := r.Values()
	if err != nil {
		return resultRow{}, err
	}
	return resultRow{columns: r.Columns(), values: values}, nil
}
