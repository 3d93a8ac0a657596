package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/pthm/sqlcmd"
	"github.com/pthm/sqlcmd/internal/cli"
)

// execOptions are the flags shared by every command that talks to a
// database. Only one command runs per process, so one set is enough.
type execOptions struct {
	db          string
	driver      string
	params      []string
	nulls       []string
	proc        bool
	file        string
	format      string
	timeout     time.Duration
	askPassword bool
}

var run execOptions

// addConnFlags registers the flags needed to reach a database.
func addConnFlags(f *pflag.FlagSet) {
	f.StringVar(&run.db, "db", "", "database URL or connection string")
	f.StringVar(&run.driver, "driver", "", "driver: pgx, pq, or a registered database/sql driver name")
	f.DurationVar(&run.timeout, "timeout", 0, "abort the command after this long (0 = no limit)")
	f.BoolVar(&run.askPassword, "password", false, "prompt for the database password")
}

// addExecFlags registers the connection flags plus those describing the
// command to run.
func addExecFlags(f *pflag.FlagSet) {
	addConnFlags(f)
	f.StringArrayVarP(&run.params, "param", "p", nil, "parameter as name=value (repeatable)")
	f.StringArrayVar(&run.nulls, "null", nil, "parameter bound to SQL NULL (repeatable)")
	f.BoolVar(&run.proc, "proc", false, "treat the query as a stored procedure name")
	f.StringVarP(&run.file, "file", "f", "", "read the query from a file (- for stdin)")
	f.StringVarP(&run.format, "format", "o", "", "output format: table, yaml or json")
}

// resolveDSN returns the connection string from --db or the config file.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("database configuration", err)
	}
	if dsn == "" {
		return "", cli.ConfigError("database URL is required (use --db or set in config)", nil)
	}
	return dsn, nil
}

// resolveFormat returns the output format from --format or the config file.
func resolveFormat() (string, error) {
	format := resolveString(run.format, cfg.Output.Format, cli.FormatTable)
	if err := cli.ValidateFormat(format); err != nil {
		return "", cli.ConfigError("output format", err)
	}
	return format, nil
}

// commandContext bounds ctx by --timeout, falling back to the config file.
func commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := run.timeout
	if timeout == 0 {
		timeout = cfg.Timeout
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// connect opens a Connection using the resolved driver and DSN.
func connect(ctx context.Context) (*sqlcmd.Connection, error) {
	dsn, err := resolveDSN(run.db)
	if err != nil {
		return nil, err
	}

	if run.askPassword {
		password, err := promptPassword()
		if err != nil {
			return nil, cli.GeneralError("reading password", err)
		}
		dsn = withPassword(dsn, password)
	}

	driverName := resolveString(run.driver, cfg.Driver)
	factory, err := cli.ResolveFactory(driverName)
	if err != nil {
		return nil, cli.ConfigError("selecting driver", err)
	}

	logger.Info("opening connection", zap.String("driver", driverName))
	conn, err := sqlcmd.Open(ctx, factory, dsn, sqlcmd.WithLogger(logger))
	if err != nil {
		return nil, cli.ExecError("connecting to database", err)
	}
	return conn, nil
}

func promptPassword() (string, error) {
	var password string
	err := huh.NewInput().
		Title("Database password").
		EchoMode(huh.EchoModePassword).
		Value(&password).
		Run()
	return password, err
}

// withPassword sets the password in a URL DSN, or appends it to a
// key=value connection string.
func withPassword(dsn, password string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		user := ""
		if u.User != nil {
			user = u.User.Username()
		}
		u.User = url.UserPassword(user, password)
		return u.String()
	}
	quoted := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(password)
	return strings.TrimSpace(dsn) + " password='" + quoted + "'"
}

// buildCommand assembles a sqlcmd.Command from the positional arguments
// (or --file) and the parameter flags.
func buildCommand(cmd *cobra.Command, args []string) (*sqlcmd.Command, error) {
	query, err := readQuery(cmd.InOrStdin(), args)
	if err != nil {
		return nil, err
	}

	opts, err := parameterOptions(run.params, run.nulls)
	if err != nil {
		return nil, err
	}

	var c *sqlcmd.Command
	if run.proc {
		c, err = sqlcmd.NewProcedure(query, opts...)
	} else {
		c, err = sqlcmd.NewCommand(query, opts...)
	}
	if err != nil {
		return nil, cli.GeneralError("building command", err)
	}
	return c, nil
}

func readQuery(stdin io.Reader, args []string) (string, error) {
	switch {
	case run.file != "" && len(args) > 0:
		return "", cli.GeneralError("give the query as an argument or with --file, not both", nil)
	case run.file == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", cli.GeneralError("reading query from stdin", err)
		}
		return string(b), nil
	case run.file != "":
		b, err := os.ReadFile(run.file)
		if err != nil {
			return "", cli.GeneralError("reading query file", err)
		}
		return string(b), nil
	case len(args) == 0:
		return "", cli.GeneralError("a query is required", nil)
	default:
		return strings.Join(args, " "), nil
	}
}

// parameterOptions turns "name=value" pairs and NULL names into command
// options. Values are passed as strings; the database casts them.
func parameterOptions(pairs, nulls []string) ([]sqlcmd.CommandOption, error) {
	opts := make([]sqlcmd.CommandOption, 0, len(pairs)+len(nulls))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, cli.GeneralError(fmt.Sprintf("invalid parameter %q", p), fmt.Errorf("want name=value"))
		}
		opts = append(opts, sqlcmd.WithParameter(name, value))
	}
	for _, name := range nulls {
		opts = append(opts, sqlcmd.WithParameter(name, sqlcmd.Null))
	}
	return opts, nil
}
