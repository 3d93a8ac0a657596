package sqlcmd

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pthm/sqlcmd/internal/sqlbind"
)

// Statement is a Command translated into driver-native form: the text sent
// to the server and the arguments passed alongside it.
type Statement struct {
	Query string
	Args  []any
}

// Factory manufactures everything driver specific. It is supplied by the
// caller, shared, and never owned or closed by a Connection.
//
// OpenDB is called once per execution and once for the probe in Open, so
// implementations must return a new handle every time; the caller closes
// it. Statement must be safe for concurrent use.
type Factory interface {
	// OpenDB returns a new, not yet connected handle for the connection
	// string. Parsing errors are reported here; network errors surface when
	// the first connection is made.
	OpenDB(connString string) (*sql.DB, error)

	// Statement translates cmd into statement text and arguments. Stored
	// procedure commands are rendered as a driver-specific invocation.
	Statement(cmd *Command) (Statement, error)
}

// DriverOption configures a factory returned by Driver.
type DriverOption func(*driverFactory)

// ProcedureFormat renders a stored procedure invocation. The parameters are
// the command's parameters in insertion order.
type ProcedureFormat func(name string, params []Parameter) string

// WithProcedureFormat overrides how stored procedure commands are rendered.
// The default renders "CALL name(@a, @b)".
func WithProcedureFormat(format ProcedureFormat) DriverOption {
	return func(f *driverFactory) {
		f.procedure = format
	}
}

// Placeholder renders the positional placeholder for the n-th distinct
// parameter (1-based).
type Placeholder = sqlbind.Placeholder

// Positional placeholder styles for WithPlaceholder.
var (
	DollarPlaceholder   Placeholder = sqlbind.Dollar
	QuestionPlaceholder Placeholder = sqlbind.Question
)

// WithPlaceholder switches the factory from sql.Named arguments to
// positional ones. Named "@name" placeholders in the statement text are
// rewritten with format and arguments are ordered to match.
//
//	f := sqlcmd.Driver("mysql", sqlcmd.WithPlaceholder(sqlcmd.QuestionPlaceholder))
func WithPlaceholder(format Placeholder) DriverOption {
	return func(f *driverFactory) {
		f.placeholder = format
	}
}

// driverFactory adapts any driver registered with database/sql.
type driverFactory struct {
	name        string
	procedure   ProcedureFormat
	placeholder sqlbind.Placeholder
}

// Driver returns a Factory for a driver registered with database/sql under
// name, e.g. "pgx", "postgres" or "sqlite3".
//
// By default parameters are passed as sql.Named arguments, which requires
// a driver that supports named parameters. Use WithPlaceholder for drivers
// that only accept positional arguments.
func Driver(name string, opts ...DriverOption) Factory {
	f := &driverFactory{
		name:      name,
		procedure: callProcedure,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// OpenDB opens a handle for the registered driver.
func (f *driverFactory) OpenDB(connString string) (*sql.DB, error) {
	return sql.Open(f.name, connString)
}

// Statement renders cmd as sql.Named arguments, or positional ones when a
// placeholder format is configured.
func (f *driverFactory) Statement(cmd *Command) (Statement, error) {
	params := cmd.Parameters()
	query := cmd.Query()
	if cmd.IsStoredProcedure() {
		query = f.procedure(query, params)
	}

	if f.placeholder != nil {
		return positional(query, cmd, f.placeholder)
	}

	args := make([]any, 0, len(params))
	for _, p := range params {
		args = append(args, sql.Named(p.Name, bindValue(p.Value)))
	}
	return Statement{Query: query, Args: args}, nil
}

// positional rewrites named placeholders in query and orders the command's
// values to match. Parameters the text never references are not sent.
// Every placeholder without a parameter is named in the error.
func positional(query string, cmd *Command, format sqlbind.Placeholder) (Statement, error) {
	var missing []string
	for _, name := range sqlbind.Names(query) {
		if _, ok := cmd.Parameter(name); !ok {
			missing = append(missing, "@"+name)
		}
	}
	if len(missing) > 0 {
		return Statement{}, fmt.Errorf("%w: %s", ErrMissingParameter, strings.Join(missing, ", "))
	}

	text, names := sqlbind.Rewrite(query, format)
	args := make([]any, 0, len(names))
	for _, name := range names {
		v, _ := cmd.Parameter(name)
		args = append(args, bindValue(v))
	}
	return Statement{Query: text, Args: args}, nil
}

// callProcedure renders "CALL name(@a, @b)".
func callProcedure(name string, params []Parameter) string {
	refs := make([]string, len(params))
	for i, p := range params {
		refs[i] = "@" + p.Name
	}
	return fmt.Sprintf("CALL %s(%s)", name, strings.Join(refs, ", "))
}

// callProcedureNamed renders PostgreSQL named notation:
// "CALL name(a => @a, b => @b)".
func callProcedureNamed(name string, params []Parameter) string {
	refs := make([]string, len(params))
	for i, p := range params {
		refs[i] = p.Name + " => @" + p.Name
	}
	return fmt.Sprintf("CALL %s(%s)", name, strings.Join(refs, ", "))
}
