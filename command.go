package sqlcmd

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Mode tells the driver how to interpret a Command's query text.
type Mode int

const (
	// PlainText executes the query text as a literal SQL statement.
	PlainText Mode = iota

	// StoredProcedure treats the query text as the name of a procedure to
	// invoke with the Command's parameters.
	StoredProcedure
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case PlainText:
		return "text"
	case StoredProcedure:
		return "procedure"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// nullValue is the type of Null.
type nullValue struct{}

// Null is stored in place of a nil parameter value. It marks an explicit SQL
// NULL and always reaches the driver as a plain nil.
var Null driver.Valuer = nullValue{}

// Value implements driver.Valuer.
func (nullValue) Value() (driver.Value, error) {
	return nil, nil
}

// String returns "NULL".
func (nullValue) String() string {
	return "NULL"
}

// IsNull reports whether v is nil or the Null sentinel.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(nullValue)
	return ok
}

// Parameter is a named value bound to a Command.
type Parameter struct {
	Name  string
	Value any
}

// Command is one executable unit: query text, an execution mode and named
// parameters. The query and mode are fixed at construction; parameters can
// only be added, never replaced or removed.
//
// A Command owns no external resources. Once handed to a Connection it is
// only read, so it may be reused across executions and goroutines as long
// as no parameters are added concurrently.
type Command struct {
	query  string
	mode   Mode
	params []Parameter
	index  map[string]int
}

// CommandOption configures a Command at construction.
type CommandOption func(*Command) error

// AsProcedure marks the command's query text as a stored procedure name.
func AsProcedure() CommandOption {
	return func(c *Command) error {
		c.mode = StoredProcedure
		return nil
	}
}

// WithParameter adds a parameter during construction. It applies the same
// rules as AddParameter.
func WithParameter(name string, value any) CommandOption {
	return func(c *Command) error {
		return c.AddParameter(name, value)
	}
}

// NewCommand creates a plain text command.
// Returns ErrInvalidArgument if query is empty or only whitespace.
//
//	cmd, err := sqlcmd.NewCommand("UPDATE t SET x = @v WHERE id = @id",
//	    sqlcmd.WithParameter("v", 5),
//	    sqlcmd.WithParameter("id", 1),
//	)
func NewCommand(query string, opts ...CommandOption) (*Command, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query can't be empty", ErrInvalidArgument)
	}

	c := &Command{
		query: query,
		mode:  PlainText,
		index: make(map[string]int),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewProcedure creates a command that invokes the named stored procedure.
func NewProcedure(name string, opts ...CommandOption) (*Command, error) {
	return NewCommand(name, append([]CommandOption{AsProcedure()}, opts...)...)
}

// Query returns the query text or procedure name.
func (c *Command) Query() string {
	return c.query
}

// Mode returns the execution mode.
func (c *Command) Mode() Mode {
	return c.mode
}

// IsStoredProcedure reports whether the command invokes a stored procedure.
func (c *Command) IsStoredProcedure() bool {
	return c.mode == StoredProcedure
}

// AddParameter binds value to name.
//
// A single leading '@' or ':' marker is stripped from name, so "@id" and
// "id" refer to the same parameter. A nil value is stored as Null.
//
// Returns ErrInvalidArgument if the name is empty, and ErrDuplicateParameter
// if the name is already bound. Existing parameters are never overwritten.
func (c *Command) AddParameter(name string, value any) error {
	key := parameterName(name)
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: parameter name can't be empty", ErrInvalidArgument)
	}
	if _, exists := c.index[key]; exists {
		return fmt.Errorf("%w: parameter %s already exists", ErrDuplicateParameter, key)
	}

	if value == nil {
		value = Null
	}

	c.index[key] = len(c.params)
	c.params = append(c.params, Parameter{Name: key, Value: value})
	return nil
}

// Parameters returns a copy of the bound parameters in insertion order.
func (c *Command) Parameters() []Parameter {
	out := make([]Parameter, len(c.params))
	copy(out, c.params)
	return out
}

// Parameter returns the value bound to name, if any.
func (c *Command) Parameter(name string) (any, bool) {
	i, ok := c.index[parameterName(name)]
	if !ok {
		return nil, false
	}
	return c.params[i].Value, true
}

// Len returns the number of bound parameters.
func (c *Command) Len() int {
	return len(c.params)
}

// String returns the query text, for logging.
func (c *Command) String() string {
	return c.query
}

func parameterName(name string) string {
	if len(name) > 0 && (name[0] == '@' || name[0] == ':') {
		return name[1:]
	}
	return name
}

// bindValue converts a stored parameter value to what the driver receives.
func bindValue(v any) any {
	if IsNull(v) {
		return nil
	}
	return v
}
