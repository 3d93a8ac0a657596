package sqlcmd

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Sentinel errors for contract violations detected by sqlcmd itself.
// Errors raised by the driver while opening, binding or executing are
// never wrapped with these; they are returned exactly as the driver
// produced them.
var (
	// ErrInvalidArgument is returned for malformed input: an empty query,
	// an empty parameter name, a nil factory, a blank connection string,
	// a nil command or a nil reader selector.
	ErrInvalidArgument = errors.New("sqlcmd: invalid argument")

	// ErrDuplicateParameter is returned when a parameter name is added to a
	// Command twice. The first value is kept.
	ErrDuplicateParameter = errors.New("sqlcmd: duplicate parameter")

	// ErrInvalidConfiguration is returned by Open when the connectivity probe
	// fails. The driver error is wrapped alongside it and can be inspected
	// with errors.As.
	ErrInvalidConfiguration = errors.New("sqlcmd: connection string is invalid or the server is unreachable")

	// ErrMissingParameter is returned when statement text references a
	// placeholder that has no parameter on the Command. Only factories that
	// rewrite named placeholders into positional ones detect this.
	ErrMissingParameter = errors.New("sqlcmd: missing parameter")

	// ErrSequenceConsumed is yielded when a reader sequence is ranged over a
	// second time. Reader sequences cannot be restarted.
	ErrSequenceConsumed = errors.New("sqlcmd: reader sequence already consumed")

	// ErrUnknownColumn is returned by Record and Table lookups for a column
	// name that is not part of the result.
	ErrUnknownColumn = errors.New("sqlcmd: unknown column")
)

// IsInvalidArgumentErr returns true if err is or wraps ErrInvalidArgument.
func IsInvalidArgumentErr(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsDuplicateParameterErr returns true if err is or wraps ErrDuplicateParameter.
func IsDuplicateParameterErr(err error) bool {
	return errors.Is(err, ErrDuplicateParameter)
}

// IsInvalidConfigurationErr returns true if err is or wraps ErrInvalidConfiguration.
func IsInvalidConfigurationErr(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsMissingParameterErr returns true if err is or wraps ErrMissingParameter.
func IsMissingParameterErr(err error) bool {
	return errors.Is(err, ErrMissingParameter)
}

// SQLState extracts the PostgreSQL SQLSTATE code from a driver error.
// Both pgx (*pgconn.PgError) and lib/pq (*pq.Error) errors are recognized,
// including when wrapped. Returns "" for anything else.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	// Other drivers sometimes expose the code through a method.
	type sqlStateErr interface{ SQLState() string }
	var se sqlStateErr
	if errors.As(err, &se) {
		return se.SQLState()
	}

	return ""
}

// PostgreSQL error codes callers commonly branch on.
const (
	PgUndefinedTable     = "42P01" // undefined_table
	PgUndefinedFunction  = "42883" // undefined_function
	PgUniqueViolation    = "23505" // unique_violation
	PgInvalidPassword    = "28P01" // invalid_password
	PgInvalidCatalogName = "3D000" // invalid_catalog_name
)
