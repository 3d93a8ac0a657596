// Package cli provides shared configuration and utilities for the sqlcmd CLI.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/pthm/sqlcmd"
)

// Process exit codes.
const (
	ExitSuccess   = 0
	ExitGeneral   = 1
	ExitConfig    = 2
	ExitQuery     = 3
	ExitDBConnect = 4
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitWithError prints the error and exits with the appropriate code.
func ExitWithError(err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", exitErr.Error())
		if state := sqlcmd.SQLState(err); state != "" {
			fmt.Fprintln(os.Stderr, "SQLSTATE:", state)
		}
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(ExitGeneral)
}

// ConfigError creates an ExitError with ExitConfig code.
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// QueryError creates an ExitError with ExitQuery code.
func QueryError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitQuery, Message: msg, Err: err}
}

// DBConnectError creates an ExitError with ExitDBConnect code.
func DBConnectError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitDBConnect, Message: msg, Err: err}
}

// GeneralError creates an ExitError with ExitGeneral code.
func GeneralError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Message: msg, Err: err}
}

// ExecError classifies an error returned by a sqlcmd operation. Bad
// arguments are the caller's fault, unreachable targets are connection
// failures, and everything else came back from the database.
func ExecError(msg string, err error) *ExitError {
	switch {
	case sqlcmd.IsInvalidArgumentErr(err), sqlcmd.IsDuplicateParameterErr(err), sqlcmd.IsMissingParameterErr(err):
		return GeneralError(msg, err)
	case sqlcmd.IsInvalidConfigurationErr(err):
		return DBConnectError(msg, err)
	default:
		return QueryError(msg, err)
	}
}
