package sqlcmd

import (
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/pthm/sqlcmd/internal/sqlbind"
)

// Pgx returns a Factory backed by github.com/jackc/pgx/v5 through its
// database/sql adapter.
//
// Parameters are bound by name with pgx.NamedArgs, so "@name" placeholders
// are resolved by pgx itself. Stored procedures are invoked with PostgreSQL
// named notation:
//
//	CALL transfer(src => @src, dst => @dst, amount => @amount)
func Pgx() Factory {
	return pgxFactory{}
}

type pgxFactory struct{}

// OpenDB parses connString eagerly so malformed strings fail before any
// network activity.
func (pgxFactory) OpenDB(connString string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	return stdlib.OpenDB(*cfg), nil
}

func (pgxFactory) Statement(cmd *Command) (Statement, error) {
	params := cmd.Parameters()
	query := cmd.Query()
	if cmd.IsStoredProcedure() {
		query = callProcedureNamed(query, params)
	}

	if len(params) == 0 {
		return Statement{Query: query}, nil
	}

	named := make(pgx.NamedArgs, len(params))
	for _, p := range params {
		named[p.Name] = bindValue(p.Value)
	}
	return Statement{Query: query, Args: []any{named}}, nil
}

// PQ returns a Factory backed by github.com/lib/pq.
//
// lib/pq only understands positional parameters, so "@name" placeholders
// are rewritten to $1, $2, ... before execution. A placeholder with no
// matching parameter fails with ErrMissingParameter.
func PQ() Factory {
	return pqFactory{}
}

type pqFactory struct{}

func (pqFactory) OpenDB(connString string) (*sql.DB, error) {
	connector, err := pq.NewConnector(connString)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

func (pqFactory) Statement(cmd *Command) (Statement, error) {
	query := cmd.Query()
	if cmd.IsStoredProcedure() {
		query = callProcedureNamed(query, cmd.Parameters())
	}
	return positional(query, cmd, sqlbind.Dollar)
}
