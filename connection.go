package sqlcmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Connection executes Commands against one database target.
//
// A Connection is a recipe, not a live handle: it keeps the factory and
// connection string and nothing else. Every execution opens its own
// underlying connection and closes it before returning (or, for readers,
// when iteration ends). Connections are therefore safe for concurrent use
// and need no Close.
type Connection struct {
	factory    Factory
	connString string
	logger     *zap.Logger
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the logger used for per-execution debug entries.
// The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Connection) {
		if l != nil {
			c.logger = l
		}
	}
}

// Open validates connString against factory and returns a Connection.
//
// One throwaway connection is opened and pinged to prove the target is
// reachable, then closed. If that fails the error wraps both
// ErrInvalidConfiguration and the driver error. A successful Open does not
// guarantee later executions succeed; the server may go away.
//
// Returns ErrInvalidArgument for a blank connString or nil factory.
func Open(ctx context.Context, factory Factory, connString string, opts ...Option) (*Connection, error) {
	if strings.TrimSpace(connString) == "" {
		return nil, fmt.Errorf("%w: connection string can't be empty", ErrInvalidArgument)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: factory can't be nil", ErrInvalidArgument)
	}

	c := &Connection{
		factory:    factory,
		connString: connString,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.probe(ctx); err != nil {
		c.logger.Debug("connectivity probe failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return c, nil
}

// ConnString returns the connection string the Connection was opened with.
func (c *Connection) ConnString() string {
	return c.connString
}

// Factory returns the factory the Connection was opened with.
func (c *Connection) Factory() Factory {
	return c.factory
}

func (c *Connection) probe(ctx context.Context) error {
	db, err := c.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.PingContext(ctx)
}

// ExecuteNonQuery executes cmd and returns the number of rows affected.
// Use it for INSERT, UPDATE, DELETE and DDL.
func (c *Connection) ExecuteNonQuery(ctx context.Context, cmd *Command) (int64, error) {
	var affected int64
	err := c.run(ctx, "non_query", cmd, func(conn *sql.Conn, stmt Statement) error {
		res, err := conn.ExecContext(ctx, stmt.Query, stmt.Args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// ExecuteScalar executes cmd and returns the first column of the first row.
//
// The result is nil when the query returns no rows or the value is SQL
// NULL; Null is never returned.
func (c *Connection) ExecuteScalar(ctx context.Context, cmd *Command) (any, error) {
	var value any
	err := c.run(ctx, "scalar", cmd, func(conn *sql.Conn, stmt Statement) error {
		rows, err := conn.QueryContext(ctx, stmt.Query, stmt.Args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		if !rows.Next() {
			return rows.Err()
		}

		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			return nil
		}

		dest := make([]any, len(cols))
		dest[0] = &value
		for i := 1; i < len(dest); i++ {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		return rows.Close()
	})
	if err != nil {
		return nil, err
	}
	if IsNull(value) {
		return nil, nil
	}
	return value, nil
}

// GetDataTable executes cmd and materializes the first result set.
func (c *Connection) GetDataTable(ctx context.Context, cmd *Command) (*Table, error) {
	var table *Table
	err := c.run(ctx, "data_table", cmd, func(conn *sql.Conn, stmt Statement) error {
		rows, err := conn.QueryContext(ctx, stmt.Query, stmt.Args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		table, err = fillTable(rows, tableName(0))
		if err != nil {
			return err
		}
		return rows.Close()
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// GetDataSet executes cmd and materializes every result set it produces.
// Drivers that don't support multiple result sets yield one table.
func (c *Connection) GetDataSet(ctx context.Context, cmd *Command) (*DataSet, error) {
	var ds *DataSet
	err := c.run(ctx, "data_set", cmd, func(conn *sql.Conn, stmt Statement) error {
		rows, err := conn.QueryContext(ctx, stmt.Query, stmt.Args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		ds, err = fillDataSet(rows)
		if err != nil {
			return err
		}
		return rows.Close()
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// run opens a dedicated connection, binds cmd, and hands both to fn. The
// connection and its handle are closed when fn returns, whatever happens.
// Errors from the factory and the driver are returned untouched.
func (c *Connection) run(ctx context.Context, op string, cmd *Command, fn func(*sql.Conn, Statement) error) (err error) {
	if cmd == nil {
		return fmt.Errorf("%w: command can't be nil", ErrInvalidArgument)
	}

	start := time.Now()
	defer func() {
		fields := []zap.Field{
			zap.String("op", op),
			zap.Stringer("mode", cmd.Mode()),
			zap.Int("params", cmd.Len()),
			zap.Duration("elapsed", time.Since(start)),
		}
		// A reader whose consumer broke out of the loop finished normally.
		if errors.Is(err, errStopped) {
			fields = append(fields, zap.Bool("stopped", true))
		} else {
			fields = append(fields, zap.Error(err))
		}
		c.logger.Debug("executed command", fields...)
	}()

	db, err := c.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	stmt, err := c.factory.Statement(cmd)
	if err != nil {
		return err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	return fn(conn, stmt)
}

// openDB asks the factory for a fresh handle limited to one connection.
func (c *Connection) openDB() (*sql.DB, error) {
	db, err := c.factory.OpenDB(c.connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
