package sqlcmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
)

// Record is the read view of the current row handed to a reader selector.
// It is only valid for the duration of the selector call.
type Record interface {
	// Columns returns the column names in result order.
	Columns() []string

	// Scan copies the current row into dest, as sql.Rows.Scan does.
	Scan(dest ...any) error

	// Values returns the current row as a slice, SQL NULL as nil.
	Values() ([]any, error)

	// Value returns the named column of the current row.
	Value(name string) (any, error)

	// IsNull reports whether the named column is SQL NULL.
	IsNull(name string) (bool, error)
}

// ExecuteReader executes cmd lazily and returns a sequence of selector
// results, one per row.
//
// Nothing is opened until iteration starts. Rows are read one at a time;
// the underlying connection stays open while the caller iterates and is
// closed when the rows run out, when the loop breaks early, or when an
// error is yielded. A selector error is yielded once and ends the
// sequence. The sequence can only be ranged over once; a second range
// yields ErrSequenceConsumed.
//
// Returns ErrInvalidArgument immediately for a nil Connection, command or
// selector.
//
//	seq, err := sqlcmd.ExecuteReader(ctx, conn, cmd, func(r sqlcmd.Record) (User, error) {
//	    var u User
//	    return u, r.Scan(&u.ID, &u.Name)
//	})
//	if err != nil {
//	    return err
//	}
//	for u, err := range seq {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(u.Name)
//	}
func ExecuteReader[T any](ctx context.Context, c *Connection, cmd *Command, selector func(Record) (T, error)) (iter.Seq2[T, error], error) {
	if c == nil {
		return nil, fmt.Errorf("%w: connection can't be nil", ErrInvalidArgument)
	}
	if cmd == nil {
		return nil, fmt.Errorf("%w: command can't be nil", ErrInvalidArgument)
	}
	if selector == nil {
		return nil, fmt.Errorf("%w: selector can't be nil", ErrInvalidArgument)
	}

	var consumed atomic.Bool
	return func(yield func(T, error) bool) {
		var zero T
		if consumed.Swap(true) {
			yield(zero, ErrSequenceConsumed)
			return
		}

		stopped := false
		err := c.run(ctx, "reader", cmd, func(conn *sql.Conn, stmt Statement) error {
			rows, err := conn.QueryContext(ctx, stmt.Query, stmt.Args...)
			if err != nil {
				return err
			}
			defer func() { _ = rows.Close() }()

			rec, err := newRecord(rows)
			if err != nil {
				return err
			}

			for rows.Next() {
				v, err := selector(rec)
				if err != nil {
					return err
				}
				if !yield(v, nil) {
					stopped = true
					return errStopped
				}
			}
			return rows.Err()
		})
		if err != nil && !stopped {
			yield(zero, err)
		}
	}, nil
}

// errStopped unwinds run when the consumer breaks out of the loop.
var errStopped = errors.New("sqlcmd: iteration stopped")

// record implements Record over *sql.Rows.
type record struct {
	rows  *sql.Rows
	cols  []string
	index map[string]int
}

func newRecord(rows *sql.Rows) (*record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(cols))
	for i, name := range cols {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	return &record{rows: rows, cols: cols, index: index}, nil
}

func (r *record) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

func (r *record) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *record) Values() ([]any, error) {
	row, err := scanRow(r.rows, len(r.cols))
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *record) Value(name string) (any, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	values, err := r.Values()
	if err != nil {
		return nil, err
	}
	return values[i], nil
}

func (r *record) IsNull(name string) (bool, error) {
	v, err := r.Value(name)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}
