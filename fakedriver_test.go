package sqlcmd_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeDriverName is registered with database/sql so the generic Driver
// factory can be exercised end to end without a server.
const fakeDriverName = "sqlcmd-fake"

func init() {
	sql.Register(fakeDriverName, fakeDriver{})
}

var (
	fakeMu  sync.Mutex
	fakeDBs = map[string]*fakeDB{}
)

// fakeSet is one result set.
type fakeSet struct {
	cols  []string
	types []string
	rows  [][]driver.Value
}

// fakeHandler scripts the response to one statement text.
type fakeHandler struct {
	exec  func(args []driver.NamedValue) (int64, error)
	query func(args []driver.NamedValue) ([]fakeSet, error)
}

// call records a statement the driver received.
type call struct {
	query string
	args  []driver.NamedValue
}

// fakeDB is the backing store for one DSN.
type fakeDB struct {
	mu       sync.Mutex
	handlers map[string]fakeHandler
	calls    []call
	connErr  error

	opened     atomic.Int64 // connections ever opened
	open       atomic.Int64 // connections currently open
	openCursor atomic.Int64 // result cursors currently open
}

// newFakeDB registers a fresh store under a DSN unique to the test.
func newFakeDB(t *testing.T) (*fakeDB, string) {
	t.Helper()
	dsn := "fake://" + t.Name()
	db := &fakeDB{handlers: map[string]fakeHandler{}}

	fakeMu.Lock()
	fakeDBs[dsn] = db
	fakeMu.Unlock()
	t.Cleanup(func() {
		fakeMu.Lock()
		delete(fakeDBs, dsn)
		fakeMu.Unlock()
	})
	return db, dsn
}

func (db *fakeDB) handle(query string, h fakeHandler) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.handlers[query] = h
}

// rows scripts a single result set for query.
func (db *fakeDB) rows(query string, cols []string, rows ...[]driver.Value) {
	db.handle(query, fakeHandler{
		query: func([]driver.NamedValue) ([]fakeSet, error) {
			return []fakeSet{{cols: cols, rows: rows}}, nil
		},
	})
}

func (db *fakeDB) lastCall() call {
	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.calls) == 0 {
		return call{}
	}
	return db.calls[len(db.calls)-1]
}

func (db *fakeDB) lookup(query string, args []driver.NamedValue) (fakeHandler, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.calls = append(db.calls, call{query: query, args: args})
	h, ok := db.handlers[query]
	if !ok {
		return fakeHandler{}, fmt.Errorf("fake: syntax error at or near %q", query)
	}
	return h, nil
}

type fakeDriver struct{}

func (fakeDriver) Open(dsn string) (driver.Conn, error) {
	fakeMu.Lock()
	db, ok := fakeDBs[dsn]
	fakeMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("fake: could not connect to %q", dsn)
	}
	if db.connErr != nil {
		return nil, db.connErr
	}
	db.opened.Add(1)
	db.open.Add(1)
	return &fakeConn{db: db}, nil
}

type fakeConn struct {
	db     *fakeDB
	closed bool
}

var (
	_ driver.ExecerContext  = (*fakeConn)(nil)
	_ driver.QueryerContext = (*fakeConn)(nil)
	_ driver.Pinger         = (*fakeConn)(nil)
)

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("fake: prepare not supported")
}

func (c *fakeConn) Close() error {
	if !c.closed {
		c.closed = true
		c.db.open.Add(-1)
	}
	return nil
}

func (c *fakeConn) Begin() (driver.Tx, error) {
	return nil, errors.New("fake: transactions not supported")
}

func (c *fakeConn) Ping(context.Context) error {
	return nil
}

func (c *fakeConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	h, err := c.db.lookup(query, args)
	if err != nil {
		return nil, err
	}
	if h.exec == nil {
		return driver.RowsAffected(0), nil
	}
	n, err := h.exec(args)
	if err != nil {
		return nil, err
	}
	return driver.RowsAffected(n), nil
}

func (c *fakeConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	h, err := c.db.lookup(query, args)
	if err != nil {
		return nil, err
	}
	var sets []fakeSet
	if h.query != nil {
		if sets, err = h.query(args); err != nil {
			return nil, err
		}
	}
	if len(sets) == 0 {
		sets = []fakeSet{{}}
	}
	c.db.openCursor.Add(1)
	return &fakeRows{db: c.db, sets: sets}, nil
}

type fakeRows struct {
	db     *fakeDB
	sets   []fakeSet
	set    int
	pos    int
	closed bool
}

var (
	_ driver.RowsNextResultSet              = (*fakeRows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*fakeRows)(nil)
)

func (r *fakeRows) Columns() []string {
	return r.sets[r.set].cols
}

func (r *fakeRows) Close() error {
	if !r.closed {
		r.closed = true
		r.db.openCursor.Add(-1)
	}
	return nil
}

func (r *fakeRows) Next(dest []driver.Value) error {
	s := r.sets[r.set]
	if r.pos >= len(s.rows) {
		return io.EOF
	}
	copy(dest, s.rows[r.pos])
	r.pos++
	return nil
}

func (r *fakeRows) HasNextResultSet() bool {
	return r.set+1 < len(r.sets)
}

func (r *fakeRows) NextResultSet() error {
	if !r.HasNextResultSet() {
		return io.EOF
	}
	r.set++
	r.pos = 0
	return nil
}

func (r *fakeRows) ColumnTypeDatabaseTypeName(i int) string {
	s := r.sets[r.set]
	if i < len(s.types) {
		return s.types[i]
	}
	return ""
}

// namedArg returns the value of the named argument, or false.
func namedArg(args []driver.NamedValue, name string) (driver.Value, bool) {
	for _, a := range args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}
