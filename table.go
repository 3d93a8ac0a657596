package sqlcmd

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
)

// Column describes one column of a materialized result.
type Column struct {
	Name string

	// DatabaseType is the driver's type name, e.g. "INT4" or "TEXT".
	// Empty when the driver doesn't report it.
	DatabaseType string

	// Nullable is only meaningful when NullableKnown is true.
	Nullable      bool
	NullableKnown bool

	// ScanType is the Go type the driver scans this column into.
	ScanType reflect.Type
}

// Row holds one value per column. SQL NULL is nil.
type Row []any

// Table is a result set materialized in memory.
type Table struct {
	Name    string
	Columns []Column
	Rows    []Row
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnNames returns the column names in result order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row for the named column.
func (t *Table) Value(row int, column string) (any, error) {
	if row < 0 || row >= len(t.Rows) {
		return nil, fmt.Errorf("sqlcmd: row %d out of range [0,%d)", row, len(t.Rows))
	}
	i := t.ColumnIndex(column)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	return t.Rows[row][i], nil
}

// Maps returns the rows keyed by column name, for encoding.
func (t *Table) Maps() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for r, row := range t.Rows {
		m := make(map[string]any, len(t.Columns))
		for i, col := range t.Columns {
			m[col.Name] = row[i]
		}
		out[r] = m
	}
	return out
}

// DataSet groups the tables produced by one command.
type DataSet struct {
	Tables []*Table
}

// Len returns the number of tables.
func (ds *DataSet) Len() int {
	return len(ds.Tables)
}

// Table returns the i-th table, or nil when out of range.
func (ds *DataSet) Table(i int) *Table {
	if i < 0 || i >= len(ds.Tables) {
		return nil
	}
	return ds.Tables[i]
}

// tableName names result sets Table, Table1, Table2, ...
func tableName(i int) string {
	if i == 0 {
		return "Table"
	}
	return "Table" + strconv.Itoa(i)
}

// fillTable drains the current result set of rows.
func fillTable(rows *sql.Rows, name string) (*Table, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	t := &Table{
		Name:    name,
		Columns: make([]Column, len(types)),
		Rows:    []Row{},
	}
	for i, ct := range types {
		nullable, known := ct.Nullable()
		t.Columns[i] = Column{
			Name:          ct.Name(),
			DatabaseType:  ct.DatabaseTypeName(),
			Nullable:      nullable,
			NullableKnown: known,
			ScanType:      ct.ScanType(),
		}
	}

	for rows.Next() {
		row, err := scanRow(rows, len(types))
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

// fillDataSet drains every result set of rows.
func fillDataSet(rows *sql.Rows) (*DataSet, error) {
	ds := &DataSet{}
	for {
		t, err := fillTable(rows, tableName(len(ds.Tables)))
		if err != nil {
			return nil, err
		}
		ds.Tables = append(ds.Tables, t)

		if !rows.NextResultSet() {
			break
		}
	}
	return ds, rows.Err()
}

// scanRow reads the current row. Scanning into *any gives owned copies of
// []byte values, so the row stays valid after the cursor moves.
func scanRow(rows *sql.Rows, n int) (Row, error) {
	row := make(Row, n)
	dest := make([]any, n)
	for i := range row {
		dest[i] = &row[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	return row, nil
}
