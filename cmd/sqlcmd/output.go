package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"sigs.k8s.io/yaml"

	"github.com/pthm/sqlcmd"
	"github.com/pthm/sqlcmd/internal/cli"
)

const nullText = "NULL"

// resultRow is one streamed row with its column names.
type resultRow struct {
	columns []string
	values  []any
}

func (r resultRow) asMap() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, name := range r.columns {
		m[name] = normalize(r.values[i])
	}
	return m
}

// rowPrinter writes streamed rows without buffering the result.
type rowPrinter struct {
	w      io.Writer
	format string
	count  int
	enc    *json.Encoder
}

func newRowPrinter(w io.Writer, format string) *rowPrinter {
	return &rowPrinter{w: w, format: format, enc: json.NewEncoder(w)}
}

func (p *rowPrinter) print(row resultRow) error {
	defer func() { p.count++ }()

	switch p.format {
	case cli.FormatJSON:
		return p.enc.Encode(row.asMap())
	case cli.FormatYAML:
		out, err := yaml.Marshal(row.asMap())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "---\n%s", out)
		return err
	default:
		if p.count == 0 {
			if _, err := fmt.Fprintln(p.w, strings.Join(row.columns, "\t")); err != nil {
				return err
			}
		}
		cells := make([]string, len(row.values))
		for i, v := range row.values {
			cells[i] = formatCell(v)
		}
		_, err := fmt.Fprintln(p.w, strings.Join(cells, "\t"))
		return err
	}
}

func (p *rowPrinter) flush() error {
	if p.format == cli.FormatTable && !quiet {
		_, err := fmt.Fprintf(p.w, "(%d rows)\n", p.count)
		return err
	}
	return nil
}

func printAffected(w io.Writer, n int64, format string) error {
	if format == cli.FormatTable {
		if quiet {
			return nil
		}
		_, err := fmt.Fprintf(w, "%d rows affected\n", n)
		return err
	}
	return encode(w, map[string]any{"rows_affected": n}, format)
}

func printScalar(w io.Writer, v any, format string) error {
	if format == cli.FormatTable {
		_, err := fmt.Fprintln(w, formatCell(v))
		return err
	}
	return encode(w, map[string]any{"value": normalize(v)}, format)
}

func printTable(w io.Writer, t *sqlcmd.Table, format string) error {
	if format != cli.FormatTable {
		return encode(w, tableDoc(t), format)
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.ColumnNames()...)
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		tbl.Row(cells...)
	}
	if _, err := fmt.Fprintln(w, tbl.Render()); err != nil {
		return err
	}
	if !quiet {
		_, err := fmt.Fprintf(w, "(%d rows)\n", t.Len())
		return err
	}
	return nil
}

func printDataSet(w io.Writer, ds *sqlcmd.DataSet, format string) error {
	if format != cli.FormatTable {
		docs := make([]map[string]any, ds.Len())
		for i, t := range ds.Tables {
			docs[i] = tableDoc(t)
		}
		return encode(w, map[string]any{"tables": docs}, format)
	}

	for i, t := range ds.Tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(t.Name))
		if err := printTable(w, t, format); err != nil {
			return err
		}
	}
	return nil
}

func tableDoc(t *sqlcmd.Table) map[string]any {
	rows := t.Maps()
	for _, row := range rows {
		for k, v := range row {
			row[k] = normalize(v)
		}
	}
	return map[string]any{
		"name":    t.Name,
		"columns": t.ColumnNames(),
		"rows":    rows,
	}
}

func encode(w io.Writer, v any, format string) error {
	switch format {
	case cli.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case cli.FormatYAML:
		out, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// normalize makes driver values encodable: text arrives as []byte from
// some drivers and would otherwise be base64 encoded.
func normalize(v any) any {
	if b, ok := v.([]byte); ok && utf8.Valid(b) {
		return string(b)
	}
	return v
}

func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return nullText
	case []byte:
		if utf8.Valid(v) {
			return string(v)
		}
		return fmt.Sprintf("\\x%x", v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// redactDSN masks the password of a URL or key=value connection string.
func redactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Redacted()
	}
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=xxxxx"
		}
	}
	return strings.Join(fields, " ")
}
