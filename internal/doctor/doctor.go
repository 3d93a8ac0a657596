// Package doctor provides health checks for a sqlcmd database target.
//
// The doctor command verifies that a driver and connection string work
// end to end: the target is reachable, named parameters bind, SQL NULL
// round-trips, and the server answers basic queries.
//
// Example usage:
//
//	d := doctor.New(sqlcmd.Pgx(), dsn, logger)
//	report := d.Run(ctx)
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pthm/sqlcmd"
)

// slowConnect is the probe duration above which connectivity is flagged.
const slowConnect = time.Second

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical issue that will cause failures.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "Connection", "Parameters").
	Category string

	// Name is a short identifier for the check.
	Name string

	// Status is the check outcome.
	Status Status

	// Message is a human-readable description of the result.
	Message string

	// Details provides additional information for verbose output.
	Details string

	// FixHint suggests how to resolve issues.
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	// Summary counts.
	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Print writes the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Doctor performs health checks against one factory and connection string.
type Doctor struct {
	factory sqlcmd.Factory
	dsn     string
	logger  *zap.Logger

	// Populated by checkConnect
	conn *sqlcmd.Connection
}

// New creates a new Doctor instance.
func New(factory sqlcmd.Factory, dsn string, logger *zap.Logger) *Doctor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Doctor{
		factory: factory,
		dsn:     dsn,
		logger:  logger,
	}
}

// Run executes all health checks and returns a report. Checks that need a
// connection are skipped when the target is unreachable.
func (d *Doctor) Run(ctx context.Context) *Report {
	report := &Report{}

	d.checkConnect(ctx, report)
	if d.conn == nil {
		return report
	}
	d.checkRoundTrip(ctx, report)
	d.checkNullBinding(ctx, report)
	d.checkServerVersion(ctx, report)

	return report
}

func (d *Doctor) checkConnect(ctx context.Context, report *Report) {
	start := time.Now()
	conn, err := sqlcmd.Open(ctx, d.factory, d.dsn, sqlcmd.WithLogger(d.logger))
	elapsed := time.Since(start)

	if err != nil {
		report.AddCheck(CheckResult{
			Category: "Connection",
			Name:     "reachable",
			Status:   StatusFail,
			Message:  "Cannot connect to database",
			Details:  err.Error(),
			FixHint:  connectHint(err),
		})
		return
	}
	d.conn = conn

	report.AddCheck(CheckResult{
		Category: "Connection",
		Name:     "reachable",
		Status:   StatusPass,
		Message:  "Database is reachable",
	})

	check := CheckResult{
		Category: "Connection",
		Name:     "latency",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Connected in %s", elapsed.Round(time.Millisecond)),
	}
	if elapsed > slowConnect {
		check.Status = StatusWarn
		check.FixHint = "Every command opens a new connection; consider a closer server or a connection proxy"
	}
	report.AddCheck(check)
}

func connectHint(err error) string {
	switch sqlcmd.SQLState(err) {
	case sqlcmd.PgInvalidPassword:
		return "Check database.user and database.password"
	case sqlcmd.PgInvalidCatalogName:
		return "Create the database or fix database.name"
	}
	if sqlcmd.IsInvalidArgumentErr(err) {
		return "Set database.url or pass --db"
	}
	return "Check host, port and sslmode, and that the server accepts connections"
}

func (d *Doctor) checkRoundTrip(ctx context.Context, report *Report) {
	const probe = "sqlcmd"

	cmd, err := sqlcmd.NewCommand("SELECT CAST(@probe AS VARCHAR(32))", sqlcmd.WithParameter("probe", probe))
	if err != nil {
		report.AddCheck(CheckResult{Category: "Parameters", Name: "named", Status: StatusFail, Message: "Cannot build probe command", Details: err.Error()})
		return
	}

	v, err := d.conn.ExecuteScalar(ctx, cmd)
	switch {
	case err != nil:
		report.AddCheck(CheckResult{
			Category: "Parameters",
			Name:     "named",
			Status:   StatusFail,
			Message:  "Named parameters do not bind",
			Details:  err.Error(),
			FixHint:  "Use --driver pgx or pq, or configure a positional placeholder for this driver",
		})
	case text(v) != probe:
		report.AddCheck(CheckResult{
			Category: "Parameters",
			Name:     "named",
			Status:   StatusFail,
			Message:  "Named parameter returned the wrong value",
			Details:  fmt.Sprintf("sent %q, got %v", probe, v),
		})
	default:
		report.AddCheck(CheckResult{
			Category: "Parameters",
			Name:     "named",
			Status:   StatusPass,
			Message:  "Named parameters bind",
		})
	}
}

func (d *Doctor) checkNullBinding(ctx context.Context, report *Report) {
	cmd, err := sqlcmd.NewCommand("SELECT CAST(@missing AS VARCHAR(32))", sqlcmd.WithParameter("missing", sqlcmd.Null))
	if err != nil {
		report.AddCheck(CheckResult{Category: "Parameters", Name: "null", Status: StatusFail, Message: "Cannot build probe command", Details: err.Error()})
		return
	}

	v, err := d.conn.ExecuteScalar(ctx, cmd)
	switch {
	case err != nil:
		report.AddCheck(CheckResult{
			Category: "Parameters",
			Name:     "null",
			Status:   StatusFail,
			Message:  "NULL parameters are rejected",
			Details:  err.Error(),
		})
	case v != nil:
		report.AddCheck(CheckResult{
			Category: "Parameters",
			Name:     "null",
			Status:   StatusFail,
			Message:  "NULL parameter came back as a value",
			Details:  fmt.Sprintf("got %v", v),
		})
	default:
		report.AddCheck(CheckResult{
			Category: "Parameters",
			Name:     "null",
			Status:   StatusPass,
			Message:  "NULL parameters round-trip",
		})
	}
}

// checkServerVersion asks a PostgreSQL server for its version. Other
// servers reject SHOW, which is reported as a warning.
func (d *Doctor) checkServerVersion(ctx context.Context, report *Report) {
	cmd, err := sqlcmd.NewCommand("SHOW server_version")
	if err != nil {
		return
	}

	v, err := d.conn.ExecuteScalar(ctx, cmd)
	if err != nil {
		report.AddCheck(CheckResult{
			Category: "Server",
			Name:     "version",
			Status:   StatusWarn,
			Message:  "Server version unavailable",
			Details:  err.Error(),
		})
		return
	}

	report.AddCheck(CheckResult{
		Category: "Server",
		Name:     "version",
		Status:   StatusPass,
		Message:  "Server version " + text(v),
	})
}

func text(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
