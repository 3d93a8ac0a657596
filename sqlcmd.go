// Package sqlcmd executes parameterized SQL commands through database/sql
// drivers with a small, explicit object model.
//
// # Core Concepts
//
// A Command is query text, an execution mode and named parameters:
//
//	cmd, _ := sqlcmd.NewCommand("UPDATE t SET x = @v WHERE id = @id")
//	_ = cmd.AddParameter("v", 5)
//	_ = cmd.AddParameter("id", 1)
//
// A Connection is a validated recipe for reaching a database. It holds a
// Factory and a connection string and no live resources:
//
//	conn, err := sqlcmd.Open(ctx, sqlcmd.Pgx(), "postgres://localhost/app")
//	if sqlcmd.IsInvalidConfigurationErr(err) {
//	    // bad connection string or server down
//	}
//
// # Execution Modes
//
// Every execution opens its own connection and closes it before returning:
//
//	n, err := conn.ExecuteNonQuery(ctx, cmd)      // rows affected
//	v, err := conn.ExecuteScalar(ctx, cmd)        // first cell, nil for NULL
//	t, err := conn.GetDataTable(ctx, cmd)         // first result set in memory
//	ds, err := conn.GetDataSet(ctx, cmd)          // every result set in memory
//
// ExecuteReader streams rows through a selector. Its connection lives as
// long as the caller keeps iterating and is released on exhaustion, break
// or error:
//
//	seq, err := sqlcmd.ExecuteReader(ctx, conn, cmd, func(r sqlcmd.Record) (string, error) {
//	    var name string
//	    return name, r.Scan(&name)
//	})
//
// # Factories
//
// Pgx and PQ target PostgreSQL through jackc/pgx and lib/pq. Driver adapts
// any other database/sql driver. Factories decide how named parameters and
// stored procedures are expressed for their driver.
//
// # Errors
//
// Contract violations return the sentinel errors in this package. Driver
// errors are returned exactly as the driver produced them; use SQLState to
// read PostgreSQL error codes.
package sqlcmd
