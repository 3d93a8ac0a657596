// Package main provides a CLI for running SQL commands against a database
// through the sqlcmd library.
//
// The CLI supports:
//   - exec: run a statement and report rows affected
//   - scalar: print the first column of the first row
//   - query: stream rows as they are read
//   - table: print the first result set
//   - dataset: print every result set
//   - ping: check that the target is reachable
//
// Usage:
//
//	sqlcmd [flags] <command> [query]
//
// Parameters are written as @name in the query and supplied with -p name=value.
package main

func main() {
	Execute()
}
