package runtime

import "context"

// Row is one result row keyed by column name.
type Row map[string]any

// RunResult reports the outcome of a write statement.
type RunResult struct {
	RowsAffected int64
	LastInsertID int64
}

// Store is the handle the query engine executes against: prepared,
// positionally bound statements plus raw script execution for DDL. Both DB
// and Tx implement it, so any engine operation can run inside a
// caller-controlled transaction.
type Store interface {
	// Prepare wraps a SQL string for binding and execution. Preparation is
	// lazy; errors surface when the statement runs.
	Prepare(sql string) Statement

	// Exec runs one or more semicolon-separated statements without bound
	// parameters. Intended for DDL scripts.
	Exec(ctx context.Context, sql string) error
}

// Statement is a bindable, executable statement. Bind sets the full
// positional parameter list in placeholder order and returns a derived
// statement; the receiver is never modified.
type Statement interface {
	Bind(args ...any) Statement

	// Run executes a write and reports affected rows and the last insert id.
	Run(ctx context.Context) (RunResult, error)

	// First executes a read and returns the first row, or nil when nothing
	// matches.
	First(ctx context.Context) (Row, error)

	// All executes a read and returns every matching row.
	All(ctx context.Context) ([]Row, error)
}
