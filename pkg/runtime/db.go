package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const busyTimeoutMs = 5000

// DB wraps a SQLite database and implements Store.
type DB struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger attaches a logger. Statement SQL is logged at debug level;
// bound values are never logged.
func WithLogger(l *slog.Logger) Option {
	return func(d *DB) { d.log = l }
}

// Open opens a SQLite database file, creating it if needed, with the busy
// timeout and foreign key enforcement the engine expects. File-backed
// databases use WAL journaling. A single connection is used; SQLite
// serializes writers anyway and one connection keeps in-memory databases
// from silently splitting into separate stores.
func Open(path string, opts ...Option) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", path, busyTimeoutMs)
	if !isMemoryPath(path) {
		connStr += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}

	d := &DB{db: db, path: path}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d, nil
}

// OpenMemory opens a fresh in-memory database.
func OpenMemory(opts ...Option) (*DB, error) {
	return Open(":memory:", opts...)
}

func isMemoryPath(path string) bool {
	return strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory")
}

// Path returns the database path the DB was opened with.
func (d *DB) Path() string { return d.path }

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping verifies the database connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Prepare wraps a SQL string for binding and execution.
func (d *DB) Prepare(sqlText string) Statement {
	return stmt{runner: d.db, log: d.log, sql: sqlText}
}

// Exec runs a statement script without bound parameters.
func (d *DB) Exec(ctx context.Context, sqlText string) error {
	d.log.Debug("exec script", "sql", sqlText)
	if _, err := d.db.ExecContext(ctx, sqlText); err != nil {
		return &QueryError{Query: sqlText, Err: err}
	}
	return nil
}

// runner is the subset of database/sql shared by *sql.DB and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// stmt implements Statement over database/sql. It is a value type so Bind
// derives a new statement instead of mutating the receiver.
type stmt struct {
	runner runner
	log    *slog.Logger
	sql    string
	args   []any
}

func (s stmt) Bind(args ...any) Statement {
	s.args = args
	return s
}

func (s stmt) Run(ctx context.Context) (RunResult, error) {
	s.log.Debug("run", "sql", s.sql)
	res, err := s.runner.ExecContext(ctx, s.sql, s.args...)
	if err != nil {
		return RunResult{}, &QueryError{Query: s.sql, Err: err}
	}

	var out RunResult
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

func (s stmt) First(ctx context.Context) (Row, error) {
	s.log.Debug("first", "sql", s.sql)
	rows, err := s.runner.QueryContext(ctx, s.sql, s.args...)
	if err != nil {
		return nil, &QueryError{Query: s.sql, Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &QueryError{Query: s.sql, Err: err}
		}
		return nil, nil
	}
	row, err := scanRow(rows)
	if err != nil {
		return nil, &QueryError{Query: s.sql, Err: err}
	}
	return row, nil
}

func (s stmt) All(ctx context.Context) ([]Row, error) {
	s.log.Debug("all", "sql", s.sql)
	rows, err := s.runner.QueryContext(ctx, s.sql, s.args...)
	if err != nil {
		return nil, &QueryError{Query: s.sql, Err: err}
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, &QueryError{Query: s.sql, Err: err}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: s.sql, Err: err}
	}
	return out, nil
}

// scanRow reads the current row into a Row. TEXT columns come back from the
// driver as []byte; they are converted to string so rows look the same as
// they would coming off a JSON wire.
func scanRow(rows *sql.Rows) (Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make(Row, len(cols))
	for i, col := range cols {
		v := values[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row[col] = v
	}
	return row, nil
}
