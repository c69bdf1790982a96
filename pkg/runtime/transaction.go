package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Tx wraps a transaction and implements Store, so engine operations can run
// inside it. The ORM never begins a transaction on its own; lifecycle is
// entirely the caller's.
type Tx struct {
	tx   *sql.Tx
	log  *slog.Logger
	done bool
}

// Begin starts a new transaction.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx, log: d.log}, nil
}

// Prepare wraps a SQL string for binding and execution inside the transaction.
func (t *Tx) Prepare(sqlText string) Statement {
	return stmt{runner: t.tx, log: t.log, sql: sqlText}
}

// Exec runs a statement script inside the transaction.
func (t *Tx) Exec(ctx context.Context, sqlText string) error {
	if t.done {
		return ErrTransactionClosed
	}
	t.log.Debug("exec script", "sql", sqlText)
	if _, err := t.tx.ExecContext(ctx, sqlText); err != nil {
		return &QueryError{Query: sqlText, Err: err}
	}
	return nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if t.done {
		return ErrTransactionClosed
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback() error {
	if t.done {
		return ErrTransactionClosed
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Savepoint creates a savepoint within the transaction.
func (t *Tx) Savepoint(name string) error {
	if err := validateSavepointName(name); err != nil {
		return err
	}
	if _, err := t.tx.Exec(fmt.Sprintf("SAVEPOINT %s", name)); err != nil {
		return fmt.Errorf("failed to create savepoint %s: %w", name, err)
	}
	return nil
}

// RollbackToSavepoint rolls back to a savepoint.
func (t *Tx) RollbackToSavepoint(name string) error {
	if err := validateSavepointName(name); err != nil {
		return err
	}
	if _, err := t.tx.Exec(fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", name)); err != nil {
		return fmt.Errorf("failed to rollback to savepoint %s: %w", name, err)
	}
	return nil
}

// ReleaseSavepoint releases a savepoint.
func (t *Tx) ReleaseSavepoint(name string) error {
	if err := validateSavepointName(name); err != nil {
		return err
	}
	if _, err := t.tx.Exec(fmt.Sprintf("RELEASE SAVEPOINT %s", name)); err != nil {
		return fmt.Errorf("failed to release savepoint %s: %w", name, err)
	}
	return nil
}

// validateSavepointName keeps savepoint names to word characters, since the
// name is interpolated into SQL text.
func validateSavepointName(name string) error {
	if name == "" {
		return fmt.Errorf("savepoint name is empty")
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return fmt.Errorf("savepoint name %q cannot start with a digit", name)
			}
		default:
			return fmt.Errorf("savepoint name %q contains invalid character %q", name, r)
		}
	}
	return nil
}
