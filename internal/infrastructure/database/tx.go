package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of *sql.DB and *sql.Tx used by repositories, so the
// same query code runs inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxFunc is a unit of work executed inside WithTx.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// WithTx runs fn inside a single transaction.
//
// The transaction commits only if fn returns nil. Any error from fn, including
// a validation failure raised after rows were written, rolls the whole unit
// back, so callers never observe a partial write. A panic inside fn also
// rolls back before it propagates.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database handle to begin the transaction on
//   - fn: Work to perform; must use the supplied tx for every statement
//
// Returns:
//   - error: fn's error unchanged, or a wrapped begin/commit error
func WithTx(ctx context.Context, db *sql.DB, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback() //nolint:errcheck // Re-panicking below
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		tx.Rollback() //nolint:errcheck // fn's error is the one worth returning
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
