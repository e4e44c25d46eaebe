package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Querier is implemented by *sql.DB and *sql.Tx, so store functions can run
// either standalone or inside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when a ledger row changed since it was read.
	ErrVersionConflict = errors.New("ledger row was modified concurrently")

	// ErrInsufficientQuantity is returned when a debit would take a quantity below zero.
	ErrInsufficientQuantity = errors.New("insufficient quantity")

	// ErrItemExhausted is returned when a scarce item has no units left to hand out.
	ErrItemExhausted = errors.New("item amount limit reached")

	// ErrLimitBelowCirculation is returned when an amount limit would be lower
	// than the units already in circulation.
	ErrLimitBelowCirculation = errors.New("amount limit is below the amount in circulation")

	// ErrQuantityOverflow is returned when summed quantities do not fit an int.
	ErrQuantityOverflow = errors.New("quantity too large")
)

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// NewVersion returns a fresh opaque version token.
func NewVersion() string {
	return uuid.NewString()
}

// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// IsBusy reports whether err means the database was locked by another writer.
func IsBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_BUSY
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
