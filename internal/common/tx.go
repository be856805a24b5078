package common

import (
	"context"
	"database/sql"
	"fmt"
)

// Serializable is the isolation level used by multi-row mutations that must observe a stable set of rows.
var Serializable = &sql.TxOptions{Isolation: sql.LevelSerializable}

// WithTx runs fn inside a transaction. The transaction is committed when fn returns nil and rolled back otherwise,
// including when fn panics.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}

		_ = tx.Rollback()
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	committed = true

	return nil
}

// WithRetryTx behaves like WithTx but starts over when the server aborts the transaction with a serialization
// failure or deadlock.
func WithRetryTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, attempts int, fn func(tx *sql.Tx) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = WithTx(ctx, db, opts, fn)
		if err == nil || !RetryableTxError(err) {
			return err
		}
	}

	return err
}
