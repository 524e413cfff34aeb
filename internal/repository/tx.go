package repository

import (
	"context"
	"database/sql"
)

// TxRunner executes a function inside a database transaction.  The
// transaction is rolled back when fn returns an error and committed
// otherwise.  Multi-repository operations such as event deletion
// use it so the whole unit applies or none of it does.
type TxRunner struct{ DB *sql.DB }

// NewTxRunner returns a TxRunner bound to the given database.
func NewTxRunner(db *sql.DB) *TxRunner { return &TxRunner{DB: db} }

// InTx begins a transaction, runs fn with it and commits on
// success.  Rollback errors after a failed fn are ignored; the
// original error wins.
func (r *TxRunner) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
