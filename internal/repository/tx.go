package repository

import (
    "context"
    "database/sql"
)

type txKey struct{}

// withTx runs fn inside a transaction carried through the context.
// Nested calls reuse the outer transaction, so a service can compose
// repository calls without caring whether a transaction is already
// open. fn returning an error rolls everything back.
func withTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
    if txFromContext(ctx) != nil {
        return fn(ctx)
    }
    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
        _ = tx.Rollback()
        return err
    }
    return tx.Commit()
}

func txFromContext(ctx context.Context) *sql.Tx {
    tx, _ := ctx.Value(txKey{}).(*sql.Tx)
    return tx
}

// querier is the subset of database/sql shared by *sql.DB and
// *sql.Tx. Repository methods resolve it per call so the same method
// works inside and outside a transaction.
type querier interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func pick(ctx context.Context, db *sql.DB) querier {
    if tx := txFromContext(ctx); tx != nil {
        return tx
    }
    return db
}
