// Package tx propagates an open SQL transaction through context so that
// store methods called inside a transaction boundary join it instead of
// issuing standalone statements.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

// WithTx returns a context carrying the transaction. A nil transaction
// leaves the context untouched.
func WithTx(ctx context.Context, dbTx *sql.Tx) context.Context {
	if dbTx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, dbTx)
}

// From returns the transaction carried by the context, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	dbTx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return dbTx, ok
}

// Has reports whether the context already carries a transaction.
func Has(ctx context.Context) bool {
	_, ok := From(ctx)
	return ok
}
