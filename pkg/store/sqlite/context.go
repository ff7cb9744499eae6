package sqlite

import (
	"context"
	"database/sql"
)

type txKey struct{}

// WithTransaction makes stores called with ctx join tx instead of opening
// their own.
func WithTransaction(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func GetTransaction(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}
