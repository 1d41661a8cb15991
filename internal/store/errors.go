package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
)

// rejectedSQLStateClasses are the Postgres error classes caused by the data itself:
// 22 data exception (e.g. NUL in text, bad jsonb escape) and 23 integrity constraint violation
var rejectedSQLStateClasses = map[string]struct{}{
	"22": {},
	"23": {},
}

// wrapError turns a persistence failure into a *domain.StoreError. Failures the database will
// repeat for the same record are marked rejected so callers stop retrying them.
func wrapError(op string, err error) error {
	if isRejected(err) {
		return domain.NewRejectedStoreError(op, err)
	}
	return domain.NewStoreError(op, err)
}

func isRejected(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || len(pgErr.Code) < 2 {
		return false
	}
	_, ok := rejectedSQLStateClasses[pgErr.Code[:2]]
	return ok
}
