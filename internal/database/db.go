package database

import (
	"context"
	"errors"

	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapPostgresError translates driver errors into model sentinels. Errors
// without a mapping are returned unchanged.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505", "40001", "55P03": // unique_violation, serialization_failure, lock_not_available
		return models.ErrConflict
	case "23514", "23502": // check_violation, not_null_violation
		return models.ErrBadRequest
	case "22P02": // malformed uuid
		return models.ErrNotFound
	}
	return err
}

// WithTransaction runs fn inside a read-committed transaction. fn's error
// rolls the transaction back; a nil return commits.
func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, db.Pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}
