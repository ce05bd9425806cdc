package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"storefront/backend/internal/store"
)

const (
	pgUniqueViolation = "23505"
	pgGeneratedAlways = "428C9"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// uniqueOn reports whether err is a unique violation on the named column.
func uniqueOn(err error, column string) bool {
	if !isUniqueViolation(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.Contains(pgErr.ConstraintName, column)
	}
	return strings.Contains(err.Error(), column)
}

// lineInsertError marks rejected writes to generated columns with
// store.ErrGeneratedColumn so the caller can step down the column ladder.
func lineInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgGeneratedAlways {
		return fmt.Errorf("%w: %s", store.ErrGeneratedColumn, pgErr.Message)
	}
	if store.IsGeneratedColumnError(err) {
		return fmt.Errorf("%w: %v", store.ErrGeneratedColumn, err)
	}
	return err
}
