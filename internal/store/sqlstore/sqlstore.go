// Package sqlstore implements store.Repository on a SQL database, either
// Postgres through pgx or SQLite through modernc.org/sqlite.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"storefront/backend/internal/store"
)

var _ store.Repository = (*Store)(nil)

type Dialect string

const (
	Postgres Dialect = "pgx"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case Postgres, "postgres":
		return Postgres, nil
	case SQLite, "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sqlx.Open(string(dialect), dsn)
	if err != nil {
		return nil, err
	}

	switch dialect {
	case SQLite:
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxIdleConns(8)
		db.SetMaxOpenConns(30)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if dialect == SQLite {
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind turns ? placeholders into the driver's bindvars.
func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
