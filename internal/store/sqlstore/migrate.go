package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

func (d Dialect) gooseDialect() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "postgres"
}

func (d Dialect) migrationsDir() string {
	if d == SQLite {
		return "migrations/sqlite"
	}
	return "migrations/postgres"
}

// Migrate applies every pending migration.
func (s *Store) Migrate(ctx context.Context) error {
	return s.RunMigrations(ctx, "up")
}

// RunMigrations executes a goose command (up, down, status, version, ...)
// against the embedded migrations for the store's dialect.
func (s *Store) RunMigrations(ctx context.Context, command string, args ...string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(s.dialect.gooseDialect()); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, s.db.DB, s.dialect.migrationsDir(), args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
