package state

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

func configureGoose() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

// Migrate runs all pending migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	return MigrateWithDB(ctx, s.db)
}

// MigrateWithDB runs all pending migrations on a raw connection.
func MigrateWithDB(ctx context.Context, db *sql.DB) error {
	if err := configureGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the applied migration version.
func (s *SQLiteStore) MigrationVersion(ctx context.Context) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if err := configureGoose(); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, s.db)
}

// MigrateDownTo rolls migrations back to version.
func (s *SQLiteStore) MigrateDownTo(ctx context.Context, version int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := configureGoose(); err != nil {
		return err
	}
	if err := goose.DownToContext(ctx, s.db, "migrations", version); err != nil {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return nil
}
