package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/hongminglow/story-be/internal/storage/postgres/migrations"
)

// Migrator applies the embedded schema migrations with goose.
type Migrator struct {
	provider *goose.Provider
}

// NewMigrator builds a migrator over an open database handle.
func NewMigrator(db *sql.DB) (*Migrator, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("configure goose: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	if _, err := m.provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Status reports applied and pending migrations.
func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	status, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	return status, nil
}

// Down rolls back to targetVersion, or only the latest migration when targetVersion is zero.
func (m *Migrator) Down(ctx context.Context, targetVersion int64) error {
	if targetVersion > 0 {
		if _, err := m.provider.DownTo(ctx, targetVersion); err != nil {
			return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
		}
		return nil
	}
	if _, err := m.provider.Down(ctx); err != nil {
		return fmt.Errorf("rollback latest migration: %w", err)
	}
	return nil
}
