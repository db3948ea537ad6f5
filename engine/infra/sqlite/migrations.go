package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/compozy/docrag/engine/infra/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ApplyMigrations brings the documents schema up to date.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	_, err := Migrate(ctx, db, migration.Up)
	return err
}

// Migrate runs a migration command against db. The caller keeps ownership of db.
func Migrate(ctx context.Context, db *sql.DB, command string) (*migration.Report, error) {
	src, err := migration.Source(migrationsFS)
	if err != nil {
		return nil, err
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db, src)
	if err != nil {
		return nil, fmt.Errorf("sqlite: migration provider: %w", err)
	}
	report, err := migration.Run(ctx, p, command)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return report, nil
}
