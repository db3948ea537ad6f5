package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"

	"github.com/compozy/docrag/engine/infra/migration"
	"github.com/compozy/docrag/pkg/logger"

	// pgx as a database/sql driver for goose
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// docragLockID keys the session advisory lock held while migrating so replicas
// starting together apply the schema once.
const docragLockID int64 = 0x646f6372_6167

// ApplyMigrations brings the documents schema up to date.
func ApplyMigrations(ctx context.Context, dsn string) error {
	_, err := Migrate(ctx, dsn, migration.Up)
	return err
}

// Migrate opens a dedicated database/sql pool for dsn and runs command under
// the advisory lock.
func Migrate(ctx context.Context, dsn string, command string) (*migration.Report, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open db for migrations: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.FromContext(ctx).Warn("Failed to close migration connection", "error", err)
		}
	}()
	locker, err := lock.NewPostgresSessionLocker(
		lock.WithLockID(docragLockID),
		lock.WithLockTimeout(5, 9),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: migration lock: %w", err)
	}
	src, err := migration.Source(migrationsFS)
	if err != nil {
		return nil, err
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, src, goose.WithSessionLocker(locker))
	if err != nil {
		return nil, fmt.Errorf("postgres: migration provider: %w", err)
	}
	report, err := migration.Run(ctx, p, command)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return report, nil
}
