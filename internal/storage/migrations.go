package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// runMigrations applies all pending schema migrations to dsn (a database
// DSN that already includes the target database name). goose operates
// over database/sql, so this opens its own connection via pgx's stdlib
// driver rather than the pgxpool used by the hot path.
func runMigrations(ctx context.Context, dsn string, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("storage: creating migration sub-filesystem: %w", err)
	}

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("storage: opening migration connection: %w", err)
	}
	defer conn.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, conn, subFS)
	if err != nil {
		return fmt.Errorf("storage: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("storage: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// dropMigrations rolls every migration back, used by teardown_database
// before the database itself is dropped.
func dropMigrations(ctx context.Context, dsn string, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("storage: creating migration sub-filesystem: %w", err)
	}

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("storage: opening migration connection: %w", err)
	}
	defer conn.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, conn, subFS)
	if err != nil {
		return fmt.Errorf("storage: creating migration provider: %w", err)
	}

	results, err := provider.DownTo(ctx, 0)
	if err != nil {
		return fmt.Errorf("storage: rolling back migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("rolled back migration", slog.String("source", r.Source.Path))
	}

	return nil
}
