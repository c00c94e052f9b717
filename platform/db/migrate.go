package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"

	"procurement_backend/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies pending goose migrations. MIGRATIONS_DIR overrides
// the migrations embedded in the binary.
func RunMigrations(ctx context.Context, cfg config.DatabaseConfig, embedded fs.FS) error {
	fsys := embedded
	if dir := cfg.GetMigrationsDir(); dir != "" {
		fsys = os.DirFS(dir)
	}

	sqlDB, err := sql.Open("pgx", cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		if res.Error != nil {
			return fmt.Errorf("migration %s: %w", res.Source.Path, res.Error)
		}
	}
	return nil
}
