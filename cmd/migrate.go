package cmd

import (
	"fmt"
	"log/slog"

	"github.com/jasma-ai/recall/db"
	"github.com/jasma-ai/recall/internal/config"
)

// runMigrate applies pending database migrations and exits. It skips
// the full application setup: no embedder, no connection pool.
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL(), slog.Default()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("migrations applied")
	return nil
}
