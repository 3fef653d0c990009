// Package app provides application initialization and dependency
// wiring. Setup builds the full component graph: configuration,
// logging, tracing, the database pool (with migrations), the genkit
// embedder, and the knowledge pipeline and search engine on top.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jasma-ai/recall/internal/config"
	"github.com/jasma-ai/recall/internal/knowledge"
	"github.com/jasma-ai/recall/internal/postgres"
	"github.com/jasma-ai/recall/internal/scrape"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit *genkit.Genkit
	Pool   *pgxpool.Pool

	Store    *postgres.Store
	Pipeline *knowledge.Pipeline
	Engine   *knowledge.Engine
	Scraper  *scrape.Scraper

	// tracingShutdown flushes pending spans; nil when tracing is off.
	tracingShutdown func(context.Context) error

	cancel context.CancelFunc
}

// Close releases all resources in reverse setup order.
func (a *App) Close() error {
	a.Logger.Info("shutting down")

	if a.cancel != nil {
		a.cancel()
	}
	if a.tracingShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.tracingShutdown(shutdownCtx); err != nil {
			a.Logger.Warn("flushing traces", "error", err)
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Debug("database pool closed")
	}
	return nil
}
