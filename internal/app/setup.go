package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jasma-ai/recall/db"
	"github.com/jasma-ai/recall/internal/config"
	"github.com/jasma-ai/recall/internal/knowledge"
	"github.com/jasma-ai/recall/internal/log"
	"github.com/jasma-ai/recall/internal/observability"
	"github.com/jasma-ai/recall/internal/postgres"
	"github.com/jasma-ai/recall/internal/scrape"
)

const shutdownTimeout = 5 * time.Second

// Setup loads configuration and builds the application container.
// Components come up in dependency order; any failure tears down what
// already started.
func Setup(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return SetupWithConfig(ctx, cfg)
}

// SetupWithConfig builds the container from an already-validated
// configuration.
func SetupWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})

	ctx, cancel := context.WithCancel(ctx)
	a := &App{Config: cfg, Logger: logger, cancel: cancel}

	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	if cfg.Tracing.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.Tracing.Endpoint,
			Environment: cfg.Tracing.Environment,
			ServiceName: cfg.Tracing.ServiceName,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.tracingShutdown = shutdown
	}

	pool, err := providePool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with gemini provider")
	}
	a.Genkit = g

	embedder, err := knowledge.NewEmbedder(
		googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel),
		knowledge.EmbedderConfig{
			Dimension:     cfg.VectorDimension,
			MaxInputLen:   cfg.MaxEmbedInput,
			RatePerSecond: float64(cfg.EmbedRate),
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	store, err := postgres.NewStore(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	a.Store = store

	chunker, err := knowledge.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	pipeline, err := knowledge.NewPipeline(store, embedder, chunker, logger)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}
	a.Pipeline = pipeline

	engine, err := knowledge.NewEngine(store, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("creating search engine: %w", err)
	}
	a.Engine = engine

	scraper, err := scrape.NewScraper(scrape.Config{
		Parallelism: cfg.Scraper.Parallelism,
		Delay:       time.Duration(cfg.Scraper.DelayMS) * time.Millisecond,
		Timeout:     time.Duration(cfg.Scraper.TimeoutMS) * time.Millisecond,
	}, pipeline, logger)
	if err != nil {
		return nil, fmt.Errorf("creating scraper: %w", err)
	}
	a.Scraper = scraper

	ok = true
	logger.Info("application ready",
		"embedder_model", cfg.EmbedderModel,
		"vector_dimension", cfg.VectorDimension)
	return a, nil
}

// providePool runs migrations and creates the connection pool.
func providePool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
