// Package config provides application configuration with multi-source
// priority.
//
// Sources, highest to lowest:
//  1. Environment variables (DATABASE_URL and explicit binds)
//  2. Config file (~/.recall/config.yaml or ./config.yaml)
//  3. Defaults
//
// Sensitive values (the PostgreSQL password, API keys) are never logged.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidEmbedder indicates the embedder configuration is invalid.
	ErrInvalidEmbedder = errors.New("invalid embedder configuration")

	// ErrInvalidChunking indicates the chunker configuration is invalid.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidPostgres indicates the PostgreSQL configuration is invalid.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")

	// ErrInvalidScraper indicates the scraper configuration is invalid.
	ErrInvalidScraper = errors.New("invalid scraper configuration")
)

// DefaultEmbedderModel is the Gemini embedding model used unless
// overridden. gemini-embedding-001 outputs 3072 dimensions by default
// but supports truncation via OutputDimensionality; the pgvector schema
// is fixed at 768.
const DefaultEmbedderModel = "gemini-embedding-001"

// ScraperConfig tunes the web ingestion crawler.
type ScraperConfig struct {
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	DelayMS     int `mapstructure:"delay_ms" json:"delay_ms"`
	TimeoutMS   int `mapstructure:"timeout_ms" json:"timeout_ms"`
}

// TracingConfig configures the optional OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	Environment string `mapstructure:"environment" json:"environment"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Config stores application configuration.
type Config struct {
	// Embedding
	EmbedderModel   string `mapstructure:"embedder_model" json:"embedder_model"`
	VectorDimension int    `mapstructure:"vector_dimension" json:"vector_dimension"`
	MaxEmbedInput   int    `mapstructure:"max_embed_input" json:"max_embed_input"`
	EmbedRate       int    `mapstructure:"embed_rate" json:"embed_rate"` // requests per second

	// Chunking
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Storage (see storage.go for DSN builders)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	Scraper ScraperConfig `mapstructure:"scraper" json:"scraper"`
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".recall")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("vector_dimension", 768)
	v.SetDefault("max_embed_input", 8000)
	v.SetDefault("embed_rate", 10)

	v.SetDefault("chunk_size", 800)
	v.SetDefault("chunk_overlap", 100)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "recall")
	v.SetDefault("postgres_password", "recall_dev_password")
	v.SetDefault("postgres_db_name", "recall")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("scraper.parallelism", 2)
	v.SetDefault("scraper.delay_ms", 1000)
	v.SetDefault("scraper.timeout_ms", 30000)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.environment", "dev")
	v.SetDefault("tracing.service_name", "recall")
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly by genkit, not via viper; Validate
// only checks its presence.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("embedder_model", "RECALL_EMBEDDER_MODEL")
	mustBind("log_level", "RECALL_LOG_LEVEL")
	mustBind("log_json", "RECALL_LOG_JSON")
	mustBind("tracing.enabled", "RECALL_TRACING_ENABLED")
	mustBind("tracing.endpoint", "RECALL_TRACING_ENDPOINT")
}

// Validate checks configuration values. Returns sentinel errors usable
// with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required", ErrMissingAPIKey)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedder)
	}
	if c.VectorDimension < 1 {
		return fmt.Errorf("%w: vector_dimension must be positive, got %d", ErrInvalidEmbedder, c.VectorDimension)
	}
	if c.MaxEmbedInput < 1 {
		return fmt.Errorf("%w: max_embed_input must be positive, got %d", ErrInvalidEmbedder, c.MaxEmbedInput)
	}
	if c.EmbedRate < 1 {
		return fmt.Errorf("%w: embed_rate must be positive, got %d", ErrInvalidEmbedder, c.EmbedRate)
	}

	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d with chunk_size %d",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidPostgres, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgres)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgres)
	}
	if c.PostgresPassword == "recall_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"hint", "change postgres_password for production deployments")
	}

	if c.Scraper.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be positive, got %d", ErrInvalidScraper, c.Scraper.Parallelism)
	}
	if c.Scraper.TimeoutMS < 1 {
		return fmt.Errorf("%w: timeout_ms must be positive, got %d", ErrInvalidScraper, c.Scraper.TimeoutMS)
	}

	return nil
}
