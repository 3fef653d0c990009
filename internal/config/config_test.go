package config

import (
	"errors"
	"testing"
)

// validConfig returns a Config that passes Validate.
func validConfig() *Config {
	return &Config{
		EmbedderModel:    DefaultEmbedderModel,
		VectorDimension:  768,
		MaxEmbedInput:    8000,
		EmbedRate:        10,
		ChunkSize:        800,
		ChunkOverlap:     100,
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "recall",
		PostgresPassword: "a-strong-password",
		PostgresDBName:   "recall",
		PostgresSSLMode:  "disable",
		Scraper:          ScraperConfig{Parallelism: 2, DelayMS: 1000, TimeoutMS: 30000},
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedder,
		},
		{
			name:    "zero vector dimension",
			mutate:  func(c *Config) { c.VectorDimension = 0 },
			wantErr: ErrInvalidEmbedder,
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.ChunkSize = 0 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "overlap equal to chunk size",
			mutate:  func(c *Config) { c.ChunkOverlap = c.ChunkSize },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "negative overlap",
			mutate:  func(c *Config) { c.ChunkOverlap = -1 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgres,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgres,
		},
		{
			name:    "empty password",
			mutate:  func(c *Config) { c.PostgresPassword = "" },
			wantErr: ErrInvalidPostgres,
		},
		{
			name:    "zero scraper parallelism",
			mutate:  func(c *Config) { c.Scraper.Parallelism = 0 },
			wantErr: ErrInvalidScraper,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() = %v, want ErrConfigNil", err)
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	if err := validConfig().Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Validate() = %v, want ErrMissingAPIKey", err)
	}
}
