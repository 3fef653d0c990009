// Package mcp exposes the knowledge store over the Model Context
// Protocol, so coding agents (Claude Code, Cursor, the Genkit CLI)
// can store and retrieve entries through a standard tool interface.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jasma-ai/recall/internal/knowledge"
)

// Ingestor is the ingestion collaborator as the server consumes it.
type Ingestor interface {
	Store(ctx context.Context, req knowledge.StoreRequest) (knowledge.StoreResult, error)
}

// Searcher is the retrieval collaborator as the server consumes it.
type Searcher interface {
	Search(ctx context.Context, req knowledge.SearchRequest) ([]knowledge.SearchResult, error)
}

// EntryReader serves direct entry lookups and store statistics.
type EntryReader interface {
	GetEntry(ctx context.Context, id uuid.UUID) (*knowledge.Entry, []knowledge.Link, error)
	CountEntries(ctx context.Context, filters knowledge.SearchFilters) (int64, error)
}

// Server wraps the MCP SDK server around the knowledge components.
type Server struct {
	mcpServer *mcp.Server
	ingestor  Ingestor
	searcher  Searcher
	reader    EntryReader
	logger    *slog.Logger
}

// Config holds MCP server identity.
type Config struct {
	Name    string
	Version string
}

// NewServer creates the MCP server and registers the knowledge tools.
func NewServer(cfg Config, ingestor Ingestor, searcher Searcher, reader EntryReader, logger *slog.Logger) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if ingestor == nil || searcher == nil || reader == nil {
		return nil, fmt.Errorf("%w: mcp server collaborators", knowledge.ErrUninitialized)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		ingestor: ingestor,
		searcher: searcher,
		reader:   reader,
		logger:   logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return s, nil
}

// Run serves the MCP protocol on the given transport. Blocking.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}
