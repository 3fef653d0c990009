package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jasma-ai/recall/internal/app"
	"github.com/jasma-ai/recall/internal/mcp"
)

// runMCP starts the MCP server on stdio and blocks until the client
// disconnects or the process receives SIGINT/SIGTERM.
func runMCP() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Setup(ctx)
	if err != nil {
		return fmt.Errorf("setup application: %w", err)
	}
	defer a.Close()

	server, err := mcp.NewServer(mcp.Config{
		Name:    "recall",
		Version: Version,
	}, a.Pipeline, a.Engine, a.Store, a.Logger)
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}

	a.Logger.Info("starting MCP server on stdio")

	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}
