// Package cmd provides the recall CLI commands.
//
// Commands:
//   - mcp: Model Context Protocol server for coding agents (stdio)
//   - migrate: apply database migrations and exit
//   - ingest: scrape a web page into the knowledge base
//   - stats: report the number of stored entries
//
// All commands install signal handling and shut down via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jasma-ai/recall/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Execute is the main entry point for the recall CLI.
func Execute() error {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	// Stderr only: the MCP stdio transport owns stdout.
	slog.SetDefault(log.New(log.Config{Level: level}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "mcp":
		return runMCP()
	case "migrate":
		return runMigrate()
	case "ingest":
		return runIngest(os.Args[2:])
	case "stats":
		return runStats()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

func runVersion() {
	fmt.Printf("recall %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

func runHelp() {
	fmt.Println("recall - persistent knowledge base for coding agents")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  recall mcp           Start MCP server on stdio (for Claude Code/Cursor)")
	fmt.Println("  recall migrate       Apply database migrations and exit")
	fmt.Println("  recall ingest <url>  Scrape a web page into the knowledge base")
	fmt.Println("  recall stats         Show the number of stored entries")
	fmt.Println("  recall --version     Show version information")
	fmt.Println("  recall --help        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY       Required: Gemini API key for embeddings")
	fmt.Println("  DATABASE_URL         Optional: overrides postgres_* config values")
	fmt.Println("  DEBUG                Optional: enable debug logging")
}
