package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jasma-ai/recall/internal/app"
)

// runIngest scrapes a single web page and stores the extracted content
// through the full ingestion pipeline.
func runIngest(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: recall ingest <url>")
	}
	pageURL := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Setup(ctx)
	if err != nil {
		return fmt.Errorf("setup application: %w", err)
	}
	defer a.Close()

	result, err := a.Scraper.Ingest(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", pageURL, err)
	}

	if result.Created {
		fmt.Printf("stored entry %s\n", result.ID)
	} else {
		fmt.Printf("already known: entry %s\n", result.DuplicateOf)
	}
	return nil
}
