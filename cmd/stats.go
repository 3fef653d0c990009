package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jasma-ai/recall/internal/app"
	"github.com/jasma-ai/recall/internal/knowledge"
)

// runStats prints the number of stored entries.
func runStats() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Setup(ctx)
	if err != nil {
		return fmt.Errorf("setup application: %w", err)
	}
	defer a.Close()

	count, err := a.Store.CountEntries(ctx, knowledge.SearchFilters{})
	if err != nil {
		return fmt.Errorf("count entries: %w", err)
	}

	fmt.Printf("entries: %d\n", count)
	return nil
}
