package observability

import (
	"context"
	"testing"

	"github.com/jasma-ai/recall/internal/log"
)

func TestSetup_DefaultEndpoint(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Setup(ctx, Config{
		Environment: "test",
		ServiceName: "test-service",
	}, log.NewNop())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Setup returned nil shutdown")
	}
	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetup_UnreachableCollectorDegradesGracefully(t *testing.T) {
	ctx := context.Background()

	// No collector listens here; Setup must still succeed.
	shutdown, err := Setup(ctx, Config{
		Endpoint:    "localhost:1",
		Environment: "test",
		ServiceName: "graceful-test",
	}, log.NewNop())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
