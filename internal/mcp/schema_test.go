package mcp

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/jasma-ai/recall/internal/knowledge"
)

// checkInputSchema validates payload against the generated schema for T
// (the SDK does the same before dispatching a tool call) and then
// unmarshals it into T, so a payload the schema accepts must also
// decode.
func checkInputSchema[T any](t *testing.T, payload string) T {
	t.Helper()

	schema, err := inputSchema[T]()
	if err != nil {
		t.Fatalf("inputSchema: %v", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		t.Fatalf("resolving schema: %v", err)
	}

	var instance map[string]any
	if err := json.Unmarshal([]byte(payload), &instance); err != nil {
		t.Fatalf("unmarshaling payload: %v", err)
	}
	if err := resolved.Validate(instance); err != nil {
		t.Fatalf("payload rejected by schema: %v", err)
	}

	var in T
	if err := json.Unmarshal([]byte(payload), &in); err != nil {
		t.Fatalf("unmarshaling into input type: %v", err)
	}
	return in
}

func TestToolSchemas_AcceptWireInput(t *testing.T) {
	relatedID := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	t.Run("store_entry", func(t *testing.T) {
		in := checkInputSchema[knowledge.StoreRequest](t, `{
			"kind": "bug",
			"title": "connection pool exhausted under load",
			"body": "pgx pool hits MaxConns and acquire times out",
			"severity": "high",
			"tags": ["pgx", "timeout"],
			"metadata": {"project": "recall", "language": "go"},
			"related_ids": ["6ba7b810-9dad-11d1-80b4-00c04fd430c8"]
		}`)
		if len(in.RelatedIDs) != 1 || in.RelatedIDs[0] != relatedID {
			t.Errorf("RelatedIDs = %v, want [%s]", in.RelatedIDs, relatedID)
		}
		if in.Kind != knowledge.KindBug {
			t.Errorf("Kind = %q, want bug", in.Kind)
		}
	})

	t.Run("search_entries", func(t *testing.T) {
		in := checkInputSchema[knowledge.SearchRequest](t, `{
			"query": "pool exhausted",
			"top_k": 5,
			"filters": {
				"project": "recall",
				"severity": "high",
				"resolved": true,
				"since": "2026-01-02T15:04:05Z",
				"tags": ["pgx"]
			}
		}`)
		if in.TopK != 5 {
			t.Errorf("TopK = %d, want 5", in.TopK)
		}
		if in.Filters.Since.IsZero() {
			t.Error("Since not decoded")
		}
	})

	t.Run("get_entry", func(t *testing.T) {
		in := checkInputSchema[GetEntryInput](t, `{"id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}`)
		if in.ID != relatedID.String() {
			t.Errorf("ID = %q, want %q", in.ID, relatedID)
		}
	})

	t.Run("stats", func(t *testing.T) {
		in := checkInputSchema[StatsInput](t, `{"filters": {"language": "go"}}`)
		if in.Filters.Language != "go" {
			t.Errorf("Filters.Language = %q, want go", in.Filters.Language)
		}
	})
}

func TestStoreSchema_RelatedIDsAreStrings(t *testing.T) {
	schema, err := inputSchema[knowledge.StoreRequest]()
	if err != nil {
		t.Fatalf("inputSchema: %v", err)
	}
	related, ok := schema.Properties["related_ids"]
	if !ok {
		t.Fatal("schema has no related_ids property")
	}
	// Slices render as nullable arrays (Types, not Type).
	if related.Type != "array" && !slices.Contains(related.Types, "array") {
		t.Fatalf("related_ids type = %q/%v, want array", related.Type, related.Types)
	}
	if related.Items == nil || related.Items.Type != "string" {
		t.Errorf("related_ids items = %+v, want string items", related.Items)
	}
}
