package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jasma-ai/recall/internal/knowledge"
)

// inputSchema infers the JSON schema for a tool input type.
//
// uuid.UUID marshals to a JSON string, but schema inference sees its
// [16]byte representation and would declare a fixed 16-integer array —
// which the SDK then validates wire input against, rejecting the string
// form the unmarshaler actually expects. Override it to "string" so id
// fields validate the same way they decode.
func inputSchema[T any]() (*jsonschema.Schema, error) {
	return jsonschema.For[T](&jsonschema.ForOptions{
		TypeSchemas: map[reflect.Type]*jsonschema.Schema{
			reflect.TypeFor[uuid.UUID](): {Type: "string"},
		},
	})
}

// GetEntryInput is the input schema for the get_entry tool.
type GetEntryInput struct {
	ID string `json:"id" jsonschema:"The entry id (UUID) to fetch"`
}

// getEntryOutput is the wire shape of a get_entry response.
type getEntryOutput struct {
	Entry entryOutput      `json:"entry"`
	Links []knowledge.Link `json:"links,omitempty"`
}

// entryOutput is an Entry with json field names for tool output.
type entryOutput struct {
	ID         uuid.UUID          `json:"id"`
	Kind       knowledge.Kind     `json:"kind"`
	Title      string             `json:"title"`
	Body       string             `json:"body,omitempty"`
	StackTrace string             `json:"stack_trace,omitempty"`
	Code       string             `json:"code,omitempty"`
	ReproSteps string             `json:"repro_steps,omitempty"`
	RootCause  string             `json:"root_cause,omitempty"`
	Resolution string             `json:"resolution,omitempty"`
	Severity   knowledge.Severity `json:"severity,omitempty"`
	Tags       []string           `json:"tags,omitempty"`
	Metadata   knowledge.Metadata `json:"metadata"`
	Resolved   bool               `json:"resolved"`
	CreatedAt  string             `json:"created_at"`
}

// StatsInput is the input schema for the stats tool.
type StatsInput struct {
	Filters knowledge.SearchFilters `json:"filters,omitempty" jsonschema:"Optional filters restricting which entries are counted"`
}

// statsOutput is the wire shape of a stats response.
type statsOutput struct {
	Entries int64 `json:"entries"`
}

// registerTools registers the knowledge tools.
// Tools: store_entry, search_entries, get_entry, stats.
func (s *Server) registerTools() error {
	storeSchema, err := inputSchema[knowledge.StoreRequest]()
	if err != nil {
		return fmt.Errorf("schema for store_entry: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "store_entry",
		Description: "Store a bug, solution or doc entry in the persistent knowledge base. " +
			"Secrets are redacted and duplicate content is absorbed; resubmitting the same " +
			"content returns the original entry id.",
		InputSchema: storeSchema,
	}, s.StoreEntry)

	searchSchema, err := inputSchema[knowledge.SearchRequest]()
	if err != nil {
		return fmt.Errorf("schema for search_entries: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "search_entries",
		Description: "Search the knowledge base with hybrid retrieval (full-text plus " +
			"semantic similarity). Returns ranked entries with summaries and snippets.",
		InputSchema: searchSchema,
	}, s.SearchEntries)

	getSchema, err := inputSchema[GetEntryInput]()
	if err != nil {
		return fmt.Errorf("schema for get_entry: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_entry",
		Description: "Fetch a single knowledge entry by id, including its links to related entries.",
		InputSchema: getSchema,
	}, s.GetEntry)

	statsSchema, err := inputSchema[StatsInput]()
	if err != nil {
		return fmt.Errorf("schema for stats: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "stats",
		Description: "Report the number of entries in the knowledge base, optionally restricted by filters.",
		InputSchema: statsSchema,
	}, s.Stats)

	return nil
}

// StoreEntry handles the store_entry MCP tool call.
//
// A partial success (entry stored, embeddings missing because the
// provider failed) is reported as success with a warning so the caller
// does not retry into a duplicate.
func (s *Server) StoreEntry(ctx context.Context, _ *mcp.CallToolRequest, input knowledge.StoreRequest) (*mcp.CallToolResult, any, error) {
	result, err := s.ingestor.Store(ctx, input)
	switch {
	case err == nil:
		return jsonResult(result), nil, nil
	case errors.Is(err, knowledge.ErrInvalidInput):
		return errorResult(err.Error()), nil, nil
	case result.ID != uuid.Nil:
		s.logger.Warn("entry stored without embeddings", "id", result.ID, "error", err)
		return jsonResultWithNote(result, "warning: entry stored but embeddings are missing; it will not appear in semantic search"), nil, nil
	default:
		return nil, nil, fmt.Errorf("store_entry failed: %w", err)
	}
}

// SearchEntries handles the search_entries MCP tool call.
func (s *Server) SearchEntries(ctx context.Context, _ *mcp.CallToolRequest, input knowledge.SearchRequest) (*mcp.CallToolResult, any, error) {
	results, err := s.searcher.Search(ctx, input)
	switch {
	case errors.Is(err, knowledge.ErrInvalidInput):
		return errorResult(err.Error()), nil, nil
	case err != nil:
		return nil, nil, fmt.Errorf("search_entries failed: %w", err)
	}
	if results == nil {
		results = []knowledge.SearchResult{}
	}
	return jsonResult(results), nil, nil
}

// GetEntry handles the get_entry MCP tool call.
func (s *Server) GetEntry(ctx context.Context, _ *mcp.CallToolRequest, input GetEntryInput) (*mcp.CallToolResult, any, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid entry id %q", input.ID)), nil, nil
	}

	entry, links, err := s.reader.GetEntry(ctx, id)
	switch {
	case errors.Is(err, knowledge.ErrNotFound):
		return errorResult(fmt.Sprintf("entry %s not found", id)), nil, nil
	case err != nil:
		return nil, nil, fmt.Errorf("get_entry failed: %w", err)
	}

	return jsonResult(getEntryOutput{
		Entry: entryOutput{
			ID:         entry.ID,
			Kind:       entry.Kind,
			Title:      entry.Title,
			Body:       entry.Body,
			StackTrace: entry.StackTrace,
			Code:       entry.Code,
			ReproSteps: entry.ReproSteps,
			RootCause:  entry.RootCause,
			Resolution: entry.Resolution,
			Severity:   entry.Severity,
			Tags:       entry.Tags,
			Metadata:   entry.Metadata,
			Resolved:   entry.Resolved,
			CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
		},
		Links: links,
	}), nil, nil
}

// Stats handles the stats MCP tool call.
func (s *Server) Stats(ctx context.Context, _ *mcp.CallToolRequest, input StatsInput) (*mcp.CallToolResult, any, error) {
	count, err := s.reader.CountEntries(ctx, input.Filters)
	if err != nil {
		return nil, nil, fmt.Errorf("stats failed: %w", err)
	}
	return jsonResult(statsOutput{Entries: count}), nil, nil
}

// jsonResult renders v as a JSON text content block.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("internal error rendering result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

// jsonResultWithNote renders v as JSON followed by a plain-text note.
func jsonResultWithNote(v any, note string) *mcp.CallToolResult {
	r := jsonResult(v)
	r.Content = append(r.Content, &mcp.TextContent{Text: note})
	return r
}

// errorResult builds a tool-level error the model can react to, as
// opposed to a protocol error.
func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
