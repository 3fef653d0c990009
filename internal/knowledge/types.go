package knowledge

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a knowledge entry.
type Kind string

const (
	KindBug      Kind = "bug"
	KindSolution Kind = "solution"
	KindDoc      Kind = "doc"
)

// Valid reports whether k is a recognized kind.
func (k Kind) Valid() bool {
	switch k {
	case KindBug, KindSolution, KindDoc:
		return true
	}
	return false
}

// Severity grades a bug entry. The empty value means unspecified.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a recognized severity or empty.
func (s Severity) Valid() bool {
	switch s {
	case "", SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Metadata carries optional provenance for an entry.
type Metadata struct {
	Project   string `json:"project,omitempty"`
	Repo      string `json:"repo,omitempty"`
	Commit    string `json:"commit,omitempty"`
	Branch    string `json:"branch,omitempty"`
	OS        string `json:"os,omitempty"`
	Runtime   string `json:"runtime,omitempty"`
	Language  string `json:"language,omitempty"`
	Framework string `json:"framework,omitempty"`
}

// Entry is a stored knowledge record. Entries are append-only: once
// created they are never updated, and the content hash is the
// system-wide idempotency key.
type Entry struct {
	ID          uuid.UUID
	Kind        Kind
	Title       string
	Body        string
	StackTrace  string
	Code        string
	ReproSteps  string
	RootCause   string
	Resolution  string
	Severity    Severity
	Tags        []string
	Metadata    Metadata
	Resolved    bool
	ContentHash string
	CreatedAt   time.Time
}

// Link is a directed, labeled relation between two entries.
// Duplicate links with the same triple are absorbed, not errors.
type Link struct {
	FromID   uuid.UUID
	ToID     uuid.UUID
	Relation string
}

// RelationRelatesTo is the relation label for caller-supplied related ids.
const RelationRelatesTo = "relates_to"

// EmbeddingRow is one chunk of an entry's text with its vector.
// ChunkIndex is the zero-based ordinal in chunk production order.
type EmbeddingRow struct {
	ChunkIndex int
	ChunkText  string
	Vector     []float32
}

// StoreRequest is the validated input to Pipeline.Store.
type StoreRequest struct {
	Kind       Kind   `json:"kind"`
	Title      string `json:"title"`
	Body       string `json:"body,omitempty"`
	StackTrace string `json:"stack_trace,omitempty"`
	ReproSteps string `json:"repro_steps,omitempty"`
	Code       string `json:"code,omitempty"`
	RootCause  string `json:"root_cause,omitempty"`
	Resolution string `json:"resolution,omitempty"`

	Severity Severity `json:"severity,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Metadata Metadata `json:"metadata,omitempty"`

	// RelatedIDs are existing entries to link with relates_to.
	RelatedIDs []uuid.UUID `json:"related_ids,omitempty"`

	// IdempotencyKey is accepted from callers but not load-bearing:
	// content-hash dedup is the real idempotency mechanism.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Validate checks the request at the boundary, before any side effect.
func (r *StoreRequest) Validate() error {
	if !r.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "must be one of bug, solution, doc"}
	}
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if !r.Severity.Valid() {
		return &ValidationError{Field: "severity", Reason: "must be one of low, medium, high, critical"}
	}
	return nil
}

// SearchFilters is an optional conjunction restricting search candidates.
// Zero-valued fields are not applied.
type SearchFilters struct {
	Project  string    `json:"project,omitempty"`
	Repo     string    `json:"repo,omitempty"`
	Language string    `json:"language,omitempty"`
	Severity Severity  `json:"severity,omitempty"`
	Resolved *bool     `json:"resolved,omitempty"`
	Since    time.Time `json:"since,omitzero"`
	Tags     []string  `json:"tags,omitempty"` // any overlap matches
}

// SearchRequest is the validated input to Engine.Search.
type SearchRequest struct {
	Query   string        `json:"query"`
	TopK    int           `json:"top_k,omitempty"` // default 10, range 1-50
	Filters SearchFilters `json:"filters,omitempty"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
	Snippet  string    `json:"snippet"`
	Score    float64   `json:"score"`
	Kind     Kind      `json:"kind"`
	Severity Severity  `json:"severity,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	Resolved bool      `json:"resolved"`
	Metadata Metadata  `json:"metadata"`
}

// Candidate is a row returned by one of the two candidate queries,
// carrying the entry and the query's native score (ts_rank for lexical,
// cosine similarity for vector).
type Candidate struct {
	Entry       Entry
	NativeScore float64
}

// StoreResult is the outcome of Pipeline.Store. A duplicate hit is a
// successful outcome with Created false and DuplicateOf set.
type StoreResult struct {
	ID          uuid.UUID `json:"id"`
	Created     bool      `json:"created"`
	DuplicateOf uuid.UUID `json:"duplicate_of,omitzero"`
}
