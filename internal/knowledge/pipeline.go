package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jasma-ai/recall/internal/redact"
)

// Store is the persistence collaborator as the pipeline consumes it.
// The PostgreSQL implementation enforces the content_hash uniqueness
// invariant and reports races as ErrHashConflict.
type Store interface {
	// FindByHash returns the id of the entry with the given content
	// hash, or found=false.
	FindByHash(ctx context.Context, hash string) (id uuid.UUID, found bool, err error)

	// InsertEntry persists a new entry and returns its assigned id.
	// A concurrent writer winning the content_hash race surfaces as
	// ErrHashConflict.
	InsertEntry(ctx context.Context, entry *Entry) (uuid.UUID, error)

	// UpsertLinks inserts link rows, silently absorbing duplicates.
	UpsertLinks(ctx context.Context, links []Link) error

	// InsertEmbeddings persists one row per chunk, in chunk order.
	InsertEmbeddings(ctx context.Context, entryID uuid.UUID, rows []EmbeddingRow) error
}

// embedConcatSeparator joins the free-text fields into the text that is
// chunked and embedded.
const embedConcatSeparator = "\n\n"

// Pipeline is the ingestion path: redact, fingerprint, dedup, persist,
// chunk, embed. Safe for concurrent use; each Store call is independent.
type Pipeline struct {
	store    Store
	embedder TextEmbedder
	chunker  *Chunker
	logger   *slog.Logger
}

// NewPipeline wires the ingestion pipeline. All collaborators are
// required; a nil one indicates a startup ordering bug.
func NewPipeline(store Store, embedder TextEmbedder, chunker *Chunker, logger *slog.Logger) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store", ErrUninitialized)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder", ErrUninitialized)
	}
	if chunker == nil {
		return nil, fmt.Errorf("%w: chunker", ErrUninitialized)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: store, embedder: embedder, chunker: chunker, logger: logger}, nil
}

// Store ingests one record. It is idempotent under retries: resubmitting
// the same logical content returns the original id with Created false.
//
// On an embedding-provider failure the entry and its links are kept and
// the error is returned alongside a populated StoreResult, so the caller
// knows the entry exists but its embeddings are missing.
func (p *Pipeline) Store(ctx context.Context, req StoreRequest) (StoreResult, error) {
	if err := req.Validate(); err != nil {
		return StoreResult{}, err
	}

	// Redaction runs before hashing so identity is computed over the
	// sanitized form: two submissions differing only in a secret value
	// dedup to one entry.
	body := redact.Apply(req.Body)
	stackTrace := redact.Apply(req.StackTrace)
	code := redact.Apply(req.Code)
	reproSteps := redact.Apply(req.ReproSteps)
	rootCause := redact.Apply(req.RootCause)
	resolution := redact.Apply(req.Resolution)

	hash := Fingerprint(req.Kind, req.Title, body, stackTrace, code, reproSteps, rootCause, resolution)

	if id, found, err := p.store.FindByHash(ctx, hash); err != nil {
		return StoreResult{}, fmt.Errorf("dedup lookup: %w", err)
	} else if found {
		p.logger.Debug("duplicate entry", "id", id, "content_hash", hash)
		return StoreResult{ID: id, Created: false, DuplicateOf: id}, nil
	}

	entry := &Entry{
		Kind:        req.Kind,
		Title:       req.Title,
		Body:        body,
		StackTrace:  stackTrace,
		Code:        code,
		ReproSteps:  reproSteps,
		RootCause:   rootCause,
		Resolution:  resolution,
		Severity:    req.Severity,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
		Resolved:    req.Kind == KindSolution || strings.TrimSpace(resolution) != "",
		ContentHash: hash,
	}

	id, err := p.store.InsertEntry(ctx, entry)
	if errors.Is(err, ErrHashConflict) {
		// Another writer won the check-then-insert race. The uniqueness
		// constraint is the arbiter: re-fetch and report a duplicate hit.
		existing, found, lookupErr := p.store.FindByHash(ctx, hash)
		if lookupErr != nil {
			return StoreResult{}, fmt.Errorf("resolving hash conflict: %w", lookupErr)
		}
		if !found {
			return StoreResult{}, fmt.Errorf("resolving hash conflict: winner vanished: %w", err)
		}
		p.logger.Debug("lost insert race, returning existing entry", "id", existing)
		return StoreResult{ID: existing, Created: false, DuplicateOf: existing}, nil
	}
	if err != nil {
		return StoreResult{}, fmt.Errorf("inserting entry: %w", err)
	}

	if len(req.RelatedIDs) > 0 {
		links := make([]Link, 0, len(req.RelatedIDs))
		for _, related := range req.RelatedIDs {
			links = append(links, Link{FromID: id, ToID: related, Relation: RelationRelatesTo})
		}
		if err := p.store.UpsertLinks(ctx, links); err != nil {
			return StoreResult{}, fmt.Errorf("upserting links: %w", err)
		}
	}

	result := StoreResult{ID: id, Created: true}

	text := concatNonEmpty(body, code, stackTrace, reproSteps, resolution)
	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		return result, nil
	}

	vectors, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		// The entry and links stay; the caller learns embeddings are
		// missing.
		return result, fmt.Errorf("embedding entry %s: %w", id, err)
	}

	rows := make([]EmbeddingRow, len(chunks))
	for i, chunk := range chunks {
		rows[i] = EmbeddingRow{ChunkIndex: i, ChunkText: chunk, Vector: vectors[i]}
	}
	if err := p.store.InsertEmbeddings(ctx, id, rows); err != nil {
		return result, fmt.Errorf("persisting embeddings for entry %s: %w", id, err)
	}

	p.logger.Debug("stored entry", "id", id, "kind", req.Kind, "chunks", len(chunks))
	return result, nil
}

// concatNonEmpty joins the non-empty fields with the embed separator.
func concatNonEmpty(fields ...string) string {
	nonEmpty := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			nonEmpty = append(nonEmpty, f)
		}
	}
	return strings.Join(nonEmpty, embedConcatSeparator)
}
