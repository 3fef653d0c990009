package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Search knobs.
const (
	DefaultTopK = 10
	MaxTopK     = 50

	// minCandidates is the floor on each candidate list so fusion has
	// enough rows to work with even at small top_k.
	minCandidates = 20

	// rrfSmoothing is the k constant of reciprocal rank fusion.
	rrfSmoothing = 60

	SummaryLength = 200
	SnippetLength = 400

	// DefaultSearchTimeout bounds a whole search call, embedding
	// included, when the caller carries no tighter deadline.
	DefaultSearchTimeout = 10 * time.Second
)

// SearchStore is the persistence collaborator as the engine consumes it.
// Both queries share the same filter conjunction; VectorSearch
// de-duplicates chunk rows to the owning entry, surfacing only its
// best-scoring chunk.
type SearchStore interface {
	LexicalSearch(ctx context.Context, query string, filters SearchFilters, limit int) ([]Candidate, error)
	VectorSearch(ctx context.Context, vector []float32, filters SearchFilters, limit int) ([]Candidate, error)
}

// Engine is the hybrid retrieval path: concurrent lexical and vector
// candidate queries fused by reciprocal rank. Safe for concurrent use.
type Engine struct {
	store    SearchStore
	embedder TextEmbedder
	timeout  time.Duration
	logger   *slog.Logger
}

// NewEngine wires the hybrid search engine.
func NewEngine(store SearchStore, embedder TextEmbedder, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: search store", ErrUninitialized)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder", ErrUninitialized)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, embedder: embedder, timeout: DefaultSearchTimeout, logger: logger}, nil
}

// Search runs the two-stage fan-out: stage one starts the lexical query
// and the query embedding concurrently, stage two runs the vector query
// once the embedding is ready. The first failure cancels the surviving
// branch and aborts the whole search; there are no partial results.
func (e *Engine) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, &ValidationError{Field: "query", Reason: "is required"}
	}
	topK := req.TopK
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 1 || topK > MaxTopK {
		return nil, &ValidationError{Field: "top_k", Reason: fmt.Sprintf("must be in [1, %d]", MaxTopK)}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	limit := topK
	if limit < minCandidates {
		limit = minCandidates
	}

	var lexical, vector []Candidate
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		lexical, err = e.store.LexicalSearch(gctx, req.Query, req.Filters, limit)
		if err != nil {
			return fmt.Errorf("lexical search: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		queryVec, err := e.embedder.EmbedOne(gctx, req.Query)
		if err != nil {
			return fmt.Errorf("embedding query: %w", err)
		}
		vector, err = e.store.VectorSearch(gctx, queryVec, req.Filters, limit)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuse(lexical, vector)
	if len(fused) > topK {
		fused = fused[:topK]
	}

	results := make([]SearchResult, len(fused))
	for i, f := range fused {
		results[i] = shapeResult(f.entry, f.score)
	}

	e.logger.Debug("search complete",
		"query_len", len(req.Query),
		"lexical", len(lexical), "vector", len(vector), "returned", len(results))
	return results, nil
}

// fusedCandidate accumulates an entry's contributions from both lists.
type fusedCandidate struct {
	entry Entry
	score float64
}

// fuse combines the two ranked lists by reciprocal rank fusion: a row at
// zero-based position idx contributes its native score plus
// 1/(rrfSmoothing+idx+1). An entry present in both lists accumulates
// both contributions; absence from a list contributes nothing.
func fuse(lists ...[]Candidate) []fusedCandidate {
	byID := make(map[uuid.UUID]*fusedCandidate)
	var order []uuid.UUID

	for _, list := range lists {
		for idx, c := range list {
			contribution := c.NativeScore + 1.0/float64(rrfSmoothing+idx+1)
			if f, ok := byID[c.Entry.ID]; ok {
				f.score += contribution
				continue
			}
			byID[c.Entry.ID] = &fusedCandidate{entry: c.Entry, score: contribution}
			order = append(order, c.Entry.ID)
		}
	}

	fused := make([]fusedCandidate, 0, len(order))
	for _, id := range order {
		fused = append(fused, *byID[id])
	}
	// Descending score; id as a deterministic tiebreak.
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].entry.ID.String() < fused[j].entry.ID.String()
	})
	return fused
}

// shapeResult derives the wire shape: summary and snippet come from the
// body, falling back to code when the body is empty.
func shapeResult(entry Entry, score float64) SearchResult {
	source := entry.Body
	if source == "" {
		source = entry.Code
	}
	return SearchResult{
		ID:       entry.ID,
		Title:    entry.Title,
		Summary:  truncateRunes(source, SummaryLength),
		Snippet:  truncateRunes(source, SnippetLength),
		Score:    score,
		Kind:     entry.Kind,
		Severity: entry.Severity,
		Tags:     entry.Tags,
		Resolved: entry.Resolved,
		Metadata: entry.Metadata,
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
