package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Embedding knobs shared across the deployment.
const (
	// DefaultVectorDimension is the per-deployment vector width. It must
	// match the vector(N) column in the entry_embeddings migration.
	DefaultVectorDimension = 768

	// DefaultMaxEmbedInput caps each input text, in characters, before
	// the provider call. Roughly the 2048-token limit of the embedding
	// models we deploy against.
	DefaultMaxEmbedInput = 8000

	// DefaultEmbedRate bounds provider calls per second.
	DefaultEmbedRate = 10
)

// TextEmbedder is the embedding capability as the pipeline and search
// engine consume it: order-preserving, one unit vector per input text.
type TextEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// EmbedProvider is the slice of genkit's ai.Embedder the adapter
// consumes. Defined here, by the consumer, so tests can fake the
// provider without genkit plumbing.
type EmbedProvider interface {
	Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error)
}

// EmbedderConfig configures the provider adapter.
type EmbedderConfig struct {
	// Dimension is the fixed vector width. Longer provider vectors are
	// truncated to it; shorter ones fail with ErrDimensionMismatch.
	Dimension int

	// MaxInputLen caps each text in characters before the call.
	MaxInputLen int

	// RatePerSecond bounds provider calls. Zero means DefaultEmbedRate.
	RatePerSecond float64
}

// Embedder adapts a genkit ai.Embedder to the TextEmbedder contract:
// input truncation, dimension enforcement and L2 normalization.
type Embedder struct {
	embedder EmbedProvider
	dim      int
	maxInput int
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewEmbedder creates the adapter. A nil provider is a startup ordering
// bug and fails immediately.
func NewEmbedder(provider EmbedProvider, cfg EmbedderConfig, logger *slog.Logger) (*Embedder, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: embedding provider", ErrUninitialized)
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultVectorDimension
	}
	if cfg.MaxInputLen <= 0 {
		cfg.MaxInputLen = DefaultMaxEmbedInput
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultEmbedRate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{
		embedder: provider,
		dim:      cfg.Dimension,
		maxInput: cfg.MaxInputLen,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		logger:   logger,
	}, nil
}

// Embed returns one vector per input text, in input order. Each text is
// truncated to the input cap before the call; each returned vector is
// truncated to the configured dimension and L2-normalized.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: waiting for rate limiter: %w", ErrEmbeddingProvider, err)
	}

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(e.truncate(t), nil)
	}

	dim := int32(e.dim)
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   docs,
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingProvider, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingProvider, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		vec := emb.Embedding
		if len(vec) < e.dim {
			return nil, fmt.Errorf("%w: provider returned %d dims, configured %d", ErrDimensionMismatch, len(vec), e.dim)
		}
		if len(vec) > e.dim {
			vec = vec[:e.dim]
		}
		vectors[i] = normalize(vec)
	}
	return vectors, nil
}

// EmbedOne embeds a single query string.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// truncate caps text at the configured character limit.
func (e *Embedder) truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= e.maxInput {
		return text
	}
	return string(runes[:e.maxInput])
}

// normalize scales vec to unit length in place. The zero vector has no
// direction and passes through unchanged.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec
}
