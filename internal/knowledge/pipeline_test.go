package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/jasma-ai/recall/internal/log"
)

// fakeStore is an in-memory Store for pipeline tests.
type fakeStore struct {
	byHash     map[string]uuid.UUID
	entries    map[uuid.UUID]*Entry
	links      map[Link]struct{}
	embeddings map[uuid.UUID][]EmbeddingRow

	insertErr     error // returned once by InsertEntry
	embeddingsErr error
	missHashOnce  bool // FindByHash misses once, simulating a lost race
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byHash:     make(map[string]uuid.UUID),
		entries:    make(map[uuid.UUID]*Entry),
		links:      make(map[Link]struct{}),
		embeddings: make(map[uuid.UUID][]EmbeddingRow),
	}
}

func (s *fakeStore) FindByHash(_ context.Context, hash string) (uuid.UUID, bool, error) {
	if s.missHashOnce {
		s.missHashOnce = false
		return uuid.Nil, false, nil
	}
	id, ok := s.byHash[hash]
	return id, ok, nil
}

func (s *fakeStore) InsertEntry(_ context.Context, entry *Entry) (uuid.UUID, error) {
	if s.insertErr != nil {
		err := s.insertErr
		s.insertErr = nil
		return uuid.Nil, err
	}
	if _, exists := s.byHash[entry.ContentHash]; exists {
		return uuid.Nil, ErrHashConflict
	}
	id := uuid.New()
	stored := *entry
	stored.ID = id
	s.byHash[entry.ContentHash] = id
	s.entries[id] = &stored
	return id, nil
}

func (s *fakeStore) UpsertLinks(_ context.Context, links []Link) error {
	for _, l := range links {
		s.links[l] = struct{}{}
	}
	return nil
}

func (s *fakeStore) InsertEmbeddings(_ context.Context, entryID uuid.UUID, rows []EmbeddingRow) error {
	if s.embeddingsErr != nil {
		return s.embeddingsErr
	}
	s.embeddings[entryID] = rows
	return nil
}

// fakeEmbedder satisfies TextEmbedder with unit basis vectors.
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 0, 0}
	}
	return vecs, nil
}

func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func newTestPipeline(t *testing.T, store Store, embedder TextEmbedder) *Pipeline {
	t.Helper()
	chunker, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	p, err := NewPipeline(store, embedder, chunker, log.NewNop())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestNewPipeline_RequiresCollaborators(t *testing.T) {
	chunker, _ := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	if _, err := NewPipeline(nil, &fakeEmbedder{}, chunker, nil); !errors.Is(err, ErrUninitialized) {
		t.Errorf("nil store: error = %v, want ErrUninitialized", err)
	}
	if _, err := NewPipeline(newFakeStore(), nil, chunker, nil); !errors.Is(err, ErrUninitialized) {
		t.Errorf("nil embedder: error = %v, want ErrUninitialized", err)
	}
	if _, err := NewPipeline(newFakeStore(), &fakeEmbedder{}, nil, nil); !errors.Is(err, ErrUninitialized) {
		t.Errorf("nil chunker: error = %v, want ErrUninitialized", err)
	}
}

func TestPipeline_Store_Validation(t *testing.T) {
	p := newTestPipeline(t, newFakeStore(), &fakeEmbedder{})

	tests := []struct {
		name string
		req  StoreRequest
	}{
		{name: "missing kind", req: StoreRequest{Title: "t"}},
		{name: "unknown kind", req: StoreRequest{Kind: "incident", Title: "t"}},
		{name: "missing title", req: StoreRequest{Kind: KindBug}},
		{name: "blank title", req: StoreRequest{Kind: KindBug, Title: "   "}},
		{name: "unknown severity", req: StoreRequest{Kind: KindBug, Title: "t", Severity: "fatal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Store(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Store error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestPipeline_Store_Idempotent(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(t, store, &fakeEmbedder{})
	req := StoreRequest{Kind: KindBug, Title: "Null pointer", Body: "fails on save"}

	first, err := p.Store(context.Background(), req)
	if err != nil {
		t.Fatalf("first Store: %v", err)
	}
	if !first.Created {
		t.Error("first Store: Created = false, want true")
	}
	if first.DuplicateOf != uuid.Nil {
		t.Errorf("first Store: DuplicateOf = %v, want zero", first.DuplicateOf)
	}

	second, err := p.Store(context.Background(), req)
	if err != nil {
		t.Fatalf("second Store: %v", err)
	}
	if second.Created {
		t.Error("second Store: Created = true, want false")
	}
	if second.ID != first.ID {
		t.Errorf("second Store: ID = %v, want %v", second.ID, first.ID)
	}
	if second.DuplicateOf != first.ID {
		t.Errorf("second Store: DuplicateOf = %v, want %v", second.DuplicateOf, first.ID)
	}
	if len(store.entries) != 1 {
		t.Errorf("store holds %d entries, want 1", len(store.entries))
	}
}

func TestPipeline_Store_RedactionPrecedesIdentity(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(t, store, &fakeEmbedder{})

	res, err := p.Store(context.Background(), StoreRequest{
		Kind:  KindBug,
		Title: "Leaked key",
		Body:  "token sk-ABCDEFGHIJKLMNOPQRST0123 found",
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	entry := store.entries[res.ID]
	if strings.Contains(entry.Body, "sk-ABCDEFGHIJKLMNOPQRST0123") {
		t.Errorf("raw token persisted: %q", entry.Body)
	}
	if !strings.Contains(entry.Body, "[SECRET]") {
		t.Errorf("sentinel missing from persisted body: %q", entry.Body)
	}

	// Same record with a different secret value dedups to the same entry.
	dup, err := p.Store(context.Background(), StoreRequest{
		Kind:  KindBug,
		Title: "Leaked key",
		Body:  "token sk-ZZZZZZZZZZZZZZZZZZZZ9876 found",
	})
	if err != nil {
		t.Fatalf("Store with different secret: %v", err)
	}
	if dup.Created || dup.ID != res.ID {
		t.Errorf("differing secrets did not dedup: %+v vs first id %v", dup, res.ID)
	}
}

func TestPipeline_Store_DerivesResolved(t *testing.T) {
	tests := []struct {
		name string
		req  StoreRequest
		want bool
	}{
		{name: "solution kind", req: StoreRequest{Kind: KindSolution, Title: "fix"}, want: true},
		{name: "bug with resolution", req: StoreRequest{Kind: KindBug, Title: "b", Resolution: "bumped dep"}, want: true},
		{name: "bug with blank resolution", req: StoreRequest{Kind: KindBug, Title: "b2", Resolution: "   "}, want: false},
		{name: "plain doc", req: StoreRequest{Kind: KindDoc, Title: "d"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			p := newTestPipeline(t, store, &fakeEmbedder{})
			res, err := p.Store(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Store: %v", err)
			}
			if got := store.entries[res.ID].Resolved; got != tt.want {
				t.Errorf("Resolved = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPipeline_Store_UpsertsLinks(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(t, store, &fakeEmbedder{})
	related := uuid.New()

	res, err := p.Store(context.Background(), StoreRequest{
		Kind: KindBug, Title: "linked", RelatedIDs: []uuid.UUID{related},
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	want := Link{FromID: res.ID, ToID: related, Relation: RelationRelatesTo}
	if _, ok := store.links[want]; !ok {
		t.Errorf("link %+v not upserted; have %v", want, store.links)
	}
}

func TestPipeline_Store_PersistsEmbeddingsInChunkOrder(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(t, store, &fakeEmbedder{})

	res, err := p.Store(context.Background(), StoreRequest{
		Kind:  KindBug,
		Title: "long body",
		Body:  strings.Repeat("word ", 400), // 2000 chars → 3 chunks
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	rows := store.embeddings[res.ID]
	if len(rows) < 2 {
		t.Fatalf("got %d embedding rows, want several", len(rows))
	}
	for i, row := range rows {
		if row.ChunkIndex != i {
			t.Errorf("row %d has ChunkIndex %d", i, row.ChunkIndex)
		}
		if row.ChunkText == "" || row.Vector == nil {
			t.Errorf("row %d incomplete: %+v", i, row)
		}
	}
}

func TestPipeline_Store_NoTextNoEmbeddings(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	p := newTestPipeline(t, store, embedder)

	res, err := p.Store(context.Background(), StoreRequest{Kind: KindDoc, Title: "title only"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if embedder.calls != 0 {
		t.Errorf("embedder called %d times for empty text, want 0", embedder.calls)
	}
	if len(store.embeddings[res.ID]) != 0 {
		t.Error("embedding rows persisted for empty text")
	}
}

func TestPipeline_Store_EmbedFailureKeepsEntry(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{err: ErrEmbeddingProvider}
	p := newTestPipeline(t, store, embedder)

	res, err := p.Store(context.Background(), StoreRequest{
		Kind: KindBug, Title: "embed fails", Body: "some body text",
	})
	if !errors.Is(err, ErrEmbeddingProvider) {
		t.Fatalf("Store error = %v, want ErrEmbeddingProvider", err)
	}
	if !res.Created || res.ID == uuid.Nil {
		t.Errorf("result = %+v, want Created with a real id despite embed failure", res)
	}
	if _, ok := store.entries[res.ID]; !ok {
		t.Error("entry rolled back on embedding failure, want kept")
	}
	if len(store.embeddings[res.ID]) != 0 {
		t.Error("embedding rows present despite provider failure")
	}
}

func TestPipeline_Store_UniqueViolationIsDuplicateHit(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(t, store, &fakeEmbedder{})

	// Seed the winning writer, then make the dedup lookup miss once so
	// the pipeline walks into the insert and hits the uniqueness
	// constraint, exactly as a lost check-then-insert race would.
	winner, err := p.Store(context.Background(), StoreRequest{Kind: KindBug, Title: "racer", Body: "b"})
	if err != nil {
		t.Fatalf("seeding winner: %v", err)
	}
	store.missHashOnce = true

	res, err := p.Store(context.Background(), StoreRequest{Kind: KindBug, Title: "racer", Body: "b"})
	if err != nil {
		t.Fatalf("Store after conflict: %v", err)
	}
	if res.Created {
		t.Error("Created = true, want duplicate hit")
	}
	if res.ID != winner.ID || res.DuplicateOf != winner.ID {
		t.Errorf("result = %+v, want winner id %v", res, winner.ID)
	}
}
