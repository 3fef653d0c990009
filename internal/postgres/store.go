// Package postgres implements the knowledge persistence layer on
// PostgreSQL with pgvector.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/jasma-ai/recall/internal/knowledge"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint violation.
const pgUniqueViolation = "23505"

// entryCols renders the standard entries column list under the given
// table alias, in the order scanEntry consumes them.
func entryCols(alias string) string {
	cols := []string{
		"id", "kind", "title", "body", "stack_trace", "code",
		"repro_steps", "root_cause", "resolution", "severity", "tags",
		"project", "repo", "commit_hash", "branch", "os", "runtime",
		"language", "framework", "resolved", "content_hash", "created_at",
	}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// Store persists knowledge entries, their links and their chunk
// embeddings. It serves both the ingestion pipeline and the search
// engine.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store on the given pool. The pool's lifecycle is
// owned by the caller.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: pgx pool", knowledge.ErrUninitialized)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// FindByHash looks up an entry id by its content hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM entries WHERE content_hash = $1`, hash,
	).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return uuid.Nil, false, nil
	case err != nil:
		return uuid.Nil, false, fmt.Errorf("looking up content hash: %w", err)
	}
	return id, true, nil
}

// InsertEntry persists a new entry. A unique violation on content_hash
// means a concurrent writer won the check-then-insert race and is
// reported as knowledge.ErrHashConflict.
func (s *Store) InsertEntry(ctx context.Context, entry *knowledge.Entry) (uuid.UUID, error) {
	tags := entry.Tags
	if tags == nil {
		tags = []string{}
	}

	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO entries (
		    kind, title, body, stack_trace, code, repro_steps,
		    root_cause, resolution, severity, tags,
		    project, repo, commit_hash, branch, os, runtime, language, framework,
		    resolved, content_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10,
		         $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		 RETURNING id, created_at`,
		string(entry.Kind), entry.Title, entry.Body, entry.StackTrace, entry.Code, entry.ReproSteps,
		entry.RootCause, entry.Resolution, string(entry.Severity), tags,
		entry.Metadata.Project, entry.Metadata.Repo, entry.Metadata.Commit, entry.Metadata.Branch,
		entry.Metadata.OS, entry.Metadata.Runtime, entry.Metadata.Language, entry.Metadata.Framework,
		entry.Resolved, entry.ContentHash,
	).Scan(&id, &entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return uuid.Nil, fmt.Errorf("inserting entry: %w", knowledge.ErrHashConflict)
		}
		return uuid.Nil, fmt.Errorf("inserting entry: %w", err)
	}
	entry.ID = id
	return id, nil
}

// UpsertLinks inserts link rows in one batch, absorbing duplicates of
// the (from, to, relation) triple.
func (s *Store) UpsertLinks(ctx context.Context, links []knowledge.Link) error {
	if len(links) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, l := range links {
		batch.Queue(
			`INSERT INTO entry_links (from_id, to_id, relation)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (from_id, to_id, relation) DO NOTHING`,
			l.FromID, l.ToID, l.Relation,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range links {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting link: %w", err)
		}
	}
	return nil
}

// InsertEmbeddings persists one row per chunk in a single batch.
func (s *Store) InsertEmbeddings(ctx context.Context, entryID uuid.UUID, rows []knowledge.EmbeddingRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(
			`INSERT INTO entry_embeddings (entry_id, chunk_index, chunk_text, embedding)
			 VALUES ($1, $2, $3, $4)`,
			entryID, r.ChunkIndex, r.ChunkText, pgvector.NewVector(r.Vector),
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("inserting embedding: %w", err)
		}
	}
	return nil
}

// LexicalSearch runs full-text search over the weighted document,
// scoring candidates with ts_rank.
func (s *Store) LexicalSearch(ctx context.Context, query string, filters knowledge.SearchFilters, limit int) ([]knowledge.Candidate, error) {
	conds, args := filterConds(filters, "e", 2)
	args = append([]any{query}, args...)
	args = append(args, limit)

	where := ""
	if len(conds) > 0 {
		where = " AND " + strings.Join(conds, " AND ")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+entryCols("e")+`, ts_rank(e.tsv, q)::float8 AS score
		 FROM entries e, websearch_to_tsquery('english', $1) q
		 WHERE e.tsv @@ q`+where+`
		 ORDER BY score DESC, e.id
		 LIMIT $`+fmt.Sprint(len(args)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("lexical query: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// VectorSearch finds the entries whose best chunk is nearest to the
// query vector by cosine distance. Chunk rows are de-duplicated to the
// owning entry before the limit applies.
func (s *Store) VectorSearch(ctx context.Context, vector []float32, filters knowledge.SearchFilters, limit int) ([]knowledge.Candidate, error) {
	conds, args := filterConds(filters, "e", 2)
	args = append([]any{pgvector.NewVector(vector)}, args...)
	args = append(args, limit)

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+entryCols("e")+`, best.score
		 FROM (
		     SELECT DISTINCT ON (entry_id) entry_id,
		            (1 - (embedding <=> $1))::float8 AS score
		     FROM entry_embeddings
		     ORDER BY entry_id, embedding <=> $1
		 ) best
		 JOIN entries e ON e.id = best.entry_id`+where+`
		 ORDER BY best.score DESC, e.id
		 LIMIT $`+fmt.Sprint(len(args)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// GetEntry fetches a single entry with its links (both directions).
// Returns knowledge.ErrNotFound when no entry has the given id.
func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (*knowledge.Entry, []knowledge.Link, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+entryCols("e")+` FROM entries e WHERE e.id = $1`, id)

	entry, err := scanEntry(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil, fmt.Errorf("entry %s: %w", id, knowledge.ErrNotFound)
	case err != nil:
		return nil, nil, fmt.Errorf("fetching entry %s: %w", id, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT from_id, to_id, relation
		 FROM entry_links
		 WHERE from_id = $1 OR to_id = $1
		 ORDER BY relation, from_id, to_id`,
		id,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching links for %s: %w", id, err)
	}
	defer rows.Close()

	var links []knowledge.Link
	for rows.Next() {
		var l knowledge.Link
		if err := rows.Scan(&l.FromID, &l.ToID, &l.Relation); err != nil {
			return nil, nil, fmt.Errorf("scanning link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating links: %w", err)
	}

	return entry, links, nil
}

// CountEntries returns the number of stored entries matching filters.
// Zero-value filters count everything.
func (s *Store) CountEntries(ctx context.Context, filters knowledge.SearchFilters) (int64, error) {
	sql := `SELECT COUNT(*) FROM entries e`
	conds, args := filterConds(filters, "e", 1)
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}

	var count int64
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return count, nil
}

// scanEntry reads one entry from a row carrying the standard column set.
func scanEntry(row pgx.Row) (*knowledge.Entry, error) {
	e := &knowledge.Entry{}
	var kind string
	var severity *string
	if err := row.Scan(
		&e.ID, &kind, &e.Title, &e.Body, &e.StackTrace, &e.Code,
		&e.ReproSteps, &e.RootCause, &e.Resolution, &severity, &e.Tags,
		&e.Metadata.Project, &e.Metadata.Repo, &e.Metadata.Commit, &e.Metadata.Branch,
		&e.Metadata.OS, &e.Metadata.Runtime, &e.Metadata.Language, &e.Metadata.Framework,
		&e.Resolved, &e.ContentHash, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	e.Kind = knowledge.Kind(kind)
	if severity != nil {
		e.Severity = knowledge.Severity(*severity)
	}
	return e, nil
}

// scanCandidates reads candidates from rows carrying the standard
// column set plus a trailing score column.
func scanCandidates(rows pgx.Rows) ([]knowledge.Candidate, error) {
	var candidates []knowledge.Candidate
	for rows.Next() {
		var c knowledge.Candidate
		var kind string
		var severity *string
		if err := rows.Scan(
			&c.Entry.ID, &kind, &c.Entry.Title, &c.Entry.Body, &c.Entry.StackTrace, &c.Entry.Code,
			&c.Entry.ReproSteps, &c.Entry.RootCause, &c.Entry.Resolution, &severity, &c.Entry.Tags,
			&c.Entry.Metadata.Project, &c.Entry.Metadata.Repo, &c.Entry.Metadata.Commit, &c.Entry.Metadata.Branch,
			&c.Entry.Metadata.OS, &c.Entry.Metadata.Runtime, &c.Entry.Metadata.Language, &c.Entry.Metadata.Framework,
			&c.Entry.Resolved, &c.Entry.ContentHash, &c.Entry.CreatedAt,
			&c.NativeScore,
		); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		c.Entry.Kind = knowledge.Kind(kind)
		if severity != nil {
			c.Entry.Severity = knowledge.Severity(*severity)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidates: %w", err)
	}
	return candidates, nil
}
