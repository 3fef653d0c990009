// Package knowledge implements the core of recall: the ingestion
// pipeline and the hybrid retrieval engine for structured knowledge
// records (bugs, solutions, docs).
//
// Ingestion composes redaction, content-hash deduplication, chunking and
// embedding generation in front of the persistence collaborator. Retrieval
// fans out a lexical full-text query and a vector similarity query, then
// fuses the candidate lists with reciprocal rank fusion.
//
// The package depends on collaborators through consumer-defined
// interfaces (Store, SearchStore, TextEmbedder); the PostgreSQL
// implementation lives in internal/postgres.
package knowledge
