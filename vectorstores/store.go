package vectorstores

import (
	"context"
	"fmt"
	"sort"

	"github.com/ragworks/rag/models"
)

// Record is one stored vector with its chunk metadata.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Match is one query hit, scored by similarity.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Store is the uniform contract over vector database backends. A store is
// bound to one index at construction time.
//
// Upsert is idempotent: re-upserting an id overwrites, never duplicates.
// Query returns at most topK matches ordered by descending similarity, ties
// broken by ascending id. Delete removes every chunk matching the metadata
// filter and reports the count; zero matches is a success.
type Store interface {
	Upsert(ctx context.Context, records []Record) (int, error)
	Query(ctx context.Context, vector []float32, topK int, filter map[string]string, excludeFields []string) ([]Match, error)
	Delete(ctx context.Context, filter map[string]string) (int, error)
}

// Error kinds. Only ConnectionFailure is worth retrying.
type ErrorKind string

const (
	KindConnectionFailure ErrorKind = "connection_failure"
	KindAuthFailure       ErrorKind = "auth_failure"
	KindDimensionMismatch ErrorKind = "dimension_mismatch"
	KindIndexNotFound     ErrorKind = "index_not_found"
)

// Error is a vector store failure classified by kind.
type Error struct {
	Backend string
	Kind    ErrorKind
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("vector store %s: %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry with backoff.
func (e *Error) Retryable() bool { return e.Kind == KindConnectionFailure }

func storeErr(backend string, kind ErrorKind, err error) *Error {
	return &Error{Backend: backend, Kind: kind, Err: err}
}

// Supported backends.
const (
	TypeChroma   = "chroma"
	TypeQdrant   = "qdrant"
	TypePinecone = "pinecone"
	TypeMemory   = "memory"
)

// New builds the store selected by db, bound to indexName. The index is
// created with the encoder's dimensionality when it does not exist; an
// existing index with a different dimensionality is a fatal error here, not
// a per-record failure later. A non-positive dimensions binds to the index
// as-is without checks, which is what the delete path (no encoder in its
// payload) needs.
func New(ctx context.Context, db models.VectorDatabase, indexName string, dimensions int) (Store, error) {
	if err := db.Validate(); err != nil {
		return nil, err
	}
	if indexName == "" {
		return nil, &models.ConfigError{Field: "index_name", Reason: "must not be empty"}
	}

	switch db.Type {
	case TypeChroma:
		return NewChroma(ctx, db.Config, indexName, dimensions)
	case TypeQdrant:
		return NewQdrant(ctx, db.Config, indexName, dimensions)
	case TypePinecone:
		return NewPinecone(ctx, db.Config, indexName, dimensions)
	case TypeMemory:
		return sharedMemory(indexName, dimensions)
	default:
		return nil, &models.ConfigError{
			Field:  "vector_database.type",
			Reason: fmt.Sprintf("unknown backend %q", db.Type),
		}
	}
}

// sortMatches orders by descending score; equal scores order by ascending id
// so results are deterministic.
func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
}

// pruneFields drops the requested metadata keys from a match's metadata.
func pruneFields(metadata map[string]string, excludeFields []string) map[string]string {
	if len(excludeFields) == 0 || len(metadata) == 0 {
		return metadata
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	for _, f := range excludeFields {
		delete(out, f)
	}
	return out
}
