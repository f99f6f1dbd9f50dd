// Package vector provides interfaces and implementations for chunk
// embedding storage and similarity search.
package vector

import (
	"context"

	"github.com/google/uuid"

	"github.com/corpusd/corpusd/pkg/corpus"
)

// Similarity metrics supported by the drivers.
const (
	MetricCosine = "cosine"
	MetricDot    = "dot"
)

// Entry is one chunk embedding keyed by its full chunk ID.
type Entry struct {
	ID        corpus.ChunkID
	Embedding []float32
}

// Match is a search hit with its similarity score (higher = more
// similar).
type Match struct {
	ID    corpus.ChunkID
	Score float32
}

// Index handles storage and retrieval of chunk embeddings.
type Index interface {
	// Insert stores entries. Re-inserting an existing chunk ID
	// replaces its vector. A document's entries become visible to
	// Search together, never partially. Vectors whose width differs
	// from the index dimensionality fail with
	// corpus.ErrDimensionMismatch and nothing is written.
	Insert(ctx context.Context, entries []Entry) error

	// DeleteDocument removes every vector belonging to docID, across
	// all revisions. Deleting an absent document is not an error.
	DeleteDocument(ctx context.Context, docID uuid.UUID) error

	// DeleteRevision removes docID's vectors whose revision differs
	// from keep. Used to retire a superseded revision after a
	// re-ingest commits.
	DeleteRevision(ctx context.Context, docID uuid.UUID, keep uuid.UUID) error

	// Search returns the k nearest entries to query, best first.
	// A nil candidates slice means the whole index; a non-nil slice
	// restricts hits to those document IDs.
	Search(ctx context.Context, query []float32, k int, candidates []uuid.UUID) ([]Match, error)

	// ListDocument returns the chunk IDs stored for docID across all
	// revisions, in no particular order. An absent document yields an
	// empty slice.
	ListDocument(ctx context.Context, docID uuid.UUID) ([]corpus.ChunkID, error)

	// DocumentIDs returns the distinct document IDs that have stored
	// vectors. Reconciliation uses this to find vectors whose document
	// no longer exists.
	DocumentIDs(ctx context.Context) ([]uuid.UUID, error)

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the index.
	Close() error
}
