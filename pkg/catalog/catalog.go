// Package catalog provides the relational metadata catalog for the
// corpus: document records, their chunk records, and durable ingestion
// markers.
//
// The catalog is authoritative for visibility. A document is queryable
// exactly when its row exists with StatusIndexed; the ingestion
// coordinator writes that row last, in the same transaction as the
// chunk records and the completion marker, so no reader ever observes a
// partially ingested document.
package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/corpusd/corpusd/pkg/corpus"
)

// Filter narrows document queries by declared metadata. Zero-value
// fields are ignored.
type Filter struct {
	Author  string
	DocType corpus.DocType

	// PublishedFrom / PublishedTo bound the publication date,
	// inclusive. Dates are "YYYY" or "YYYY-MM-DD" strings and compare
	// lexicographically, so a year bound matches all dates in the year.
	PublishedFrom string
	PublishedTo   string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Author == "" && f.DocType == "" && f.PublishedFrom == "" && f.PublishedTo == ""
}

// Page controls pagination and ordering of document listings.
type Page struct {
	Offset int
	Limit  int

	// SortBy is one of: id, title, author, publication_date, doc_type,
	// date_added. Defaults to date_added.
	SortBy string

	// SortOrder is "asc" or "desc". Defaults to desc.
	SortOrder string
}

// MetadataUpdate is a partial update of caller-declared metadata.
// Nil fields are left unchanged.
type MetadataUpdate struct {
	Title           *string
	Author          *string
	PublicationDate *string
}

// IngestionRecord is the durable completion marker for one ingestion
// attempt, keyed by document and content hash. Its presence with
// Committed set makes retried ingestions idempotent: the retry finds
// the marker and returns the already-committed document instead of
// indexing twice.
type IngestionRecord struct {
	DocumentID  uuid.UUID
	Revision    uuid.UUID
	ContentHash string
	Committed   bool
	UpdatedAt   time.Time
}

// Commit is the transactional unit the ingestion coordinator hands the
// catalog at the end of a successful pipeline: the document row, its
// chunk rows, and the completion marker, applied atomically. Any chunk
// rows from a prior revision of the same document are removed in the
// same transaction, which is what makes a re-ingest an atomic swap from
// the querying client's perspective.
type Commit struct {
	Document corpus.Document
	Chunks   []corpus.Chunk
	Record   IngestionRecord
}

// Catalog handles document metadata, chunk records, and ingestion
// markers in a relational backend.
type Catalog interface {
	// CommitDocument atomically applies a Commit: upserts the document
	// row, swaps in the new revision's chunk rows, and marks the
	// ingestion record committed.
	CommitDocument(ctx context.Context, commit Commit) error

	// GetDocument returns the document row for id, or corpus.ErrNotFound.
	GetDocument(ctx context.Context, id uuid.UUID) (corpus.Document, error)

	// ListDocuments returns document rows matching the filter, ordered
	// and paginated per page.
	ListDocuments(ctx context.Context, filter Filter, page Page) ([]corpus.Document, error)

	// MatchDocumentIDs resolves the filter to the set of matching
	// document IDs, used as the vector search pre-filter.
	MatchDocumentIDs(ctx context.Context, filter Filter) ([]uuid.UUID, error)

	// UpdateMetadata applies a partial metadata update and returns the
	// updated row, or corpus.ErrNotFound.
	UpdateMetadata(ctx context.Context, id uuid.UUID, update MetadataUpdate) (corpus.Document, error)

	// DeleteDocument removes the document row, its chunk rows, and its
	// ingestion records. Returns corpus.ErrNotFound if no row exists.
	DeleteDocument(ctx context.Context, id uuid.UUID) error

	// GetChunk returns one chunk record, or corpus.ErrNotFound if the
	// chunk's document or revision is gone (benign under concurrent
	// delete or re-ingest).
	GetChunk(ctx context.Context, id corpus.ChunkID) (corpus.Chunk, error)

	// ListChunks returns all chunk records of one document revision in
	// sequence order.
	ListChunks(ctx context.Context, docID, revision uuid.UUID) ([]corpus.Chunk, error)

	// LookupIngestion finds a committed ingestion record by content
	// hash, or corpus.ErrNotFound.
	LookupIngestion(ctx context.Context, contentHash string) (IngestionRecord, error)

	// Stats returns corpus-wide counters.
	Stats(ctx context.Context) (Stats, error)

	// Close releases backend resources.
	Close() error
}

// Stats are corpus-wide counters for status reporting and repair.
type Stats struct {
	Documents int
	Chunks    int
}

// SortColumns is the allowlist of ListDocuments sort keys shared by the
// SQL backends.
var SortColumns = map[string]bool{
	"id":               true,
	"title":            true,
	"author":           true,
	"publication_date": true,
	"doc_type":         true,
	"date_added":       true,
}
