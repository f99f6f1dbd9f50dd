// Package corpus defines the domain types shared across the corpusd
// engine: documents, chunks, anchors, and search results.
//
// A Document is the unit of ingestion and deletion. Its metadata row in
// the catalog is the single source of truth for visibility: a document
// exists for queries exactly when a committed row with
// StatusIndexed is present. Chunks are immutable fragments of one
// revision of a document; they are created during ingestion and
// destroyed with their revision.
package corpus

import (
	"time"

	"github.com/google/uuid"
)

// DocType identifies the format of an ingested document.
type DocType string

const (
	DocTypePDF  DocType = "pdf"
	DocTypeDOCX DocType = "docx"
	DocTypeHTML DocType = "html"
	DocTypeTXT  DocType = "txt"
	DocTypeMD   DocType = "md"
)

// Valid reports whether the doc type is one of the supported formats.
func (t DocType) Valid() bool {
	switch t {
	case DocTypePDF, DocTypeDOCX, DocTypeHTML, DocTypeTXT, DocTypeMD:
		return true
	}
	return false
}

// IngestionStatus tracks where a document is in its ingestion lifecycle.
type IngestionStatus string

const (
	// StatusPending marks an ingestion attempt that has started but not
	// committed. Pending documents are never visible to search.
	StatusPending IngestionStatus = "pending"

	// StatusIndexed marks a fully committed document: exactly ChunkCount
	// vectors exist in the index for its current revision.
	StatusIndexed IngestionStatus = "indexed"

	// StatusFailed marks an ingestion attempt whose compensations ran.
	StatusFailed IngestionStatus = "failed"
)

// Document is the catalog's metadata record for one ingested document.
type Document struct {
	// ID uniquely identifies the document across all revisions.
	ID uuid.UUID `json:"id"`

	// Revision identifies the currently committed content version.
	// Re-ingesting a document mints a new revision; the old revision's
	// chunks and vectors are deleted only after the new one commits.
	Revision uuid.UUID `json:"revision"`

	Title           string  `json:"title"`
	Author          string  `json:"author,omitempty"`
	PublicationDate string  `json:"publication_date,omitempty"` // YYYY or YYYY-MM-DD
	DocType         DocType `json:"doc_type"`

	// DateAdded is when the document was first committed.
	DateAdded time.Time `json:"date_added"`

	// StoragePointer is the content store key holding the raw bytes of
	// the current revision. It is a weak reference: deleting the
	// document deletes the blob too.
	StoragePointer string `json:"storage_pointer"`

	// ContentHash is the hex SHA-256 of the raw bytes, used for the
	// idempotency check on retried ingestions.
	ContentHash string `json:"content_hash"`

	// ChunkCount is the number of chunks (and vectors) the current
	// revision committed. Together with StoragePointer it is sufficient
	// to reconstruct which vectors belong to this document.
	ChunkCount int `json:"chunk_count"`

	IngestionStatus IngestionStatus `json:"ingestion_status"`
}

// Metadata is the caller-declared metadata accompanying ingested bytes.
type Metadata struct {
	Title           string  `json:"title"`
	Author          string  `json:"author,omitempty"`
	PublicationDate string  `json:"publication_date,omitempty"`
	DocType         DocType `json:"doc_type"`
}
