// Package eventstream defines transport-neutral document lifecycle
// events and the publisher interface backends implement.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIndexed is emitted after a document commits.
	EventTypeDocumentIndexed = "corpusd.document.indexed"

	// EventTypeDocumentDeleted is emitted after a document is removed.
	EventTypeDocumentDeleted = "corpusd.document.deleted"
)

// DocumentEvent is a transport-neutral document lifecycle event.
type DocumentEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	DocumentID  uuid.UUID `json:"document_id"`
	Revision    uuid.UUID `json:"revision,omitempty"`
	Title       string    `json:"title,omitempty"`
	DocType     string    `json:"doc_type,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	ChunkCount  int       `json:"chunk_count,omitempty"`
}

// NewDocumentEvent stamps a fresh event envelope of the given type.
func NewDocumentEvent(eventType string) DocumentEvent {
	return DocumentEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
	}
}
