// Package inmemory provides an in-memory catalog for tests and
// ephemeral runs.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/corpusd/corpusd/pkg/catalog"
	"github.com/corpusd/corpusd/pkg/corpus"
)

// Ensure Driver implements catalog.Catalog
var _ catalog.Catalog = (*Driver)(nil)

// Driver is a map-backed catalog guarded by a RWMutex.
type Driver struct {
	mu         sync.RWMutex
	documents  map[uuid.UUID]corpus.Document
	chunks     map[corpus.ChunkID]corpus.Chunk
	ingestions map[string]catalog.IngestionRecord // keyed by docID+hash
}

// NewDriver creates an empty in-memory catalog.
func NewDriver() *Driver {
	return &Driver{
		documents:  make(map[uuid.UUID]corpus.Document),
		chunks:     make(map[corpus.ChunkID]corpus.Chunk),
		ingestions: make(map[string]catalog.IngestionRecord),
	}
}

func ingestionKey(docID uuid.UUID, hash string) string {
	return docID.String() + ":" + hash
}

// CommitDocument stores the document, swaps its chunk set, and records
// the ingestion, all under one lock acquisition.
func (d *Driver) CommitDocument(_ context.Context, commit catalog.Commit) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc := commit.Document
	d.documents[doc.ID] = doc

	for id := range d.chunks {
		if id.DocumentID == doc.ID && id.Revision != doc.Revision {
			delete(d.chunks, id)
		}
	}
	for _, chunk := range commit.Chunks {
		stored := chunk
		stored.Embedding = nil
		d.chunks[chunk.ID] = stored
	}

	rec := commit.Record
	d.ingestions[ingestionKey(rec.DocumentID, rec.ContentHash)] = rec

	return nil
}

// GetDocument returns the document for id.
func (d *Driver) GetDocument(_ context.Context, id uuid.UUID) (corpus.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.documents[id]
	if !ok {
		return corpus.Document{}, fmt.Errorf("document %s: %w", id, corpus.ErrNotFound)
	}
	return doc, nil
}

func matches(doc corpus.Document, filter catalog.Filter) bool {
	if doc.IngestionStatus != corpus.StatusIndexed {
		return false
	}
	if filter.Author != "" && doc.Author != filter.Author {
		return false
	}
	if filter.DocType != "" && doc.DocType != filter.DocType {
		return false
	}
	if filter.PublishedFrom != "" && doc.PublicationDate < filter.PublishedFrom {
		return false
	}
	if filter.PublishedTo != "" {
		to := filter.PublishedTo
		if len(to) == 4 {
			to += "-99"
		}
		if doc.PublicationDate == "" || doc.PublicationDate > to {
			return false
		}
	}
	return true
}

// ListDocuments returns committed documents matching the filter.
func (d *Driver) ListDocuments(_ context.Context, filter catalog.Filter, page catalog.Page) ([]corpus.Document, error) {
	d.mu.RLock()
	var docs []corpus.Document
	for _, doc := range d.documents {
		if matches(doc, filter) {
			docs = append(docs, doc)
		}
	}
	d.mu.RUnlock()

	sortBy := page.SortBy
	if !catalog.SortColumns[sortBy] {
		sortBy = "date_added"
	}
	asc := strings.EqualFold(page.SortOrder, "asc")

	sort.Slice(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		var cmp int
		switch sortBy {
		case "id":
			cmp = strings.Compare(a.ID.String(), b.ID.String())
		case "title":
			cmp = strings.Compare(a.Title, b.Title)
		case "author":
			cmp = strings.Compare(a.Author, b.Author)
		case "publication_date":
			cmp = strings.Compare(a.PublicationDate, b.PublicationDate)
		case "doc_type":
			cmp = strings.Compare(string(a.DocType), string(b.DocType))
		default:
			cmp = a.DateAdded.Compare(b.DateAdded)
		}
		if cmp == 0 {
			// Tie-break on ID so pagination never repeats or drops rows.
			cmp = strings.Compare(a.ID.String(), b.ID.String())
		}
		if asc {
			return cmp < 0
		}
		return cmp > 0
	})

	offset := page.Offset
	if offset > len(docs) {
		offset = len(docs)
	}
	docs = docs[offset:]

	limit := page.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit < len(docs) {
		docs = docs[:limit]
	}

	return docs, nil
}

// MatchDocumentIDs resolves a filter to the set of matching document IDs.
func (d *Driver) MatchDocumentIDs(_ context.Context, filter catalog.Filter) ([]uuid.UUID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var ids []uuid.UUID
	for id, doc := range d.documents {
		if matches(doc, filter) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// UpdateMetadata applies a partial metadata update.
func (d *Driver) UpdateMetadata(_ context.Context, id uuid.UUID, update catalog.MetadataUpdate) (corpus.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, ok := d.documents[id]
	if !ok {
		return corpus.Document{}, fmt.Errorf("document %s: %w", id, corpus.ErrNotFound)
	}

	if update.Title != nil {
		doc.Title = *update.Title
	}
	if update.Author != nil {
		doc.Author = *update.Author
	}
	if update.PublicationDate != nil {
		doc.PublicationDate = *update.PublicationDate
	}

	d.documents[id] = doc
	return doc, nil
}

// DeleteDocument removes the document and all dependent records.
func (d *Driver) DeleteDocument(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.documents[id]; !ok {
		return fmt.Errorf("document %s: %w", id, corpus.ErrNotFound)
	}
	delete(d.documents, id)

	for chunkID := range d.chunks {
		if chunkID.DocumentID == id {
			delete(d.chunks, chunkID)
		}
	}
	for key, rec := range d.ingestions {
		if rec.DocumentID == id {
			delete(d.ingestions, key)
		}
	}

	return nil
}

// GetChunk returns one chunk by its full ID.
func (d *Driver) GetChunk(_ context.Context, id corpus.ChunkID) (corpus.Chunk, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	chunk, ok := d.chunks[id]
	if !ok {
		return corpus.Chunk{}, fmt.Errorf("chunk %s: %w", id, corpus.ErrNotFound)
	}
	return chunk, nil
}

// ListChunks returns all chunks of a document revision in sequence order.
func (d *Driver) ListChunks(_ context.Context, docID, revision uuid.UUID) ([]corpus.Chunk, error) {
	d.mu.RLock()
	var chunks []corpus.Chunk
	for id, chunk := range d.chunks {
		if id.DocumentID == docID && id.Revision == revision {
			chunks = append(chunks, chunk)
		}
	}
	d.mu.RUnlock()

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ID.Seq < chunks[j].ID.Seq
	})

	return chunks, nil
}

// LookupIngestion finds a committed ingestion record by content hash.
func (d *Driver) LookupIngestion(_ context.Context, contentHash string) (catalog.IngestionRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, rec := range d.ingestions {
		if rec.ContentHash == contentHash && rec.Committed {
			return rec, nil
		}
	}
	return catalog.IngestionRecord{}, fmt.Errorf("ingestion of %s: %w", contentHash, corpus.ErrNotFound)
}

// Stats returns corpus-wide counters.
func (d *Driver) Stats(_ context.Context) (catalog.Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return catalog.Stats{
		Documents: len(d.documents),
		Chunks:    len(d.chunks),
	}, nil
}

// Close is a no-op for the in-memory catalog.
func (d *Driver) Close() error {
	return nil
}
