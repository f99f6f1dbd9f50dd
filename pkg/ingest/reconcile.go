package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/catalog"
	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/vector"
)

const repairPageSize = 200

// RepairReport summarizes one reconciliation sweep.
type RepairReport struct {
	// DocumentsChecked is the number of committed documents swept.
	DocumentsChecked int

	// ChunksReindexed is the number of chunk vectors re-embedded and
	// re-inserted into the index.
	ChunksReindexed int

	// OrphanVectorsRemoved is the number of index vectors dropped
	// because no committed document claims them.
	OrphanVectorsRemoved int

	// OrphanBlobsRemoved is the number of content blobs deleted because
	// no document row references them.
	OrphanBlobsRemoved int

	// MissingContent lists documents whose content blob is gone. Their
	// catalog rows and vectors are intact, but re-extraction is no
	// longer possible.
	MissingContent []uuid.UUID
}

// Repair sweeps every committed document and restores the invariant
// that the index holds exactly the current revision's vectors. Chunk
// text lives in the catalog, so vectors can be rebuilt without the
// original file; this is also how a non-persistent index is repopulated
// after a restart.
//
// After the per-document sweep it garbage-collects strays left by
// interrupted deletes: index vectors whose document has no committed
// catalog row, and content blobs no document references.
func (c *Coordinator) Repair(ctx context.Context) (RepairReport, error) {
	var report RepairReport

	committed := make(map[uuid.UUID]bool)
	referenced := make(map[string]bool)

	for offset := 0; ; offset += repairPageSize {
		docs, err := c.catalog.ListDocuments(ctx, catalog.Filter{}, catalog.Page{
			Offset:    offset,
			Limit:     repairPageSize,
			SortBy:    "date_added",
			SortOrder: "asc",
		})
		if err != nil {
			return report, fmt.Errorf("listing documents: %w", err)
		}
		if len(docs) == 0 {
			break
		}

		for _, doc := range docs {
			committed[doc.ID] = true
			referenced[doc.StoragePointer] = true

			reindexed, err := c.repairDocument(ctx, doc)
			if err != nil {
				if errors.Is(err, corpus.ErrNotFound) {
					report.MissingContent = append(report.MissingContent, doc.ID)
					continue
				}
				return report, fmt.Errorf("repairing document %s: %w", doc.ID, err)
			}
			report.DocumentsChecked++
			report.ChunksReindexed += reindexed
		}

		if len(docs) < repairPageSize {
			break
		}
	}

	orphanVectors, err := c.collectOrphanVectors(ctx, committed)
	if err != nil {
		return report, err
	}
	report.OrphanVectorsRemoved = orphanVectors

	orphanBlobs, err := c.collectOrphanBlobs(ctx, referenced)
	if err != nil {
		return report, err
	}
	report.OrphanBlobsRemoved = orphanBlobs

	c.logger.Info("repair sweep finished",
		zap.Int("documents", report.DocumentsChecked),
		zap.Int("chunks_reindexed", report.ChunksReindexed),
		zap.Int("orphan_vectors_removed", report.OrphanVectorsRemoved),
		zap.Int("orphan_blobs_removed", report.OrphanBlobsRemoved),
		zap.Int("missing_content", len(report.MissingContent)),
	)

	return report, nil
}

func (c *Coordinator) repairDocument(ctx context.Context, doc corpus.Document) (int, error) {
	unlock := c.locks.lock(doc.ID)
	defer unlock()

	// The blob is only verified, not read back: chunks carry the text.
	if _, err := c.content.Get(ctx, doc.StoragePointer); err != nil {
		return 0, err
	}

	chunks, err := c.catalog.ListChunks(ctx, doc.ID, doc.Revision)
	if err != nil {
		return 0, fmt.Errorf("listing chunks: %w", err)
	}
	if len(chunks) != doc.ChunkCount {
		return 0, fmt.Errorf("%w: document %s has %d chunk rows, expected %d",
			corpus.ErrConsistency, doc.ID, len(chunks), doc.ChunkCount)
	}

	indexed, err := c.index.ListDocument(ctx, doc.ID)
	if err != nil {
		return 0, fmt.Errorf("listing indexed chunks: %w", err)
	}
	present := make(map[string]bool, len(indexed))
	staleRevisions := 0
	for _, id := range indexed {
		if id.Revision == doc.Revision {
			present[id.String()] = true
		} else {
			staleRevisions++
		}
	}

	// Re-embed only the chunks whose vectors are actually gone.
	var missing []corpus.Chunk
	for _, ch := range chunks {
		if !present[ch.ID.String()] {
			missing = append(missing, ch)
		}
	}

	if len(missing) > 0 {
		c.logger.Warn("consistency violation: reindexing lost vectors",
			zap.String("document_id", doc.ID.String()),
			zap.Int("missing_vectors", len(missing)),
		)

		texts := make([]string, len(missing))
		for i, ch := range missing {
			texts[i] = ch.Text
		}
		vectors, err := c.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("re-embedding chunks: %w", err)
		}

		entries := make([]vector.Entry, len(missing))
		for i, ch := range missing {
			entries[i] = vector.Entry{ID: ch.ID, Embedding: vectors[i]}
		}
		if err := c.index.Insert(ctx, entries); err != nil {
			return 0, fmt.Errorf("re-inserting vectors: %w", err)
		}
	}

	// Clear vectors from superseded revisions while we hold the lock.
	if staleRevisions > 0 {
		c.logger.Warn("consistency violation: clearing stale revision vectors",
			zap.String("document_id", doc.ID.String()),
			zap.Int("stale_vectors", staleRevisions),
		)
		if err := c.index.DeleteRevision(ctx, doc.ID, doc.Revision); err != nil {
			return 0, fmt.Errorf("clearing stale revisions: %w", err)
		}
	}

	return len(missing), nil
}

// collectOrphanVectors drops every indexed document that has no
// committed catalog row, typically debris from a delete interrupted
// between the catalog write and the index write.
func (c *Coordinator) collectOrphanVectors(ctx context.Context, committed map[uuid.UUID]bool) (int, error) {
	docIDs, err := c.index.DocumentIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing indexed documents: %w", err)
	}

	removed := 0
	for _, docID := range docIDs {
		if committed[docID] {
			continue
		}
		if doc, err := c.catalog.GetDocument(ctx, docID); err == nil {
			if doc.IngestionStatus == corpus.StatusIndexed {
				continue
			}
		} else if !errors.Is(err, corpus.ErrNotFound) {
			return removed, fmt.Errorf("checking document %s: %w", docID, err)
		}

		unlock := c.locks.lock(docID)
		ids, err := c.index.ListDocument(ctx, docID)
		if err != nil {
			unlock()
			return removed, fmt.Errorf("listing orphan vectors for %s: %w", docID, err)
		}
		if err := c.index.DeleteDocument(ctx, docID); err != nil {
			unlock()
			return removed, fmt.Errorf("removing orphan vectors for %s: %w", docID, err)
		}
		unlock()

		removed += len(ids)
		c.logger.Warn("consistency violation: removed orphan vectors",
			zap.String("document_id", docID.String()),
			zap.Int("vectors", len(ids)),
		)
	}

	return removed, nil
}

// collectOrphanBlobs deletes stored blobs no document row references.
func (c *Coordinator) collectOrphanBlobs(ctx context.Context, referenced map[string]bool) (int, error) {
	keys, err := c.content.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing content blobs: %w", err)
	}

	removed := 0
	for _, key := range keys {
		if referenced[key] {
			continue
		}
		if err := c.content.Delete(ctx, key); err != nil && !errors.Is(err, corpus.ErrNotFound) {
			return removed, fmt.Errorf("removing orphan blob %s: %w", key, err)
		}
		removed++
		c.logger.Warn("consistency violation: removed orphan blob",
			zap.String("key", key),
		)
	}

	return removed, nil
}
