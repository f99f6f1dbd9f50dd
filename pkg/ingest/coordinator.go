// Package ingest runs the ingestion pipeline as a compensated saga:
// store content, extract, chunk, embed, index, then commit the catalog
// row last. The catalog row is the single visibility source of truth,
// so a failure at any earlier step leaves nothing a query can see, and
// compensations clean up whatever the failed attempt wrote.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/catalog"
	"github.com/corpusd/corpusd/pkg/chunk"
	"github.com/corpusd/corpusd/pkg/content"
	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/embeddings"
	"github.com/corpusd/corpusd/pkg/eventstream"
	"github.com/corpusd/corpusd/pkg/extract"
	"github.com/corpusd/corpusd/pkg/vector"
)

// Coordinator orchestrates ingestion and deletion across the content
// store, catalog, embedder, and vector index.
type Coordinator struct {
	content    content.Store
	catalog    catalog.Catalog
	extractors *extract.Registry
	chunker    chunk.Chunker
	embedder   embeddings.Embedder
	index      vector.Index
	events     eventstream.Publisher
	logger     *zap.Logger

	locks *keyedLocks
	now   func() time.Time
}

// Deps holds the collaborators a Coordinator needs. All fields are
// required.
type Deps struct {
	Content    content.Store
	Catalog    catalog.Catalog
	Extractors *extract.Registry
	Chunker    chunk.Chunker
	Embedder   embeddings.Embedder
	Index      vector.Index
	Events     eventstream.Publisher
	Logger     *zap.Logger
}

// NewCoordinator creates a coordinator from its dependencies.
func NewCoordinator(d Deps) (*Coordinator, error) {
	switch {
	case d.Content == nil:
		return nil, fmt.Errorf("content store is required")
	case d.Catalog == nil:
		return nil, fmt.Errorf("catalog is required")
	case d.Extractors == nil:
		return nil, fmt.Errorf("extractor registry is required")
	case d.Chunker == nil:
		return nil, fmt.Errorf("chunker is required")
	case d.Embedder == nil:
		return nil, fmt.Errorf("embedder is required")
	case d.Index == nil:
		return nil, fmt.Errorf("vector index is required")
	case d.Events == nil:
		return nil, fmt.Errorf("event publisher is required")
	case d.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	}

	return &Coordinator{
		content:    d.Content,
		catalog:    d.Catalog,
		extractors: d.Extractors,
		chunker:    d.Chunker,
		embedder:   d.Embedder,
		index:      d.Index,
		events:     d.Events,
		logger:     d.Logger,
		locks:      newKeyedLocks(),
		now:        time.Now,
	}, nil
}

// Request is one ingestion request.
type Request struct {
	// DocumentID, when set, re-ingests under an existing identity and
	// the new revision atomically replaces the old one. Zero mints a
	// new document ID.
	DocumentID uuid.UUID

	// Data is the raw document bytes.
	Data []byte

	// Metadata is the caller-declared document metadata.
	Metadata corpus.Metadata
}

// Result is the outcome of an ingestion.
type Result struct {
	Document corpus.Document

	// AlreadyIngested is true when the content hash matched a prior
	// committed ingestion and no work was done.
	AlreadyIngested bool
}

// declaredMetadataMatches reports whether the request declares the same
// metadata the committed document carries.
func declaredMetadataMatches(doc corpus.Document, md corpus.Metadata) bool {
	return doc.Title == md.Title &&
		doc.Author == md.Author &&
		doc.PublicationDate == md.PublicationDate &&
		doc.DocType == md.DocType
}

func (c *Coordinator) validate(req Request) error {
	if len(req.Data) == 0 {
		return fmt.Errorf("%w: document data is empty", corpus.ErrValidation)
	}
	if req.Metadata.Title == "" {
		return fmt.Errorf("%w: title is required", corpus.ErrValidation)
	}
	if !req.Metadata.DocType.Valid() {
		return fmt.Errorf("%w: unknown doc type %q", corpus.ErrValidation, req.Metadata.DocType)
	}
	return nil
}

// Ingest runs the full pipeline for one document. Operations on the
// same document ID are serialized; different documents proceed in
// parallel.
func (c *Coordinator) Ingest(ctx context.Context, req Request) (Result, error) {
	if err := c.validate(req); err != nil {
		return Result{}, err
	}

	sum := sha256.Sum256(req.Data)
	contentHash := hex.EncodeToString(sum[:])

	// A retry of an already committed ingestion returns the existing
	// document instead of duplicating it. A retry carries the same
	// declared metadata; same bytes under different metadata is a new
	// ingestion.
	if rec, err := c.catalog.LookupIngestion(ctx, contentHash); err == nil {
		if req.DocumentID == uuid.Nil || req.DocumentID == rec.DocumentID {
			doc, err := c.catalog.GetDocument(ctx, rec.DocumentID)
			if err != nil {
				return Result{}, fmt.Errorf("loading document for committed ingestion: %w", err)
			}
			if declaredMetadataMatches(doc, req.Metadata) {
				c.logger.Info("ingest skipped, content already committed",
					zap.String("document_id", rec.DocumentID.String()),
					zap.String("content_hash", contentHash),
				)
				return Result{Document: doc, AlreadyIngested: true}, nil
			}
		}
	} else if !errors.Is(err, corpus.ErrNotFound) {
		return Result{}, fmt.Errorf("checking ingestion records: %w", err)
	}

	docID := req.DocumentID
	isReingest := docID != uuid.Nil

	var prior corpus.Document
	if isReingest {
		var err error
		prior, err = c.catalog.GetDocument(ctx, docID)
		if err != nil {
			return Result{}, fmt.Errorf("loading document for re-ingest: %w", err)
		}
	} else {
		docID = uuid.New()
	}

	unlock := c.locks.lock(docID)
	defer unlock()

	revision := uuid.New()
	pointer := docID.String() + "/" + revision.String()

	log := c.logger.With(
		zap.String("document_id", docID.String()),
		zap.String("revision", revision.String()),
	)

	// Step 1: durable content first. Everything later can be redone
	// from these bytes.
	if err := c.content.Put(ctx, pointer, req.Data); err != nil {
		return Result{}, fmt.Errorf("storing content: %w", err)
	}

	failed := func(stage string, err error) (Result, error) {
		c.compensate(docID, revision, pointer, isReingest, prior.Revision)
		return Result{}, fmt.Errorf("%s: %w", stage, err)
	}

	// Step 2: extract.
	extracted, err := c.extractors.Extract(ctx, req.Metadata.DocType, req.Data)
	if err != nil {
		return failed("extracting document", err)
	}

	// Step 3: chunk.
	pieces, err := c.chunker.Chunk(extracted.Text)
	if err != nil {
		return failed("chunking document", err)
	}
	if len(pieces) == 0 {
		return failed("chunking document", fmt.Errorf("%w: no chunks produced", corpus.ErrExtraction))
	}

	chunks := make([]corpus.Chunk, len(pieces))
	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		chunks[i] = corpus.Chunk{
			ID: corpus.ChunkID{DocumentID: docID, Revision: revision, Seq: i},
			Anchor: corpus.Anchor{
				Start: piece.Start,
				End:   piece.End,
				Page:  extracted.PageAt(piece.Start),
			},
			Text: piece.Text,
		}
		texts[i] = piece.Text
	}

	// Step 4: embed.
	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return failed("embedding chunks", err)
	}

	// Step 5: index. The old revision's vectors stay live until the
	// commit lands.
	entries := make([]vector.Entry, len(chunks))
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		entries[i] = vector.Entry{ID: chunks[i].ID, Embedding: vectors[i]}
	}
	if err := c.index.Insert(ctx, entries); err != nil {
		return failed("indexing vectors", err)
	}

	doc := corpus.Document{
		ID:              docID,
		Revision:        revision,
		Title:           req.Metadata.Title,
		Author:          req.Metadata.Author,
		PublicationDate: req.Metadata.PublicationDate,
		DocType:         req.Metadata.DocType,
		DateAdded:       c.now().UTC(),
		StoragePointer:  pointer,
		ContentHash:     contentHash,
		ChunkCount:      len(chunks),
		IngestionStatus: corpus.StatusIndexed,
	}
	if isReingest {
		doc.DateAdded = prior.DateAdded
	}

	// Step 6: commit. This single transaction is what makes the
	// document (or its new revision) visible.
	err = c.catalog.CommitDocument(ctx, catalog.Commit{
		Document: doc,
		Chunks:   chunks,
		Record: catalog.IngestionRecord{
			DocumentID:  docID,
			Revision:    revision,
			ContentHash: contentHash,
			Committed:   true,
			UpdatedAt:   c.now().UTC(),
		},
	})
	if err != nil {
		return failed("committing document", err)
	}

	// Post-commit cleanup of the superseded revision. Failures here
	// leave orphans that the repair sweep reclaims.
	if isReingest {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := c.index.DeleteRevision(cleanupCtx, docID, revision); err != nil {
			log.Warn("could not retire old revision vectors", zap.Error(err))
		}
		if prior.StoragePointer != "" && prior.StoragePointer != pointer {
			if err := c.content.Delete(cleanupCtx, prior.StoragePointer); err != nil {
				log.Warn("could not delete old revision content", zap.Error(err))
			}
		}
	}

	c.publishIndexed(ctx, doc)

	log.Info("document ingested",
		zap.String("title", doc.Title),
		zap.Int("chunks", doc.ChunkCount),
	)

	return Result{Document: doc}, nil
}

// compensate undoes the partial writes of a failed attempt.
func (c *Coordinator) compensate(docID, revision uuid.UUID, pointer string, isReingest bool, priorRevision uuid.UUID) {
	// Detached context: compensation still runs when the request
	// context is already canceled.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if isReingest {
		// Keep the committed revision's vectors, drop the new ones.
		if err := c.index.DeleteRevision(ctx, docID, priorRevision); err != nil {
			c.logger.Warn("compensation: could not remove new revision vectors",
				zap.String("document_id", docID.String()),
				zap.Error(err),
			)
		}
	} else {
		if err := c.index.DeleteDocument(ctx, docID); err != nil {
			c.logger.Warn("compensation: could not remove vectors",
				zap.String("document_id", docID.String()),
				zap.Error(err),
			)
		}
	}

	if err := c.content.Delete(ctx, pointer); err != nil {
		c.logger.Warn("compensation: could not delete content",
			zap.String("pointer", pointer),
			zap.Error(err),
		)
	}

	c.logger.Info("ingestion rolled back",
		zap.String("document_id", docID.String()),
		zap.String("revision", revision.String()),
	)
}

// Delete removes a document in reverse ingestion order: the catalog
// row goes first so the document disappears from queries immediately,
// then vectors, then the content blob.
func (c *Coordinator) Delete(ctx context.Context, docID uuid.UUID) error {
	unlock := c.locks.lock(docID)
	defer unlock()

	doc, err := c.catalog.GetDocument(ctx, docID)
	if err != nil {
		return err
	}

	if err := c.catalog.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("deleting catalog row: %w", err)
	}

	cleanupCtx := context.WithoutCancel(ctx)
	if err := c.index.DeleteDocument(cleanupCtx, docID); err != nil {
		return fmt.Errorf("deleting vectors for %s: %w", docID, err)
	}

	if err := c.content.Delete(cleanupCtx, doc.StoragePointer); err != nil {
		return fmt.Errorf("deleting content for %s: %w", docID, err)
	}

	c.publishDeleted(ctx, doc)

	c.logger.Info("document deleted",
		zap.String("document_id", docID.String()),
		zap.String("title", doc.Title),
	)

	return nil
}

// Events are best effort: a broker outage never fails the operation
// that triggered the event.
func (c *Coordinator) publishIndexed(ctx context.Context, doc corpus.Document) {
	event := eventstream.NewDocumentEvent(eventstream.EventTypeDocumentIndexed)
	event.DocumentID = doc.ID
	event.Revision = doc.Revision
	event.Title = doc.Title
	event.DocType = string(doc.DocType)
	event.ContentHash = doc.ContentHash
	event.ChunkCount = doc.ChunkCount

	if err := c.events.PublishDocument(context.WithoutCancel(ctx), &event); err != nil {
		c.logger.Warn("could not publish indexed event",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
	}
}

func (c *Coordinator) publishDeleted(ctx context.Context, doc corpus.Document) {
	event := eventstream.NewDocumentEvent(eventstream.EventTypeDocumentDeleted)
	event.DocumentID = doc.ID
	event.Revision = doc.Revision
	event.Title = doc.Title

	if err := c.events.PublishDocument(context.WithoutCancel(ctx), &event); err != nil {
		c.logger.Warn("could not publish deleted event",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
	}
}
