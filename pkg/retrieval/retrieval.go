// Package retrieval turns a natural-language query into ranked,
// cited chunk results: metadata pre-filter, vector search with
// overfetch, then per-document dedup and deterministic ordering.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/catalog"
	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/embeddings"
	"github.com/corpusd/corpusd/pkg/vector"
)

// Config tunes the searcher.
type Config struct {
	// TopK is the default number of results returned.
	TopK int

	// MaxChunksPerDoc caps how many chunks one document contributes.
	MaxChunksPerDoc int

	// Overfetch multiplies the index k so dedup and staleness
	// filtering still leave TopK results.
	Overfetch int

	// Timeout bounds one search end to end.
	Timeout time.Duration
}

// Searcher runs retrieval queries against the catalog and index.
type Searcher struct {
	catalog  catalog.Catalog
	embedder embeddings.Embedder
	index    vector.Index
	cfg      Config
	logger   *zap.Logger
}

// NewSearcher creates a searcher.
func NewSearcher(cat catalog.Catalog, embedder embeddings.Embedder, index vector.Index, cfg Config, logger *zap.Logger) (*Searcher, error) {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxChunksPerDoc <= 0 {
		cfg.MaxChunksPerDoc = 2
	}
	if cfg.Overfetch <= 1 {
		cfg.Overfetch = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Searcher{
		catalog:  cat,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Query is one retrieval request.
type Query struct {
	// Text is the natural-language query.
	Text string

	// Filter restricts results by document metadata.
	Filter catalog.Filter

	// TopK overrides the configured default when positive.
	TopK int
}

// Search returns the top results for a query, best first. Ties are
// broken by recency, then by chunk identity, so identical queries
// always return identical orderings.
func (s *Searcher) Search(ctx context.Context, q Query) ([]corpus.SearchResult, error) {
	if q.Text == "" {
		return nil, fmt.Errorf("%w: query text is empty", corpus.ErrValidation)
	}

	topK := q.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	results, err := s.search(ctx, q, topK)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: after %s", corpus.ErrRetrievalTimeout, s.cfg.Timeout)
		}
		return nil, err
	}
	return results, nil
}

func (s *Searcher) search(ctx context.Context, q Query, topK int) ([]corpus.SearchResult, error) {
	// Metadata filters resolve to candidate document IDs before the
	// vector search, so filtered-out documents never consume slots.
	var candidates []uuid.UUID
	if !q.Filter.IsZero() {
		var err error
		candidates, err = s.catalog.MatchDocumentIDs(ctx, q.Filter)
		if err != nil {
			return nil, fmt.Errorf("resolving metadata filter: %w", err)
		}
		if len(candidates) == 0 {
			return nil, nil
		}
	}

	queryVectors, err := s.embedder.Embed(ctx, []string{q.Text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := s.index.Search(ctx, queryVectors[0], topK*s.cfg.Overfetch, candidates)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	docs := make(map[uuid.UUID]corpus.Document)
	perDoc := make(map[uuid.UUID]int)

	var results []corpus.SearchResult
	for _, match := range matches {
		doc, ok := docs[match.ID.DocumentID]
		if !ok {
			doc, err = s.catalog.GetDocument(ctx, match.ID.DocumentID)
			if errors.Is(err, corpus.ErrNotFound) {
				// Vector outlived its document; repair will reclaim it.
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("loading document %s: %w", match.ID.DocumentID, err)
			}
			docs[match.ID.DocumentID] = doc
		}

		// Vectors from superseded revisions never surface.
		if doc.Revision != match.ID.Revision {
			continue
		}

		if perDoc[doc.ID] >= s.cfg.MaxChunksPerDoc {
			continue
		}

		chunk, err := s.catalog.GetChunk(ctx, match.ID)
		if errors.Is(err, corpus.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading chunk %s: %w", match.ID, err)
		}

		perDoc[doc.ID]++
		results = append(results, corpus.SearchResult{
			ChunkID:    match.ID,
			DocumentID: doc.ID,
			Score:      match.Score,
			Document:   doc,
			Anchor:     chunk.Anchor,
			Snippet:    chunk.Text,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		// Equal scores: earlier chunk first, then newer document.
		if a.ChunkID.Seq != b.ChunkID.Seq {
			return a.ChunkID.Seq < b.ChunkID.Seq
		}
		if !a.Document.DateAdded.Equal(b.Document.DateAdded) {
			return a.Document.DateAdded.After(b.Document.DateAdded)
		}
		return a.ChunkID.String() < b.ChunkID.String()
	})

	if topK < len(results) {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	s.logger.Debug("search finished",
		zap.String("query", q.Text),
		zap.Int("matches", len(matches)),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// ResolveChunk fetches the chunk behind a citation. A chunk ID whose
// revision no longer matches the document's committed revision fails
// closed with corpus.ErrNotFound rather than serving stale text.
func (s *Searcher) ResolveChunk(ctx context.Context, id corpus.ChunkID) (corpus.Chunk, corpus.Document, error) {
	doc, err := s.catalog.GetDocument(ctx, id.DocumentID)
	if err != nil {
		return corpus.Chunk{}, corpus.Document{}, err
	}
	if doc.Revision != id.Revision {
		return corpus.Chunk{}, corpus.Document{}, fmt.Errorf(
			"chunk %s refers to a superseded revision: %w", id, corpus.ErrNotFound)
	}

	chunk, err := s.catalog.GetChunk(ctx, id)
	if err != nil {
		return corpus.Chunk{}, corpus.Document{}, err
	}
	return chunk, doc, nil
}
