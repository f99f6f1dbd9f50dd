// Package exact provides an in-memory vector index with exact
// brute-force search. Contents do not survive restarts; a repair sweep
// rebuilds the index from the catalog.
package exact

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/vector"
)

// Ensure Index implements vector.Index
var _ vector.Index = (*Index)(nil)

// Index is a map-backed exact-search index.
type Index struct {
	dimensions int
	metric     string
	logger     *zap.Logger

	mu      sync.RWMutex
	vectors map[corpus.ChunkID][]float32
}

// Config holds configuration for the exact index.
type Config struct {
	// Dimensions is the required vector width.
	Dimensions int

	// Metric is MetricCosine or MetricDot. Defaults to cosine.
	Metric string
}

// NewIndex creates an empty exact index.
func NewIndex(cfg Config, logger *zap.Logger) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("index dimensions must be positive, got %d", cfg.Dimensions)
	}

	metric := cfg.Metric
	if metric == "" {
		metric = vector.MetricCosine
	}
	if metric != vector.MetricCosine && metric != vector.MetricDot {
		return nil, fmt.Errorf("unsupported similarity metric %q", metric)
	}

	return &Index{
		dimensions: cfg.Dimensions,
		metric:     metric,
		logger:     logger,
		vectors:    make(map[corpus.ChunkID][]float32),
	}, nil
}

// Insert stores entries. The whole batch is validated before anything
// is written, so a bad vector leaves the index untouched.
func (x *Index) Insert(_ context.Context, entries []vector.Entry) error {
	for _, e := range entries {
		if len(e.Embedding) != x.dimensions {
			return fmt.Errorf("chunk %s has %d-dimensional vector, index expects %d: %w",
				e.ID, len(e.Embedding), x.dimensions, corpus.ErrDimensionMismatch)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for _, e := range entries {
		vec := make([]float32, len(e.Embedding))
		copy(vec, e.Embedding)
		x.vectors[e.ID] = vec
	}

	return nil
}

// DeleteDocument removes every vector belonging to docID.
func (x *Index) DeleteDocument(_ context.Context, docID uuid.UUID) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for id := range x.vectors {
		if id.DocumentID == docID {
			delete(x.vectors, id)
		}
	}
	return nil
}

// DeleteRevision removes docID's vectors from revisions other than keep.
func (x *Index) DeleteRevision(_ context.Context, docID uuid.UUID, keep uuid.UUID) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for id := range x.vectors {
		if id.DocumentID == docID && id.Revision != keep {
			delete(x.vectors, id)
		}
	}
	return nil
}

func (x *Index) score(query, vec []float32) float32 {
	var dot, qn, vn float64
	for i := range query {
		dot += float64(query[i]) * float64(vec[i])
		qn += float64(query[i]) * float64(query[i])
		vn += float64(vec[i]) * float64(vec[i])
	}

	if x.metric == vector.MetricDot {
		return float32(dot)
	}

	denom := math.Sqrt(qn) * math.Sqrt(vn)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// Search scans the index and returns the k best matches.
func (x *Index) Search(_ context.Context, query []float32, k int, candidates []uuid.UUID) ([]vector.Match, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d: %w",
			len(query), x.dimensions, corpus.ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, nil
	}

	var allowed map[uuid.UUID]struct{}
	if candidates != nil {
		allowed = make(map[uuid.UUID]struct{}, len(candidates))
		for _, id := range candidates {
			allowed[id] = struct{}{}
		}
	}

	x.mu.RLock()
	matches := make([]vector.Match, 0, len(x.vectors))
	for id, vec := range x.vectors {
		if allowed != nil {
			if _, ok := allowed[id.DocumentID]; !ok {
				continue
			}
		}
		matches = append(matches, vector.Match{ID: id, Score: x.score(query, vec)})
	}
	x.mu.RUnlock()

	// Equal scores order by chunk identity so results are stable.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID.String() < matches[j].ID.String()
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// ListDocument returns the chunk IDs stored for docID.
func (x *Index) ListDocument(_ context.Context, docID uuid.UUID) ([]corpus.ChunkID, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var ids []corpus.ChunkID
	for id := range x.vectors {
		if id.DocumentID == docID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// DocumentIDs returns the distinct document IDs with stored vectors.
func (x *Index) DocumentIDs(_ context.Context) ([]uuid.UUID, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for id := range x.vectors {
		if _, ok := seen[id.DocumentID]; ok {
			continue
		}
		seen[id.DocumentID] = struct{}{}
		ids = append(ids, id.DocumentID)
	}
	return ids, nil
}

// Count returns the number of stored vectors.
func (x *Index) Count(_ context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors), nil
}

// Close releases the index.
func (x *Index) Close() error {
	return nil
}
