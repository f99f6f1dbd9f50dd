// Package chroma provides a Chroma-backed vector index implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for corpus embeddings.
	DefaultCollectionName = "corpusd"

	apiPrefix = "/api/v2/tenants/default_tenant/databases/default_database"
)

// Ensure Index implements vector.Index
var _ vector.Index = (*Index)(nil)

// Index implements vector.Index using Chroma's REST API.
type Index struct {
	baseURL        string
	collectionName string
	collectionID   string
	dimensions     int
	httpClient     *http.Client
	logger         *zap.Logger
}

// Config holds configuration for the Chroma index.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the required vector width.
	Dimensions int
}

// NewIndex creates a new Chroma vector index.
func NewIndex(c Config, logger *zap.Logger) (*Index, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("index dimensions must be positive, got %d", c.Dimensions)
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	x := &Index{
		baseURL:        c.URL,
		collectionName: collectionName,
		dimensions:     c.Dimensions,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	collectionID, err := x.getOrCreateCollection(context.Background())
	if err != nil {
		return nil, fmt.Errorf("getting or creating collection %q: %w", collectionName, err)
	}
	x.collectionID = collectionID

	logger.Info("connected to Chroma",
		zap.String("url", c.URL),
		zap.String("collection", collectionName),
		zap.String("collection_id", collectionID),
	)

	return x, nil
}

// post sends a JSON body to a collection endpoint and decodes the
// response into out when out is non-nil.
func (x *Index) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s%s/collections/%s/%s", x.baseURL, apiPrefix, x.collectionID, path)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chroma %s returned status %d: %s", path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (x *Index) getOrCreateCollection(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s%s/collections/%s", x.baseURL, apiPrefix, x.collectionName)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	// Collection doesn't exist, create it
	createURL := fmt.Sprintf("%s%s/collections", x.baseURL, apiPrefix)
	createBody := map[string]string{"name": x.collectionName}
	jsonBody, err := json.Marshal(createBody)
	if err != nil {
		return "", fmt.Errorf("marshaling create request: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, "POST", createURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = x.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending create request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create collection: status %d: %s", resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}

	return collection.ID, nil
}

// Insert upserts entries. Document and revision ride along as metadata
// so deletes can target them without listing chunk IDs.
func (x *Index) Insert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	embeddings := make([][]float32, len(entries))
	metadatas := make([]map[string]any, len(entries))

	for i, e := range entries {
		if len(e.Embedding) != x.dimensions {
			return fmt.Errorf("chunk %s has %d-dimensional vector, index expects %d: %w",
				e.ID, len(e.Embedding), x.dimensions, corpus.ErrDimensionMismatch)
		}
		ids[i] = e.ID.String()
		embeddings[i] = e.Embedding
		metadatas[i] = map[string]any{
			"document_id": e.ID.DocumentID.String(),
			"revision":    e.ID.Revision.String(),
			"seq":         e.ID.Seq,
		}
	}

	err := x.post(ctx, "upsert", chromaAddRequest{
		IDs:        ids,
		Embeddings: embeddings,
		Metadatas:  metadatas,
	}, nil)
	if err != nil {
		return err
	}

	x.logger.Debug("added vectors to chroma",
		zap.Int("count", len(entries)),
	)
	return nil
}

// DeleteDocument removes every vector belonging to docID.
func (x *Index) DeleteDocument(ctx context.Context, docID uuid.UUID) error {
	return x.post(ctx, "delete", chromaDeleteRequest{
		Where: map[string]any{"document_id": docID.String()},
	}, nil)
}

// DeleteRevision removes docID's vectors from revisions other than keep.
func (x *Index) DeleteRevision(ctx context.Context, docID uuid.UUID, keep uuid.UUID) error {
	return x.post(ctx, "delete", chromaDeleteRequest{
		Where: map[string]any{
			"$and": []map[string]any{
				{"document_id": docID.String()},
				{"revision": map[string]any{"$ne": keep.String()}},
			},
		},
	}, nil)
}

// Search runs a KNN query, filtered to candidate documents when given.
func (x *Index) Search(ctx context.Context, query []float32, k int, candidates []uuid.UUID) ([]vector.Match, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d: %w",
			len(query), x.dimensions, corpus.ErrDimensionMismatch)
	}
	if k <= 0 || (candidates != nil && len(candidates) == 0) {
		return nil, nil
	}

	reqBody := chromaQueryRequest{
		QueryEmbeddings: [][]float32{query},
		NResults:        k,
		Include:         []string{"distances"},
	}

	if candidates != nil {
		ids := make([]string, len(candidates))
		for i, id := range candidates {
			ids[i] = id.String()
		}
		reqBody.Where = map[string]any{"document_id": map[string]any{"$in": ids}}
	}

	var queryResp chromaQueryResponse
	if err := x.post(ctx, "query", reqBody, &queryResp); err != nil {
		return nil, err
	}

	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return nil, nil
	}

	ids := queryResp.IDs[0]
	distances := queryResp.Distances[0]

	matches := make([]vector.Match, 0, len(ids))
	for i, raw := range ids {
		id, err := corpus.ParseChunkID(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing stored chunk id %q: %w", raw, err)
		}

		match := vector.Match{ID: id}
		if i < len(distances) {
			match.Score = 1.0 - distances[i]
		}
		matches = append(matches, match)
	}

	x.logger.Debug("queried chroma",
		zap.Int("results", len(matches)),
	)
	return matches, nil
}

const getPageSize = 1000

// listIDs pages through the collection's get endpoint and returns the
// stored chunk IDs matching the filter.
func (x *Index) listIDs(ctx context.Context, where map[string]any) ([]corpus.ChunkID, error) {
	var ids []corpus.ChunkID

	for offset := 0; ; offset += getPageSize {
		var resp chromaGetResponse
		err := x.post(ctx, "get", chromaGetRequest{
			Where:   where,
			Limit:   getPageSize,
			Offset:  offset,
			Include: []string{},
		}, &resp)
		if err != nil {
			return nil, err
		}
		if len(resp.IDs) == 0 {
			break
		}

		for _, raw := range resp.IDs {
			id, err := corpus.ParseChunkID(raw)
			if err != nil {
				return nil, fmt.Errorf("parsing stored chunk id %q: %w", raw, err)
			}
			ids = append(ids, id)
		}

		if len(resp.IDs) < getPageSize {
			break
		}
	}

	return ids, nil
}

// ListDocument returns the chunk IDs stored for docID.
func (x *Index) ListDocument(ctx context.Context, docID uuid.UUID) ([]corpus.ChunkID, error) {
	return x.listIDs(ctx, map[string]any{"document_id": docID.String()})
}

// DocumentIDs returns the distinct document IDs with stored vectors.
func (x *Index) DocumentIDs(ctx context.Context) ([]uuid.UUID, error) {
	all, err := x.listIDs(ctx, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, id := range all {
		if _, ok := seen[id.DocumentID]; ok {
			continue
		}
		seen[id.DocumentID] = struct{}{}
		ids = append(ids, id.DocumentID)
	}
	return ids, nil
}

// Count returns the number of stored vectors.
func (x *Index) Count(ctx context.Context) (int, error) {
	url := fmt.Sprintf("%s%s/collections/%s/count", x.baseURL, apiPrefix, x.collectionID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating count request: %w", err)
	}

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending count request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("chroma count returned status %d: %s", resp.StatusCode, string(body))
	}

	var n int
	if err := json.NewDecoder(resp.Body).Decode(&n); err != nil {
		return 0, fmt.Errorf("decoding count response: %w", err)
	}
	return n, nil
}

// Close releases resources held by the index.
func (x *Index) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}
