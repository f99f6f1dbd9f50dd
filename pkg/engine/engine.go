// Package engine assembles the configured drivers into one running
// corpus engine and exposes its operations. Commands open an engine,
// call one operation, and close it.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/catalog"
	catinmemory "github.com/corpusd/corpusd/pkg/catalog/inmemory"
	catpostgres "github.com/corpusd/corpusd/pkg/catalog/postgres"
	catsqlite "github.com/corpusd/corpusd/pkg/catalog/sqlite"
	"github.com/corpusd/corpusd/pkg/chunk"
	"github.com/corpusd/corpusd/pkg/config"
	"github.com/corpusd/corpusd/pkg/content"
	contentfs "github.com/corpusd/corpusd/pkg/content/fs"
	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/embeddings"
	embeddingutils "github.com/corpusd/corpusd/pkg/embeddings/utils"
	"github.com/corpusd/corpusd/pkg/eventstream"
	eskafka "github.com/corpusd/corpusd/pkg/eventstream/kafka"
	esnop "github.com/corpusd/corpusd/pkg/eventstream/nop"
	"github.com/corpusd/corpusd/pkg/extract"
	"github.com/corpusd/corpusd/pkg/ingest"
	"github.com/corpusd/corpusd/pkg/llm"
	llmutils "github.com/corpusd/corpusd/pkg/llm/utils"
	"github.com/corpusd/corpusd/pkg/rag"
	"github.com/corpusd/corpusd/pkg/retrieval"
	"github.com/corpusd/corpusd/pkg/vector"
	vectorutils "github.com/corpusd/corpusd/pkg/vector/utils"
)

// Engine is an opened corpus engine.
type Engine struct {
	cfg    *config.Config
	dir    string
	logger *zap.Logger

	content     content.Store
	catalog     catalog.Catalog
	index       vector.Index
	embedder    *embeddings.Gateway
	events      eventstream.Publisher
	coordinator *ingest.Coordinator
	searcher    *retrieval.Searcher

	llmProvider llm.Provider
}

// Open builds the engine from config. dir is the resolved dotdir;
// relative storage defaults land under it.
func Open(cfg *config.Config, dir string, logger *zap.Logger) (*Engine, error) {
	e := &Engine{cfg: cfg, dir: dir, logger: logger}

	if err := e.open(); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) open() error {
	cfg := e.cfg
	ctx := context.Background()

	contentDir := cfg.Storage.ContentDir
	if contentDir == "" {
		contentDir = filepath.Join(e.dir, "blobs")
	}
	store, err := contentfs.NewStore(contentDir, e.logger)
	if err != nil {
		return fmt.Errorf("opening content store: %w", err)
	}
	e.content = store

	switch cfg.Storage.Catalog {
	case "", "sqlite":
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = filepath.Join(e.dir, "catalog.db")
		}
		e.catalog, err = catsqlite.NewDriver(ctx, path, e.logger)
	case "postgres":
		e.catalog, err = catpostgres.NewDriver(ctx, cfg.Storage.PostgresDSN, e.logger)
	case "memory":
		e.catalog = catinmemory.NewDriver()
	default:
		err = fmt.Errorf("unsupported catalog backend: %s", cfg.Storage.Catalog)
	}
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}

	target := cfg.VectorStore.Target
	if target == "" && cfg.VectorStore.Provider == "sqlite" {
		target = filepath.Join(e.dir, "vectors.db")
	}
	e.index, err = vectorutils.NewIndex(&vectorutils.NewIndexOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       target,
		Dimensions:   int(cfg.Embedding.Dimensions),
		Metric:       cfg.VectorStore.Metric,
		Logger:       e.logger,
	})
	if err != nil {
		return fmt.Errorf("opening vector index: %w", err)
	}

	provider, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
	})
	if err != nil {
		return fmt.Errorf("opening embedding provider: %w", err)
	}

	e.embedder, err = embeddings.NewGateway(provider, embeddings.GatewayConfig{
		Dimensions: int(cfg.Embedding.Dimensions),
		BatchSize:  int(cfg.Embedding.BatchSize),
		Workers:    int(cfg.Embedding.Workers),
	}, e.logger)
	if err != nil {
		return fmt.Errorf("wrapping embedding provider: %w", err)
	}

	switch cfg.Events.Provider {
	case "", "nop":
		e.events = esnop.NewPublisher()
	case "kafka":
		e.events, err = eskafka.NewPublisher(eskafka.Config{
			Brokers: strings.Split(cfg.Events.Brokers, ","),
			Topic:   cfg.Events.Topic,
		}, e.logger)
	default:
		err = fmt.Errorf("unsupported events provider: %s", cfg.Events.Provider)
	}
	if err != nil {
		return fmt.Errorf("opening event publisher: %w", err)
	}

	chunker, err := chunk.New(chunk.Config{
		Strategy: cfg.Ingest.ChunkStrategy,
		Size:     int(cfg.Ingest.ChunkSize),
		Overlap:  int(cfg.Ingest.ChunkOverlap),
	})
	if err != nil {
		return fmt.Errorf("building chunker: %w", err)
	}

	e.coordinator, err = ingest.NewCoordinator(ingest.Deps{
		Content:    e.content,
		Catalog:    e.catalog,
		Extractors: extract.NewRegistry(),
		Chunker:    chunker,
		Embedder:   e.embedder,
		Index:      e.index,
		Events:     e.events,
		Logger:     e.logger,
	})
	if err != nil {
		return fmt.Errorf("building ingestion coordinator: %w", err)
	}

	e.searcher, err = retrieval.NewSearcher(e.catalog, e.embedder, e.index, retrieval.Config{
		TopK:            int(cfg.Retrieval.TopK),
		MaxChunksPerDoc: int(cfg.Retrieval.MaxChunksPerDoc),
		Overfetch:       int(cfg.Retrieval.Overfetch),
		Timeout:         time.Duration(cfg.Retrieval.TimeoutSeconds) * time.Second,
	}, e.logger)
	if err != nil {
		return fmt.Errorf("building searcher: %w", err)
	}

	return nil
}

// Ingest runs the ingestion pipeline for one document.
func (e *Engine) Ingest(ctx context.Context, req ingest.Request) (ingest.Result, error) {
	return e.coordinator.Ingest(ctx, req)
}

// Delete removes a document and everything derived from it.
func (e *Engine) Delete(ctx context.Context, id uuid.UUID) error {
	return e.coordinator.Delete(ctx, id)
}

// List returns committed documents matching the filter.
func (e *Engine) List(ctx context.Context, filter catalog.Filter, page catalog.Page) ([]corpus.Document, error) {
	return e.catalog.ListDocuments(ctx, filter, page)
}

// Get returns one document by ID.
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (corpus.Document, error) {
	return e.catalog.GetDocument(ctx, id)
}

// UpdateMetadata applies a partial metadata update to a document.
func (e *Engine) UpdateMetadata(ctx context.Context, id uuid.UUID, update catalog.MetadataUpdate) (corpus.Document, error) {
	return e.catalog.UpdateMetadata(ctx, id, update)
}

// Search runs a retrieval query.
func (e *Engine) Search(ctx context.Context, q retrieval.Query) ([]corpus.SearchResult, error) {
	return e.searcher.Search(ctx, q)
}

// Chat answers a question grounded in the corpus. The completion
// provider is opened on first use so read-only commands never need
// LLM credentials.
func (e *Engine) Chat(ctx context.Context, req rag.Request) (corpus.Answer, error) {
	if e.llmProvider == nil {
		provider, err := llmutils.NewProvider(&llmutils.NewProviderOpts{
			ProviderType: e.cfg.LLM.Provider,
			TargetURL:    e.cfg.LLM.Target,
			Model:        e.cfg.LLM.Model,
		})
		if err != nil {
			return corpus.Answer{}, fmt.Errorf("opening llm provider: %w", err)
		}
		e.llmProvider = provider
	}

	answerer, err := rag.NewAnswerer(e.searcher, e.llmProvider, rag.Config{
		TopK:         int(e.cfg.Retrieval.TopK),
		SystemPrompt: e.cfg.LLM.SystemPrompt,
	}, e.logger)
	if err != nil {
		return corpus.Answer{}, err
	}

	return answerer.Answer(ctx, req)
}

// Repair runs a reconciliation sweep.
func (e *Engine) Repair(ctx context.Context) (ingest.RepairReport, error) {
	return e.coordinator.Repair(ctx)
}

// Status summarizes the engine's stores.
type Status struct {
	Documents int
	Chunks    int
	Vectors   int

	CatalogBackend string
	VectorBackend  string
	EmbeddingModel string
}

// Status reports corpus-wide counters.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	stats, err := e.catalog.Stats(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("reading catalog stats: %w", err)
	}

	vectors, err := e.index.Count(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("counting vectors: %w", err)
	}

	catalogBackend := e.cfg.Storage.Catalog
	if catalogBackend == "" {
		catalogBackend = "sqlite"
	}

	return Status{
		Documents:      stats.Documents,
		Chunks:         stats.Chunks,
		Vectors:        vectors,
		CatalogBackend: catalogBackend,
		VectorBackend:  e.cfg.VectorStore.Provider,
		EmbeddingModel: e.cfg.Embedding.Model,
	}, nil
}

// Close releases every held driver. Safe on a partially opened engine.
func (e *Engine) Close() {
	if e.llmProvider != nil {
		_ = e.llmProvider.Close()
	}
	if e.events != nil {
		_ = e.events.Close()
	}
	if e.embedder != nil {
		_ = e.embedder.Close()
	}
	if e.index != nil {
		_ = e.index.Close()
	}
	if e.catalog != nil {
		_ = e.catalog.Close()
	}
	if e.content != nil {
		_ = e.content.Close()
	}
}
