package config

const (
	defaultCatalog = "sqlite"

	defaultVectorProvider = "sqlite"
	defaultVectorMetric   = "cosine"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768
	defaultEmbeddingBatchSize  = 32
	defaultEmbeddingWorkers    = 3

	defaultLLMProvider = "ollama"
	defaultLLMTarget   = "http://localhost:11434"
	defaultLLMModel    = "llama3.2"

	defaultChunkStrategy = "recursive"
	defaultChunkSize     = 1000
	defaultChunkOverlap  = 200

	defaultTopK            = 5
	defaultMaxChunksPerDoc = 2
	defaultOverfetch       = 4
	defaultTimeoutSeconds  = 30

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "corpusd.documents"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values. Paths left
// empty here (content dir, sqlite paths) are resolved against the
// .corpusd/ directory at engine start.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Catalog: defaultCatalog,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
			Metric:   defaultVectorMetric,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
			BatchSize:  defaultEmbeddingBatchSize,
			Workers:    defaultEmbeddingWorkers,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Target:   defaultLLMTarget,
			Model:    defaultLLMModel,
		},
		Ingest: IngestConfig{
			ChunkStrategy: defaultChunkStrategy,
			ChunkSize:     defaultChunkSize,
			ChunkOverlap:  defaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{
			TopK:            defaultTopK,
			MaxChunksPerDoc: defaultMaxChunksPerDoc,
			Overfetch:       defaultOverfetch,
			TimeoutSeconds:  defaultTimeoutSeconds,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
