package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent corpusd configuration stored as
// config.toml in the .corpusd/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	Ingest      IngestConfig      `toml:"ingest"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Events      EventsConfig      `toml:"events"`
}

// StorageConfig holds content store and metadata catalog settings.
type StorageConfig struct {
	// ContentDir is the directory holding raw document blobs.
	// Defaults to <dotdir>/blobs.
	ContentDir string `toml:"content_dir,omitempty"`

	// Catalog selects the metadata catalog backend: "sqlite",
	// "postgres", or "memory".
	Catalog string `toml:"catalog,omitempty"`

	// SQLitePath is the catalog database path for the sqlite backend.
	// Defaults to <dotdir>/catalog.db.
	SQLitePath string `toml:"sqlite_path,omitempty"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// VectorStoreConfig holds vector index settings.
type VectorStoreConfig struct {
	// Provider selects the index backend: "sqlite" (embedded
	// sqlite-vec), "memory" (in-process exact k-NN), or "chroma"
	// (external server).
	Provider string `toml:"provider,omitempty"`

	// Target is the sqlite database path or the Chroma server URL,
	// depending on provider. Defaults to <dotdir>/vectors.db.
	Target string `toml:"target,omitempty"`

	// Metric is the distance metric: "cosine" or "dot".
	Metric string `toml:"metric,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`

	// BatchSize is the maximum number of texts sent to the provider in
	// one request.
	BatchSize uint `toml:"batch_size,omitempty"`

	// Workers bounds the number of concurrent embedding batches during
	// ingestion of a large document.
	Workers uint `toml:"workers,omitempty"`
}

// LLMConfig holds completion provider settings for grounded chat.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`

	// SystemPrompt overrides the built-in grounded-answer prompt.
	// A per-question --system flag overrides both.
	SystemPrompt string `toml:"system_prompt,omitempty"`
}

// IngestConfig holds extraction and chunking settings.
type IngestConfig struct {
	// ChunkStrategy selects the chunker: "fixed", "recursive", or
	// "sentence".
	ChunkStrategy string `toml:"chunk_strategy,omitempty"`

	// ChunkSize is the target chunk size in runes.
	ChunkSize uint `toml:"chunk_size,omitempty"`

	// ChunkOverlap is the maximum overlap between adjacent chunks in
	// runes.
	ChunkOverlap uint `toml:"chunk_overlap,omitempty"`
}

// RetrievalConfig holds hybrid query settings.
type RetrievalConfig struct {
	TopK            uint `toml:"top_k,omitempty"`
	MaxChunksPerDoc uint `toml:"max_chunks_per_doc,omitempty"`

	// Overfetch multiplies TopK when querying the index so per-document
	// deduplication still has enough candidates.
	Overfetch uint `toml:"overfetch,omitempty"`

	TimeoutSeconds uint `toml:"timeout_seconds,omitempty"`
}

// EventsConfig holds lifecycle event publishing settings.
type EventsConfig struct {
	// Provider selects the publisher backend: "nop" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma-separated list of Kafka broker addresses.
	Brokers string `toml:"brokers,omitempty"`

	// Topic is the Kafka topic for document lifecycle events.
	Topic string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.content_dir": {
		get: func(c *Config) string { return c.Storage.ContentDir },
		set: func(c *Config, v string) error { c.Storage.ContentDir = v; return nil },
	},
	"storage.catalog": {
		get: func(c *Config) string { return c.Storage.Catalog },
		set: func(c *Config, v string) error { c.Storage.Catalog = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.metric": {
		get: func(c *Config) string { return c.VectorStore.Metric },
		set: func(c *Config, v string) error { c.VectorStore.Metric = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string { return formatUint(c.Embedding.Dimensions) },
		set: func(c *Config, v string) error { return parseUint(v, "embedding.dimensions", &c.Embedding.Dimensions) },
	},
	"embedding.batch_size": {
		get: func(c *Config) string { return formatUint(c.Embedding.BatchSize) },
		set: func(c *Config, v string) error { return parseUint(v, "embedding.batch_size", &c.Embedding.BatchSize) },
	},
	"embedding.workers": {
		get: func(c *Config) string { return formatUint(c.Embedding.Workers) },
		set: func(c *Config, v string) error { return parseUint(v, "embedding.workers", &c.Embedding.Workers) },
	},
	"llm.provider": {
		get: func(c *Config) string { return c.LLM.Provider },
		set: func(c *Config, v string) error { c.LLM.Provider = v; return nil },
	},
	"llm.target": {
		get: func(c *Config) string { return c.LLM.Target },
		set: func(c *Config, v string) error { c.LLM.Target = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"llm.system_prompt": {
		get: func(c *Config) string { return c.LLM.SystemPrompt },
		set: func(c *Config, v string) error { c.LLM.SystemPrompt = v; return nil },
	},
	"ingest.chunk_strategy": {
		get: func(c *Config) string { return c.Ingest.ChunkStrategy },
		set: func(c *Config, v string) error { c.Ingest.ChunkStrategy = v; return nil },
	},
	"ingest.chunk_size": {
		get: func(c *Config) string { return formatUint(c.Ingest.ChunkSize) },
		set: func(c *Config, v string) error { return parseUint(v, "ingest.chunk_size", &c.Ingest.ChunkSize) },
	},
	"ingest.chunk_overlap": {
		get: func(c *Config) string { return formatUint(c.Ingest.ChunkOverlap) },
		set: func(c *Config, v string) error { return parseUint(v, "ingest.chunk_overlap", &c.Ingest.ChunkOverlap) },
	},
	"retrieval.top_k": {
		get: func(c *Config) string { return formatUint(c.Retrieval.TopK) },
		set: func(c *Config, v string) error { return parseUint(v, "retrieval.top_k", &c.Retrieval.TopK) },
	},
	"retrieval.max_chunks_per_doc": {
		get: func(c *Config) string { return formatUint(c.Retrieval.MaxChunksPerDoc) },
		set: func(c *Config, v string) error {
			return parseUint(v, "retrieval.max_chunks_per_doc", &c.Retrieval.MaxChunksPerDoc)
		},
	},
	"retrieval.overfetch": {
		get: func(c *Config) string { return formatUint(c.Retrieval.Overfetch) },
		set: func(c *Config, v string) error { return parseUint(v, "retrieval.overfetch", &c.Retrieval.Overfetch) },
	},
	"retrieval.timeout_seconds": {
		get: func(c *Config) string { return formatUint(c.Retrieval.TimeoutSeconds) },
		set: func(c *Config, v string) error {
			return parseUint(v, "retrieval.timeout_seconds", &c.Retrieval.TimeoutSeconds)
		},
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

func formatUint(v uint) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(v), 10)
}

func parseUint(v, key string, target *uint) error {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = uint(n)
	return nil
}
