package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/corpusd/corpusd/pkg/corpus"
)

const (
	defaultBatchSize  = 32
	defaultWorkers    = 3
	defaultMaxRetries = 3
	baseRetryDelay    = 500 * time.Millisecond
)

// GatewayConfig tunes the gateway around a provider.
type GatewayConfig struct {
	// Dimensions is the expected vector width. Provider output of any
	// other width fails with corpus.ErrDimensionMismatch.
	Dimensions int

	// BatchSize caps the number of texts per provider call.
	BatchSize int

	// Workers bounds concurrent provider calls.
	Workers int

	// MaxRetries is the number of retries for transient provider
	// failures. Quota errors are not retried.
	MaxRetries int
}

// Gateway fronts an Embedder with batching, bounded parallelism,
// retries for transient failures, and a content-hash cache so
// unchanged text is never re-embedded within a process.
type Gateway struct {
	provider Embedder
	cfg      GatewayConfig
	logger   *zap.Logger

	mu    sync.RWMutex
	cache map[string][]float32
}

// NewGateway wraps provider with the gateway policies.
func NewGateway(provider Embedder, cfg GatewayConfig, logger *zap.Logger) (*Gateway, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	return &Gateway{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		cache:    make(map[string][]float32),
	}, nil
}

// Dimensions returns the configured vector width.
func (g *Gateway) Dimensions() int {
	return g.cfg.Dimensions
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed returns one vector per input text, in input order. Cache hits
// are served locally; misses are batched out to the provider.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	// Resolve cache hits and dedupe misses.
	keys := make([]string, len(texts))
	missIndex := make(map[string][]int)
	var missKeys []string
	var missTexts []string

	g.mu.RLock()
	for i, text := range texts {
		key := hashText(text)
		keys[i] = key
		if vec, ok := g.cache[key]; ok {
			out[i] = vec
			continue
		}
		if _, seen := missIndex[key]; !seen {
			missKeys = append(missKeys, key)
			missTexts = append(missTexts, text)
		}
		missIndex[key] = append(missIndex[key], i)
	}
	g.mu.RUnlock()

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors := make([][]float32, len(missTexts))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.cfg.Workers)

	for start := 0; start < len(missTexts); start += g.cfg.BatchSize {
		end := start + g.cfg.BatchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		start, end := start, end

		grp.Go(func() error {
			batch, err := g.embedBatch(gctx, missTexts[start:end])
			if err != nil {
				return err
			}
			copy(vectors[start:], batch)
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	for i, key := range missKeys {
		g.cache[key] = vectors[i]
		for _, pos := range missIndex[key] {
			out[pos] = vectors[i]
		}
	}
	g.mu.Unlock()

	return out, nil
}

// embedBatch calls the provider with retries and validates dimensions.
func (g *Gateway) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	var err error

	for attempt := 0; ; attempt++ {
		vectors, err = g.provider.Embed(ctx, texts)
		if err == nil {
			break
		}
		if !errors.Is(err, corpus.ErrTransientProvider) || attempt >= g.cfg.MaxRetries {
			return nil, err
		}

		delay := baseRetryDelay << attempt
		g.logger.Warn("embedding provider failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	for _, vec := range vectors {
		if len(vec) != g.cfg.Dimensions {
			return nil, fmt.Errorf("provider returned %d-dimensional vector, expected %d: %w",
				len(vec), g.cfg.Dimensions, corpus.ErrDimensionMismatch)
		}
	}

	return vectors, nil
}

// Close releases the underlying provider.
func (g *Gateway) Close() error {
	return g.provider.Close()
}

// Ensure Gateway implements Embedder
var _ Embedder = (*Gateway)(nil)
