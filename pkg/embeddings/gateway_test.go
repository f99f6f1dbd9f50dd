package embeddings_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/embeddings"
	testutils "github.com/corpusd/corpusd/pkg/utils/test"
)

// flakyEmbedder fails with failErr for the first failures calls, then
// delegates to the inner embedder.
type flakyEmbedder struct {
	inner    *testutils.MockEmbedder
	failErr  error
	failures int

	mu    sync.Mutex
	calls int
}

func (f *flakyEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()

	if n <= f.failures {
		return nil, f.failErr
	}
	return f.inner.Embed(ctx, texts)
}

func (f *flakyEmbedder) Close() error { return nil }

var _ = Describe("Gateway", func() {
	var (
		ctx      context.Context
		provider *testutils.MockEmbedder
	)

	newGateway := func(e embeddings.Embedder, cfg embeddings.GatewayConfig) *embeddings.Gateway {
		GinkgoHelper()
		g, err := embeddings.NewGateway(e, cfg, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		return g
	}

	BeforeEach(func() {
		ctx = context.Background()
		provider = testutils.NewMockEmbedder(8)
	})

	It("rejects non-positive dimensions", func() {
		_, err := embeddings.NewGateway(provider, embeddings.GatewayConfig{Dimensions: 0}, zap.NewNop())
		Expect(err).To(HaveOccurred())
	})

	It("returns one vector per input, in order", func() {
		g := newGateway(provider, embeddings.GatewayConfig{Dimensions: 8})

		texts := []string{"alpha", "beta", "gamma"}
		vectors, err := g.Embed(ctx, texts)
		Expect(err).NotTo(HaveOccurred())
		Expect(vectors).To(HaveLen(3))

		for i, text := range texts {
			Expect(vectors[i]).To(Equal(testutils.Vectorize(text, 8)))
		}
	})

	It("serves repeated text from the cache", func() {
		g := newGateway(provider, embeddings.GatewayConfig{Dimensions: 8})

		_, err := g.Embed(ctx, []string{"hello"})
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.Calls()).To(Equal(1))

		_, err = g.Embed(ctx, []string{"hello"})
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.Calls()).To(Equal(1))
	})

	It("dedupes identical texts within one call", func() {
		g := newGateway(provider, embeddings.GatewayConfig{Dimensions: 8, BatchSize: 100})

		vectors, err := g.Embed(ctx, []string{"same", "same", "same"})
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.Calls()).To(Equal(1))
		Expect(vectors[0]).To(Equal(vectors[1]))
		Expect(vectors[1]).To(Equal(vectors[2]))
	})

	It("splits misses across batches", func() {
		g := newGateway(provider, embeddings.GatewayConfig{Dimensions: 8, BatchSize: 2, Workers: 1})

		texts := []string{"a", "b", "c", "d", "e"}
		vectors, err := g.Embed(ctx, texts)
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.Calls()).To(Equal(3))

		for i, text := range texts {
			Expect(vectors[i]).To(Equal(testutils.Vectorize(text, 8)))
		}
	})

	It("mixes cache hits and misses in one call", func() {
		g := newGateway(provider, embeddings.GatewayConfig{Dimensions: 8, BatchSize: 100})

		_, err := g.Embed(ctx, []string{"cached"})
		Expect(err).NotTo(HaveOccurred())

		vectors, err := g.Embed(ctx, []string{"cached", "fresh"})
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.Calls()).To(Equal(2))
		Expect(vectors[0]).To(Equal(testutils.Vectorize("cached", 8)))
		Expect(vectors[1]).To(Equal(testutils.Vectorize("fresh", 8)))
	})

	It("fails when provider output width differs from the configured width", func() {
		narrow := testutils.NewMockEmbedder(4)
		g := newGateway(narrow, embeddings.GatewayConfig{Dimensions: 8})

		_, err := g.Embed(ctx, []string{"text"})
		Expect(err).To(MatchError(corpus.ErrDimensionMismatch))
	})

	It("retries transient provider failures", func() {
		flaky := &flakyEmbedder{
			inner:    provider,
			failErr:  fmt.Errorf("connection reset: %w", corpus.ErrTransientProvider),
			failures: 2,
		}
		g := newGateway(flaky, embeddings.GatewayConfig{Dimensions: 8, MaxRetries: 3})

		vectors, err := g.Embed(ctx, []string{"text"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vectors[0]).To(Equal(testutils.Vectorize("text", 8)))
		Expect(flaky.calls).To(Equal(3))
	})

	It("gives up after the configured retries", func() {
		flaky := &flakyEmbedder{
			inner:    provider,
			failErr:  fmt.Errorf("unavailable: %w", corpus.ErrTransientProvider),
			failures: 100,
		}
		g := newGateway(flaky, embeddings.GatewayConfig{Dimensions: 8, MaxRetries: 1})

		_, err := g.Embed(ctx, []string{"text"})
		Expect(err).To(MatchError(corpus.ErrTransientProvider))
		Expect(flaky.calls).To(Equal(2))
	})

	It("does not retry quota errors", func() {
		flaky := &flakyEmbedder{
			inner:    provider,
			failErr:  fmt.Errorf("rate limited: %w", corpus.ErrQuotaExceeded),
			failures: 100,
		}
		g := newGateway(flaky, embeddings.GatewayConfig{Dimensions: 8, MaxRetries: 3})

		_, err := g.Embed(ctx, []string{"text"})
		Expect(err).To(MatchError(corpus.ErrQuotaExceeded))
		Expect(flaky.calls).To(Equal(1))
	})

	It("does not retry validation-class provider errors", func() {
		permanent := errors.New("bad request")
		flaky := &flakyEmbedder{inner: provider, failErr: permanent, failures: 100}
		g := newGateway(flaky, embeddings.GatewayConfig{Dimensions: 8, MaxRetries: 3})

		_, err := g.Embed(ctx, []string{"text"})
		Expect(err).To(MatchError(permanent))
		Expect(flaky.calls).To(Equal(1))
	})

	It("reports its configured width", func() {
		g := newGateway(provider, embeddings.GatewayConfig{Dimensions: 8})
		Expect(g.Dimensions()).To(Equal(8))
	})
})
