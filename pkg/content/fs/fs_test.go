package fs_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/content/fs"
	"github.com/corpusd/corpusd/pkg/corpus"
)

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		dir   string
		store *fs.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()

		var err error
		store, err = fs.NewStore(dir, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewStore", func() {
		It("requires a directory", func() {
			_, err := fs.NewStore("", zap.NewNop())
			Expect(err).To(HaveOccurred())
		})

		It("creates the root directory when missing", func() {
			nested := filepath.Join(dir, "a", "b")

			_, err := fs.NewStore(nested, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			info, err := os.Stat(nested)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})
	})

	Describe("Put and Get", func() {
		It("round-trips bytes", func() {
			Expect(store.Put(ctx, "doc/blob", []byte("hello"))).To(Succeed())

			data, err := store.Get(ctx, "doc/blob")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("hello")))
		})

		It("overwrites an existing blob", func() {
			Expect(store.Put(ctx, "k", []byte("old"))).To(Succeed())
			Expect(store.Put(ctx, "k", []byte("new"))).To(Succeed())

			data, err := store.Get(ctx, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("new")))
		})

		It("creates parent directories for slashed keys", func() {
			Expect(store.Put(ctx, "deep/nested/key", []byte("x"))).To(Succeed())

			_, err := os.Stat(filepath.Join(dir, "deep", "nested", "key"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns ErrNotFound for a missing key", func() {
			_, err := store.Get(ctx, "missing")
			Expect(err).To(MatchError(corpus.ErrNotFound))
		})

		It("rejects an empty key", func() {
			Expect(store.Put(ctx, "", []byte("x"))).To(MatchError(corpus.ErrValidation))
		})

		It("rejects keys that escape the root", func() {
			Expect(store.Put(ctx, "../outside", []byte("x"))).To(MatchError(corpus.ErrValidation))

			_, err := store.Get(ctx, "../outside")
			Expect(err).To(MatchError(corpus.ErrValidation))
		})

		It("leaves no temp files behind", func() {
			Expect(store.Put(ctx, "k", []byte("data"))).To(Succeed())

			matches, err := filepath.Glob(filepath.Join(dir, ".put-*"))
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})
	})

	Describe("Delete", func() {
		It("removes a stored blob", func() {
			Expect(store.Put(ctx, "k", []byte("x"))).To(Succeed())
			Expect(store.Delete(ctx, "k")).To(Succeed())

			_, err := store.Get(ctx, "k")
			Expect(err).To(MatchError(corpus.ErrNotFound))
		})

		It("is a no-op for a missing key", func() {
			Expect(store.Delete(ctx, "missing")).To(Succeed())
		})
	})

	Describe("List", func() {
		It("returns every stored key with slashes", func() {
			Expect(store.Put(ctx, "a/one", []byte("1"))).To(Succeed())
			Expect(store.Put(ctx, "a/two", []byte("2"))).To(Succeed())
			Expect(store.Put(ctx, "flat", []byte("3"))).To(Succeed())

			keys, err := store.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(ConsistOf("a/one", "a/two", "flat"))
		})

		It("returns nothing for an empty store", func() {
			keys, err := store.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(BeEmpty())
		})
	})

	It("honors context cancellation", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		Expect(store.Put(cancelled, "k", []byte("x"))).To(MatchError(context.Canceled))

		_, err := store.Get(cancelled, "k")
		Expect(err).To(MatchError(context.Canceled))
	})
})
