package exact_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/vector"
	"github.com/corpusd/corpusd/pkg/vector/exact"
)

func chunkID(docID, rev uuid.UUID, seq int) corpus.ChunkID {
	return corpus.ChunkID{DocumentID: docID, Revision: rev, Seq: seq}
}

var _ = Describe("Index", func() {
	var (
		ctx   context.Context
		index *exact.Index
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		index, err = exact.NewIndex(exact.Config{Dimensions: 3}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewIndex", func() {
		It("rejects non-positive dimensions", func() {
			_, err := exact.NewIndex(exact.Config{Dimensions: 0}, zap.NewNop())
			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown metrics", func() {
			_, err := exact.NewIndex(exact.Config{Dimensions: 3, Metric: "hamming"}, zap.NewNop())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Insert", func() {
		It("stores entries and counts them", func() {
			docID, rev := uuid.New(), uuid.New()
			err := index.Insert(ctx, []vector.Entry{
				{ID: chunkID(docID, rev, 0), Embedding: []float32{1, 0, 0}},
				{ID: chunkID(docID, rev, 1), Embedding: []float32{0, 1, 0}},
			})
			Expect(err).NotTo(HaveOccurred())

			count, err := index.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})

		It("replaces a re-inserted chunk instead of duplicating it", func() {
			id := chunkID(uuid.New(), uuid.New(), 0)

			Expect(index.Insert(ctx, []vector.Entry{{ID: id, Embedding: []float32{1, 0, 0}}})).To(Succeed())
			Expect(index.Insert(ctx, []vector.Entry{{ID: id, Embedding: []float32{0, 1, 0}}})).To(Succeed())

			count, err := index.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))

			matches, err := index.Search(ctx, []float32{0, 1, 0}, 1, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches[0].Score).To(BeNumerically("~", 1.0, 1e-6))
		})

		It("rejects the whole batch on a dimension mismatch", func() {
			docID, rev := uuid.New(), uuid.New()
			err := index.Insert(ctx, []vector.Entry{
				{ID: chunkID(docID, rev, 0), Embedding: []float32{1, 0, 0}},
				{ID: chunkID(docID, rev, 1), Embedding: []float32{1, 0}},
			})
			Expect(err).To(MatchError(corpus.ErrDimensionMismatch))

			count, err := index.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})

	Describe("Search", func() {
		var docA, docB, revA, revB uuid.UUID

		BeforeEach(func() {
			docA, docB = uuid.New(), uuid.New()
			revA, revB = uuid.New(), uuid.New()

			Expect(index.Insert(ctx, []vector.Entry{
				{ID: chunkID(docA, revA, 0), Embedding: []float32{1, 0, 0}},
				{ID: chunkID(docA, revA, 1), Embedding: []float32{0.9, 0.1, 0}},
				{ID: chunkID(docB, revB, 0), Embedding: []float32{0, 1, 0}},
			})).To(Succeed())
		})

		It("returns the nearest entries best first", func() {
			matches, err := index.Search(ctx, []float32{1, 0, 0}, 2, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))

			Expect(matches[0].ID).To(Equal(chunkID(docA, revA, 0)))
			Expect(matches[0].Score).To(BeNumerically("~", 1.0, 1e-6))
			Expect(matches[1].ID).To(Equal(chunkID(docA, revA, 1)))
			Expect(matches[0].Score).To(BeNumerically(">", matches[1].Score))
		})

		It("restricts hits to candidate documents", func() {
			matches, err := index.Search(ctx, []float32{1, 0, 0}, 10, []uuid.UUID{docB})
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ID.DocumentID).To(Equal(docB))
		})

		It("treats an empty non-nil candidate set as no documents", func() {
			matches, err := index.Search(ctx, []float32{1, 0, 0}, 10, []uuid.UUID{})
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})

		It("treats a nil candidate set as the whole index", func() {
			matches, err := index.Search(ctx, []float32{1, 0, 0}, 10, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(3))
		})

		It("rejects queries of the wrong width", func() {
			_, err := index.Search(ctx, []float32{1, 0}, 5, nil)
			Expect(err).To(MatchError(corpus.ErrDimensionMismatch))
		})

		It("returns nothing for non-positive k", func() {
			matches, err := index.Search(ctx, []float32{1, 0, 0}, 0, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})

		It("breaks score ties by chunk identity", func() {
			tieIndex, err := exact.NewIndex(exact.Config{Dimensions: 3}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			doc, rev := uuid.New(), uuid.New()
			Expect(tieIndex.Insert(ctx, []vector.Entry{
				{ID: chunkID(doc, rev, 2), Embedding: []float32{1, 0, 0}},
				{ID: chunkID(doc, rev, 0), Embedding: []float32{1, 0, 0}},
				{ID: chunkID(doc, rev, 1), Embedding: []float32{1, 0, 0}},
			})).To(Succeed())

			first, err := tieIndex.Search(ctx, []float32{1, 0, 0}, 3, nil)
			Expect(err).NotTo(HaveOccurred())

			second, err := tieIndex.Search(ctx, []float32{1, 0, 0}, 3, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})
	})

	Describe("enumeration", func() {
		var docA, docB uuid.UUID

		BeforeEach(func() {
			docA, docB = uuid.New(), uuid.New()
			revA, revB := uuid.New(), uuid.New()

			Expect(index.Insert(ctx, []vector.Entry{
				{ID: chunkID(docA, revA, 0), Embedding: []float32{1, 0, 0}},
				{ID: chunkID(docA, revA, 1), Embedding: []float32{0, 1, 0}},
				{ID: chunkID(docB, revB, 0), Embedding: []float32{0, 0, 1}},
			})).To(Succeed())
		})

		It("lists the chunk ids of one document", func() {
			ids, err := index.ListDocument(ctx, docA)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(HaveLen(2))
			for _, id := range ids {
				Expect(id.DocumentID).To(Equal(docA))
			}
		})

		It("lists distinct document ids", func() {
			ids, err := index.DocumentIDs(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(ConsistOf(docA, docB))
		})

		It("returns nothing for an absent document", func() {
			ids, err := index.ListDocument(ctx, uuid.New())
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(BeEmpty())
		})
	})

	Describe("dot metric", func() {
		It("scores by raw dot product", func() {
			dotIndex, err := exact.NewIndex(exact.Config{Dimensions: 2, Metric: vector.MetricDot}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			doc, rev := uuid.New(), uuid.New()
			Expect(dotIndex.Insert(ctx, []vector.Entry{
				{ID: chunkID(doc, rev, 0), Embedding: []float32{2, 0}},
				{ID: chunkID(doc, rev, 1), Embedding: []float32{1, 0}},
			})).To(Succeed())

			matches, err := dotIndex.Search(ctx, []float32{1, 0}, 2, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches[0].Score).To(BeNumerically("~", 2.0, 1e-6))
			Expect(matches[1].Score).To(BeNumerically("~", 1.0, 1e-6))
		})
	})

	Describe("DeleteDocument", func() {
		It("removes every revision of the document", func() {
			docID := uuid.New()
			rev1, rev2 := uuid.New(), uuid.New()

			Expect(index.Insert(ctx, []vector.Entry{
				{ID: chunkID(docID, rev1, 0), Embedding: []float32{1, 0, 0}},
				{ID: chunkID(docID, rev2, 0), Embedding: []float32{0, 1, 0}},
				{ID: chunkID(uuid.New(), uuid.New(), 0), Embedding: []float32{0, 0, 1}},
			})).To(Succeed())

			Expect(index.DeleteDocument(ctx, docID)).To(Succeed())

			count, err := index.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})

		It("is a no-op for an absent document", func() {
			Expect(index.DeleteDocument(ctx, uuid.New())).To(Succeed())
		})
	})

	Describe("DeleteRevision", func() {
		It("retires every revision except the kept one", func() {
			docID := uuid.New()
			oldRev, newRev := uuid.New(), uuid.New()

			Expect(index.Insert(ctx, []vector.Entry{
				{ID: chunkID(docID, oldRev, 0), Embedding: []float32{1, 0, 0}},
				{ID: chunkID(docID, oldRev, 1), Embedding: []float32{0, 1, 0}},
				{ID: chunkID(docID, newRev, 0), Embedding: []float32{0, 0, 1}},
			})).To(Succeed())

			Expect(index.DeleteRevision(ctx, docID, newRev)).To(Succeed())

			matches, err := index.Search(ctx, []float32{0, 0, 1}, 10, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ID.Revision).To(Equal(newRev))
		})

		It("leaves other documents alone", func() {
			docA, docB := uuid.New(), uuid.New()
			revA, revB := uuid.New(), uuid.New()

			Expect(index.Insert(ctx, []vector.Entry{
				{ID: chunkID(docA, revA, 0), Embedding: []float32{1, 0, 0}},
				{ID: chunkID(docB, revB, 0), Embedding: []float32{0, 1, 0}},
			})).To(Succeed())

			Expect(index.DeleteRevision(ctx, docA, uuid.New())).To(Succeed())

			count, err := index.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})
	})
})
