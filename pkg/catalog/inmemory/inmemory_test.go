package inmemory_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corpusd/corpusd/pkg/catalog"
	"github.com/corpusd/corpusd/pkg/catalog/inmemory"
	"github.com/corpusd/corpusd/pkg/corpus"
)

// testCommit builds a one-chunk commit for a fresh document.
func testCommit(title, author, published string, added time.Time) catalog.Commit {
	docID, rev := uuid.New(), uuid.New()

	doc := corpus.Document{
		ID:              docID,
		Revision:        rev,
		Title:           title,
		Author:          author,
		PublicationDate: published,
		DocType:         corpus.DocTypeTXT,
		DateAdded:       added,
		ContentHash:     uuid.NewString(),
		ChunkCount:      1,
		IngestionStatus: corpus.StatusIndexed,
	}

	return catalog.Commit{
		Document: doc,
		Chunks: []corpus.Chunk{{
			ID:     corpus.ChunkID{DocumentID: docID, Revision: rev, Seq: 0},
			Text:   "chunk text",
			Anchor: corpus.Anchor{Start: 0, End: 10},
		}},
		Record: catalog.IngestionRecord{
			DocumentID:  docID,
			Revision:    rev,
			ContentHash: doc.ContentHash,
			Committed:   true,
			UpdatedAt:   added,
		},
	}
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	Describe("CommitDocument", func() {
		It("makes the document and chunks visible together", func() {
			commit := testCommit("Paper", "Ada", "2020", time.Now())
			Expect(driver.CommitDocument(ctx, commit)).To(Succeed())

			doc, err := driver.GetDocument(ctx, commit.Document.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Title).To(Equal("Paper"))

			chunks, err := driver.ListChunks(ctx, commit.Document.ID, commit.Document.Revision)
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(1))
		})

		It("swaps out chunks of a superseded revision", func() {
			commit := testCommit("Paper", "Ada", "2020", time.Now())
			Expect(driver.CommitDocument(ctx, commit)).To(Succeed())

			oldRev := commit.Document.Revision
			newRev := uuid.New()
			commit.Document.Revision = newRev
			commit.Chunks = []corpus.Chunk{{
				ID:   corpus.ChunkID{DocumentID: commit.Document.ID, Revision: newRev, Seq: 0},
				Text: "updated text",
			}}
			commit.Record.Revision = newRev
			commit.Record.ContentHash = "newhash"
			commit.Document.ContentHash = "newhash"
			Expect(driver.CommitDocument(ctx, commit)).To(Succeed())

			old, err := driver.ListChunks(ctx, commit.Document.ID, oldRev)
			Expect(err).NotTo(HaveOccurred())
			Expect(old).To(BeEmpty())

			current, err := driver.ListChunks(ctx, commit.Document.ID, newRev)
			Expect(err).NotTo(HaveOccurred())
			Expect(current).To(HaveLen(1))
			Expect(current[0].Text).To(Equal("updated text"))
		})

		It("drops embeddings from stored chunks", func() {
			commit := testCommit("Paper", "Ada", "2020", time.Now())
			commit.Chunks[0].Embedding = []float32{1, 2, 3}
			Expect(driver.CommitDocument(ctx, commit)).To(Succeed())

			chunk, err := driver.GetChunk(ctx, commit.Chunks[0].ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Embedding).To(BeNil())
		})
	})

	Describe("GetDocument", func() {
		It("returns ErrNotFound for an unknown id", func() {
			_, err := driver.GetDocument(ctx, uuid.New())
			Expect(err).To(MatchError(corpus.ErrNotFound))
		})
	})

	Describe("ListDocuments", func() {
		BeforeEach(func() {
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			Expect(driver.CommitDocument(ctx, testCommit("Alpha", "Ada", "2019", base))).To(Succeed())
			Expect(driver.CommitDocument(ctx, testCommit("Beta", "Bob", "2020-06-15", base.Add(time.Hour)))).To(Succeed())
			Expect(driver.CommitDocument(ctx, testCommit("Gamma", "Ada", "2021", base.Add(2*time.Hour)))).To(Succeed())
		})

		It("defaults to newest first", func() {
			docs, err := driver.ListDocuments(ctx, catalog.Filter{}, catalog.Page{})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(3))
			Expect(docs[0].Title).To(Equal("Gamma"))
			Expect(docs[2].Title).To(Equal("Alpha"))
		})

		It("filters by author", func() {
			docs, err := driver.ListDocuments(ctx, catalog.Filter{Author: "Ada"}, catalog.Page{})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
		})

		It("bounds publication dates inclusively", func() {
			docs, err := driver.ListDocuments(ctx,
				catalog.Filter{PublishedFrom: "2020", PublishedTo: "2021"}, catalog.Page{})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
		})

		It("matches a full year against dated documents", func() {
			docs, err := driver.ListDocuments(ctx,
				catalog.Filter{PublishedFrom: "2020", PublishedTo: "2020"}, catalog.Page{})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Title).To(Equal("Beta"))
		})

		It("sorts by title ascending on request", func() {
			docs, err := driver.ListDocuments(ctx, catalog.Filter{},
				catalog.Page{SortBy: "title", SortOrder: "asc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs[0].Title).To(Equal("Alpha"))
			Expect(docs[2].Title).To(Equal("Gamma"))
		})

		It("sorts by id ascending on request", func() {
			docs, err := driver.ListDocuments(ctx, catalog.Filter{},
				catalog.Page{SortBy: "id", SortOrder: "asc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(3))
			Expect(docs[0].ID.String() < docs[1].ID.String()).To(BeTrue())
			Expect(docs[1].ID.String() < docs[2].ID.String()).To(BeTrue())
		})

		It("sorts by doc type on request", func() {
			commit := testCommit("Page", "Ada", "2022", time.Now())
			commit.Document.DocType = corpus.DocTypeHTML
			Expect(driver.CommitDocument(ctx, commit)).To(Succeed())

			docs, err := driver.ListDocuments(ctx, catalog.Filter{},
				catalog.Page{SortBy: "doc_type", SortOrder: "asc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(4))
			Expect(docs[0].DocType).To(Equal(corpus.DocTypeHTML))
			Expect(docs[3].DocType).To(Equal(corpus.DocTypeTXT))
		})

		It("orders descending ties consistently across pages", func() {
			// Many rows under one sort key exercise the comparator on
			// equal elements.
			for range 20 {
				Expect(driver.CommitDocument(ctx, testCommit("Same", "Ada", "2020", time.Now()))).To(Succeed())
			}

			var paged []uuid.UUID
			for offset := 0; offset < 23; offset += 5 {
				docs, err := driver.ListDocuments(ctx, catalog.Filter{},
					catalog.Page{SortBy: "title", SortOrder: "desc", Offset: offset, Limit: 5})
				Expect(err).NotTo(HaveOccurred())
				for _, doc := range docs {
					paged = append(paged, doc.ID)
				}
			}

			Expect(paged).To(HaveLen(23))
			seen := map[uuid.UUID]bool{}
			for _, id := range paged {
				Expect(seen[id]).To(BeFalse())
				seen[id] = true
			}
		})

		It("applies offset and limit", func() {
			docs, err := driver.ListDocuments(ctx, catalog.Filter{},
				catalog.Page{Offset: 1, Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Title).To(Equal("Beta"))
		})

		It("hides documents that are not indexed", func() {
			commit := testCommit("Draft", "Ada", "2022", time.Now())
			commit.Document.IngestionStatus = corpus.StatusPending
			Expect(driver.CommitDocument(ctx, commit)).To(Succeed())

			docs, err := driver.ListDocuments(ctx, catalog.Filter{}, catalog.Page{})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(3))
		})
	})

	Describe("MatchDocumentIDs", func() {
		It("resolves a filter to document ids", func() {
			commit := testCommit("Paper", "Ada", "2020", time.Now())
			Expect(driver.CommitDocument(ctx, commit)).To(Succeed())
			Expect(driver.CommitDocument(ctx, testCommit("Other", "Bob", "2020", time.Now()))).To(Succeed())

			ids, err := driver.MatchDocumentIDs(ctx, catalog.Filter{Author: "Ada"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(ConsistOf([]uuid.UUID{commit.Document.ID}))
		})

		It("returns nothing when no document matches", func() {
			ids, err := driver.MatchDocumentIDs(ctx, catalog.Filter{Author: "Nobody"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(BeEmpty())
		})
	})

	Describe("UpdateMetadata", func() {
		It("changes only the fields provided", func() {
			commit := testCommit("Old Title", "Ada", "2020", time.Now())
			Expect(driver.CommitDocument(ctx, commit)).To(Succeed())

			newTitle := "New Title"
			doc, err := driver.UpdateMetadata(ctx, commit.Document.ID,
				catalog.MetadataUpdate{Title: &newTitle})
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Title).To(Equal("New Title"))
			Expect(doc.Author).To(Equal("Ada"))
			Expect(doc.PublicationDate).To(Equal("2020"))
		})

		It("returns ErrNotFound for an unknown document", func() {
			title := "x"
			_, err := driver.UpdateMetadata(ctx, uuid.New(), catalog.MetadataUpdate{Title: &title})
			Expect(err).To(MatchError(corpus.ErrNotFound))
		})
	})

	Describe("DeleteDocument", func() {
		It("removes the document, its chunks, and its ingestion records", func() {
			commit := testCommit("Paper", "Ada", "2020", time.Now())
			Expect(driver.CommitDocument(ctx, commit)).To(Succeed())

			Expect(driver.DeleteDocument(ctx, commit.Document.ID)).To(Succeed())

			_, err := driver.GetDocument(ctx, commit.Document.ID)
			Expect(err).To(MatchError(corpus.ErrNotFound))

			chunks, err := driver.ListChunks(ctx, commit.Document.ID, commit.Document.Revision)
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(BeEmpty())

			_, err = driver.LookupIngestion(ctx, commit.Document.ContentHash)
			Expect(err).To(MatchError(corpus.ErrNotFound))
		})

		It("returns ErrNotFound for an unknown document", func() {
			Expect(driver.DeleteDocument(ctx, uuid.New())).To(MatchError(corpus.ErrNotFound))
		})
	})

	Describe("LookupIngestion", func() {
		It("finds a committed record by content hash", func() {
			commit := testCommit("Paper", "Ada", "2020", time.Now())
			Expect(driver.CommitDocument(ctx, commit)).To(Succeed())

			rec, err := driver.LookupIngestion(ctx, commit.Document.ContentHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.DocumentID).To(Equal(commit.Document.ID))
			Expect(rec.Committed).To(BeTrue())
		})

		It("returns ErrNotFound for an unknown hash", func() {
			_, err := driver.LookupIngestion(ctx, "deadbeef")
			Expect(err).To(MatchError(corpus.ErrNotFound))
		})
	})

	Describe("Stats", func() {
		It("counts documents and chunks", func() {
			Expect(driver.CommitDocument(ctx, testCommit("A", "", "", time.Now()))).To(Succeed())
			Expect(driver.CommitDocument(ctx, testCommit("B", "", "", time.Now()))).To(Succeed())

			stats, err := driver.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Documents).To(Equal(2))
			Expect(stats.Chunks).To(Equal(2))
		})
	})
})
