package extract_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/extract"
)

var _ = Describe("Registry", func() {
	var (
		ctx      context.Context
		registry *extract.Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		registry = extract.NewRegistry()
	})

	It("dispatches txt and md to the plaintext extractor", func() {
		for _, docType := range []corpus.DocType{corpus.DocTypeTXT, corpus.DocTypeMD} {
			result, err := registry.Extract(ctx, docType, []byte("hello world"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(Equal("hello world"))
		}
	})

	It("fails unregistered types with ErrUnsupportedFormat", func() {
		_, err := registry.Extract(ctx, corpus.DocTypePDF, []byte("%PDF-1.4"))
		Expect(err).To(MatchError(corpus.ErrUnsupportedFormat))
	})

	It("allows registering a replacement extractor", func() {
		registry.Register(corpus.DocTypePDF, &extract.Plaintext{})

		result, err := registry.Extract(ctx, corpus.DocTypePDF, []byte("pdf text"))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal("pdf text"))
	})
})

var _ = Describe("Plaintext", func() {
	var (
		ctx context.Context
		p   *extract.Plaintext
	)

	BeforeEach(func() {
		ctx = context.Background()
		p = &extract.Plaintext{}
	})

	It("normalizes CRLF and CR line endings", func() {
		result, err := p.Extract(ctx, []byte("one\r\ntwo\rthree"))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal("one\ntwo\nthree"))
	})

	It("collapses runs of blank lines to one paragraph break", func() {
		result, err := p.Extract(ctx, []byte("one\n\n\n\n\ntwo"))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal("one\n\ntwo"))
	})

	It("trims surrounding whitespace", func() {
		result, err := p.Extract(ctx, []byte("\n\n  body  \n\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal("body"))
	})

	It("rejects invalid UTF-8 with ErrExtraction", func() {
		_, err := p.Extract(ctx, []byte{0xff, 0xfe, 0xfd})
		Expect(err).To(MatchError(corpus.ErrExtraction))
	})

	It("rejects documents with no text with ErrExtraction", func() {
		_, err := p.Extract(ctx, []byte("   \n\n \t "))
		Expect(err).To(MatchError(corpus.ErrExtraction))
	})

	It("keeps markdown formatting intact", func() {
		src := "# Title\n\n- item *one*\n- item `two`"
		result, err := p.Extract(ctx, []byte(src))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal(src))
	})
})

var _ = Describe("HTML", func() {
	var (
		ctx context.Context
		h   *extract.HTML
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = &extract.HTML{}
	})

	It("strips tags and keeps text", func() {
		result, err := h.Extract(ctx, []byte("<p>Hello <b>world</b></p>"))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal("Hello world"))
	})

	It("drops script, style, and head content", func() {
		src := `<html><head><title>t</title></head><body>
			<script>var x = 1;</script>
			<style>body { color: red }</style>
			<p>visible</p></body></html>`

		result, err := h.Extract(ctx, []byte(src))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal("visible"))
		Expect(result.Text).NotTo(ContainSubstring("var x"))
		Expect(result.Text).NotTo(ContainSubstring("color"))
	})

	It("turns block closers into paragraph breaks", func() {
		result, err := h.Extract(ctx, []byte("<p>first</p><p>second</p>"))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal("first\n\nsecond"))
	})

	It("leaves no stray whitespace around paragraph breaks", func() {
		src := `<div>
			<p>first paragraph</p>
			<p>second paragraph</p>
		</div>`

		result, err := h.Extract(ctx, []byte(src))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal("first paragraph\n\nsecond paragraph"))
	})

	It("unescapes HTML entities", func() {
		result, err := h.Extract(ctx, []byte("<p>a &amp; b &lt;= c</p>"))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal("a & b <= c"))
	})

	It("removes comments", func() {
		result, err := h.Extract(ctx, []byte("<p>keep</p><!-- drop this -->"))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal("keep"))
	})

	It("rejects markup-only documents with ErrExtraction", func() {
		_, err := h.Extract(ctx, []byte("<html><body><div></div></body></html>"))
		Expect(err).To(MatchError(corpus.ErrExtraction))
	})
})

var _ = Describe("Result", func() {
	It("maps offsets to pages", func() {
		result := extract.Result{
			Text: strings.Repeat("a", 30),
			Pages: []extract.PageSpan{
				{Page: 1, Start: 0, End: 10},
				{Page: 2, Start: 10, End: 30},
			},
		}

		Expect(result.PageAt(0)).To(Equal(1))
		Expect(result.PageAt(9)).To(Equal(1))
		Expect(result.PageAt(10)).To(Equal(2))
		Expect(result.PageAt(29)).To(Equal(2))
	})

	It("returns zero when no page covers the offset", func() {
		result := extract.Result{Text: "abc"}
		Expect(result.PageAt(1)).To(Equal(0))
	})
})
