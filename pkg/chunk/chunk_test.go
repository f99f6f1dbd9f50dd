package chunk_test

import (
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corpusd/corpusd/pkg/chunk"
)

// checkInvariants verifies the guarantees every chunker makes: pieces
// are non-empty, ordered by start offset, anchored exactly at their
// text, and never larger than the configured size plus a whole atom.
func checkInvariants(text string, pieces []chunk.Piece) {
	GinkgoHelper()

	prevStart := -1
	for _, p := range pieces {
		Expect(p.Text).NotTo(BeEmpty())
		Expect(p.Start).To(BeNumerically(">", prevStart))
		Expect(p.End).To(BeNumerically(">", p.Start))
		Expect(text[p.Start:p.End]).To(Equal(p.Text))
		prevStart = p.Start
	}
}

// coverage returns the distinct non-whitespace bytes of text covered
// by the pieces.
func covered(text string, pieces []chunk.Piece) map[int]bool {
	out := make(map[int]bool)
	for _, p := range pieces {
		for i := p.Start; i < p.End; i++ {
			out[i] = true
		}
	}
	return out
}

var _ = Describe("New", func() {
	It("builds each named strategy", func() {
		for _, strategy := range []string{
			chunk.StrategyFixed,
			chunk.StrategyRecursive,
			chunk.StrategySentence,
		} {
			c, err := chunk.New(chunk.Config{Strategy: strategy, Size: 100, Overlap: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(c).NotTo(BeNil())
		}
	})

	It("rejects unknown strategies", func() {
		_, err := chunk.New(chunk.Config{Strategy: "semantic", Size: 100})
		Expect(err).To(HaveOccurred())
	})

	It("rejects a non-positive size", func() {
		_, err := chunk.New(chunk.Config{Strategy: chunk.StrategyFixed, Size: 0})
		Expect(err).To(HaveOccurred())
	})

	It("rejects overlap outside [0, size)", func() {
		_, err := chunk.New(chunk.Config{Strategy: chunk.StrategyFixed, Size: 10, Overlap: 10})
		Expect(err).To(HaveOccurred())

		_, err = chunk.New(chunk.Config{Strategy: chunk.StrategyFixed, Size: 10, Overlap: -1})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Fixed", func() {
	It("splits into windows of at most Size runes", func() {
		c := &chunk.Fixed{Size: 10, Overlap: 0}
		text := strings.Repeat("abcde", 5) // 25 runes

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(pieces).To(HaveLen(3))
		checkInvariants(text, pieces)

		Expect(pieces[0].Text).To(HaveLen(10))
		Expect(pieces[1].Text).To(HaveLen(10))
		Expect(pieces[2].Text).To(HaveLen(5))
	})

	It("steps by Size minus Overlap", func() {
		c := &chunk.Fixed{Size: 10, Overlap: 4}
		text := strings.Repeat("x", 30)

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		checkInvariants(text, pieces)

		for i := 1; i < len(pieces); i++ {
			Expect(pieces[i].Start - pieces[i-1].Start).To(Equal(6))
		}
	})

	It("counts runes, not bytes", func() {
		c := &chunk.Fixed{Size: 4, Overlap: 0}
		text := "日本語のテキスト" // 8 runes, 24 bytes

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(pieces).To(HaveLen(2))
		checkInvariants(text, pieces)

		Expect(utf8.RuneCountInString(pieces[0].Text)).To(Equal(4))
		Expect(utf8.RuneCountInString(pieces[1].Text)).To(Equal(4))
	})

	It("returns a single piece for short text", func() {
		c := &chunk.Fixed{Size: 100, Overlap: 10}

		pieces, err := c.Chunk("short")
		Expect(err).NotTo(HaveOccurred())
		Expect(pieces).To(HaveLen(1))
		Expect(pieces[0]).To(Equal(chunk.Piece{Text: "short", Start: 0, End: 5}))
	})

	It("returns no pieces for whitespace-only text", func() {
		c := &chunk.Fixed{Size: 10, Overlap: 0}

		pieces, err := c.Chunk("   \n\n   ")
		Expect(err).NotTo(HaveOccurred())
		Expect(pieces).To(BeEmpty())
	})

	It("trims whitespace while keeping anchors aligned", func() {
		c := &chunk.Fixed{Size: 8, Overlap: 0}
		text := "  hello   world "

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		checkInvariants(text, pieces)
		for _, p := range pieces {
			Expect(p.Text).To(Equal(strings.TrimSpace(p.Text)))
		}
	})
})

var _ = Describe("Recursive", func() {
	It("cuts oversized text at paragraph boundaries", func() {
		c := &chunk.Recursive{Size: 40, Overlap: 0}
		text := "First paragraph here.\n\nSecond paragraph here.\n\nThird one."

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(pieces)).To(BeNumerically(">", 1))
		checkInvariants(text, pieces)

		// Every cut lands on a paragraph break, never mid-paragraph.
		for _, p := range pieces {
			if p.Start > 0 {
				Expect(text[p.Start-2 : p.Start]).To(Equal("\n\n"))
			}
			if p.End < len(text) {
				Expect(text[p.End : p.End+2]).To(Equal("\n\n"))
			}
		}
	})

	It("packs small paragraphs together up to Size", func() {
		c := &chunk.Recursive{Size: 200, Overlap: 0}
		text := "One.\n\nTwo.\n\nThree.\n\nFour."

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(pieces).To(HaveLen(1))
		Expect(pieces[0].Text).To(Equal(text))
	})

	It("falls back to finer separators for oversized segments", func() {
		c := &chunk.Recursive{Size: 20, Overlap: 0}
		text := "A long single line with many words that will not fit in one chunk at all."

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(pieces)).To(BeNumerically(">", 1))
		checkInvariants(text, pieces)

		for _, p := range pieces {
			Expect(utf8.RuneCountInString(p.Text)).To(BeNumerically("<=", 20))
		}
	})

	It("covers all non-whitespace text", func() {
		c := &chunk.Recursive{Size: 25, Overlap: 5}
		text := "Alpha beta gamma.\n\nDelta epsilon zeta eta theta.\nIota kappa lambda mu."

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		checkInvariants(text, pieces)

		cov := covered(text, pieces)
		for i, r := range text {
			if r != ' ' && r != '\n' {
				Expect(cov[i]).To(BeTrue(), "byte %d (%q) not covered", i, string(r))
			}
		}
	})

	It("repeats overlap content across consecutive chunks", func() {
		c := &chunk.Recursive{Size: 20, Overlap: 10}
		text := "Aa bb. Cc dd. Ee ff. Gg hh. Ii jj."

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(pieces)).To(BeNumerically(">", 1))
		checkInvariants(text, pieces)

		overlapped := false
		for i := 1; i < len(pieces); i++ {
			if pieces[i].Start < pieces[i-1].End {
				overlapped = true
			}
		}
		Expect(overlapped).To(BeTrue())
	})

	It("slices at rune boundaries when no separator exists", func() {
		c := &chunk.Recursive{Size: 5, Overlap: 0}
		text := strings.Repeat("ü", 12)

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		checkInvariants(text, pieces)

		for _, p := range pieces {
			Expect(utf8.RuneCountInString(p.Text)).To(BeNumerically("<=", 5))
			Expect(utf8.ValidString(p.Text)).To(BeTrue())
		}
	})
})

var _ = Describe("Sentence", func() {
	It("keeps sentences whole", func() {
		c := &chunk.Sentence{Size: 30, Overlap: 0}
		text := "First sentence. Second sentence! Third one? Fourth here."

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		checkInvariants(text, pieces)

		for _, p := range pieces {
			last := p.Text[len(p.Text)-1]
			Expect(strings.ContainsRune(".!?", rune(last))).To(BeTrue(),
				"piece %q should end at a sentence boundary", p.Text)
		}
	})

	It("groups sentences up to Size runes", func() {
		c := &chunk.Sentence{Size: 100, Overlap: 0}
		text := "One. Two. Three."

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(pieces).To(HaveLen(1))
		Expect(pieces[0].Text).To(Equal(text))
	})

	It("keeps an oversized sentence as its own chunk", func() {
		c := &chunk.Sentence{Size: 10, Overlap: 0}
		text := "This sentence is much longer than ten runes."

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(pieces).To(HaveLen(1))
		checkInvariants(text, pieces)
	})

	It("re-reads trailing sentences within the overlap budget", func() {
		c := &chunk.Sentence{Size: 25, Overlap: 10}
		text := "Alpha one. Beta two. Gamma min. Delta four. Epsilon."

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(pieces)).To(BeNumerically(">", 1))
		checkInvariants(text, pieces)

		overlapped := false
		for i := 1; i < len(pieces); i++ {
			if pieces[i].Start < pieces[i-1].End {
				overlapped = true
			}
		}
		Expect(overlapped).To(BeTrue())
	})

	It("handles text without sentence punctuation", func() {
		c := &chunk.Sentence{Size: 15, Overlap: 0}
		text := "line one\nline two\nline three"

		pieces, err := c.Chunk(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(pieces).NotTo(BeEmpty())
		checkInvariants(text, pieces)
	})
})
