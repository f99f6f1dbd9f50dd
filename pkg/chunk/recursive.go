package chunk

import (
	"strings"
	"unicode/utf8"
)

// separators are tried in order: paragraphs first, then lines,
// sentences, and words.
var separators = []string{"\n\n", "\n", ". ", " "}

// Recursive splits on paragraph boundaries first and only reaches for
// finer separators when a segment is still larger than Size. Adjacent
// segments are then packed into chunks up to Size runes, with the tail
// of each chunk repeated at the head of the next for context.
type Recursive struct {
	Size    int
	Overlap int
}

// Chunk implements Chunker.
func (r *Recursive) Chunk(text string) ([]Piece, error) {
	atoms := r.split(text, 0, separators)
	return r.pack(text, atoms), nil
}

// split breaks text into contiguous spans no larger than Size runes.
// base is the offset of text within the original document.
func (r *Recursive) split(text string, base int, seps []string) []span {
	if utf8.RuneCountInString(text) <= r.Size {
		return []span{{start: base, end: base + len(text)}}
	}

	if len(seps) == 0 {
		// No separator left; cut at rune boundaries.
		bounds := runeBoundaries(text)
		n := len(bounds) - 1
		var out []span
		for i := 0; i < n; i += r.Size {
			j := i + r.Size
			if j > n {
				j = n
			}
			out = append(out, span{start: base + bounds[i], end: base + bounds[j]})
		}
		return out
	}

	sep := seps[0]
	var out []span
	offset := 0
	for {
		i := strings.Index(text[offset:], sep)
		if i < 0 {
			break
		}
		// The separator stays with the preceding segment so spans
		// tile the text with no gaps.
		end := offset + i + len(sep)
		out = append(out, r.split(text[offset:end], base+offset, seps[1:])...)
		offset = end
	}
	if offset < len(text) {
		out = append(out, r.split(text[offset:], base+offset, seps[1:])...)
	}
	return out
}

// pack merges contiguous atoms into chunks of at most Size runes.
func (r *Recursive) pack(text string, atoms []span) []Piece {
	var pieces []Piece

	i := 0
	for i < len(atoms) {
		start := atoms[i].start
		j := i
		for j < len(atoms) && utf8.RuneCountInString(text[start:atoms[j].end]) <= r.Size {
			j++
		}
		if j == i {
			// First atom alone exceeds Size; take it anyway.
			j = i + 1
		}

		if piece, ok := pieceFromSpan(text, span{start: start, end: atoms[j-1].end}); ok {
			pieces = append(pieces, piece)
		}

		if j >= len(atoms) {
			break
		}

		// Back up over trailing atoms that fit inside the overlap
		// budget, so the next chunk re-reads them.
		next := j
		for next > i+1 && utf8.RuneCountInString(text[atoms[next-1].start:atoms[j-1].end]) <= r.Overlap {
			next--
		}
		i = next
	}

	return pieces
}
