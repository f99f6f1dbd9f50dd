package chunk

import (
	"regexp"
	"unicode/utf8"
)

var sentenceSplitter = regexp.MustCompile(`(?m)(?U)[^.!?\n]+[.!?]+|[^.!?\n]+\n?`)

// Sentence groups whole sentences into chunks of at most Size runes,
// repeating trailing sentences up to Overlap runes in the next chunk.
type Sentence struct {
	Size    int
	Overlap int
}

// Chunk implements Chunker.
func (s *Sentence) Chunk(text string) ([]Piece, error) {
	matches := sentenceSplitter.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		if piece, ok := pieceFromSpan(text, span{start: 0, end: len(text)}); ok {
			return []Piece{piece}, nil
		}
		return nil, nil
	}

	atoms := make([]span, 0, len(matches))
	for _, m := range matches {
		atoms = append(atoms, span{start: m[0], end: m[1]})
	}

	var pieces []Piece
	i := 0
	for i < len(atoms) {
		start := atoms[i].start
		j := i
		for j < len(atoms) && utf8.RuneCountInString(text[start:atoms[j].end]) <= s.Size {
			j++
		}
		if j == i {
			j = i + 1
		}

		if piece, ok := pieceFromSpan(text, span{start: start, end: atoms[j-1].end}); ok {
			pieces = append(pieces, piece)
		}

		if j >= len(atoms) {
			break
		}

		next := j
		for next > i+1 && utf8.RuneCountInString(text[atoms[next-1].start:atoms[j-1].end]) <= s.Overlap {
			next--
		}
		i = next
	}

	return pieces, nil
}
