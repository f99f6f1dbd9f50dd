package chunk

// Fixed splits text into windows of Size runes, each window starting
// Size-Overlap runes after the previous one.
type Fixed struct {
	Size    int
	Overlap int
}

// runeBoundaries returns the byte offset of every rune boundary in
// text, including len(text) as the final entry.
func runeBoundaries(text string) []int {
	b := make([]int, 0, len(text)+1)
	for i := range text {
		b = append(b, i)
	}
	return append(b, len(text))
}

// Chunk implements Chunker.
func (f *Fixed) Chunk(text string) ([]Piece, error) {
	bounds := runeBoundaries(text)
	n := len(bounds) - 1

	step := f.Size - f.Overlap

	var pieces []Piece
	for i := 0; i < n; i += step {
		j := i + f.Size
		if j > n {
			j = n
		}

		if piece, ok := pieceFromSpan(text, span{start: bounds[i], end: bounds[j]}); ok {
			pieces = append(pieces, piece)
		}

		if j == n {
			break
		}
	}

	return pieces, nil
}
