// Package chunk splits extracted text into retrieval-sized pieces.
// Every piece carries the byte span it covers in the source text, so
// citations can point back into the original document.
package chunk

import (
	"fmt"
	"strings"
)

// Piece is one chunk of text with its span in the source.
type Piece struct {
	Text  string
	Start int
	End   int
}

// Config selects and sizes a chunking strategy. Size and Overlap are
// measured in runes.
type Config struct {
	Strategy string
	Size     int
	Overlap  int
}

// Chunker splits text into pieces. Implementations guarantee pieces
// are non-empty, ordered by Start, and overlap by at most the
// configured overlap.
type Chunker interface {
	Chunk(text string) ([]Piece, error)
}

// Strategy names accepted in config.
const (
	StrategyFixed     = "fixed"
	StrategyRecursive = "recursive"
	StrategySentence  = "sentence"
)

// New builds the chunker named by cfg.Strategy.
func New(cfg Config) (Chunker, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.Size)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d", cfg.Overlap)
	}

	switch cfg.Strategy {
	case StrategyFixed:
		return &Fixed{Size: cfg.Size, Overlap: cfg.Overlap}, nil
	case StrategyRecursive:
		return &Recursive{Size: cfg.Size, Overlap: cfg.Overlap}, nil
	case StrategySentence:
		return &Sentence{Size: cfg.Size, Overlap: cfg.Overlap}, nil
	default:
		return nil, fmt.Errorf("unknown chunk strategy %q", cfg.Strategy)
	}
}

// span is a half-open byte range in the source text.
type span struct {
	start int
	end   int
}

// trim shrinks a span to exclude surrounding whitespace, keeping the
// anchor aligned with the stored chunk text.
func trimSpan(text string, s span) (span, bool) {
	raw := text[s.start:s.end]
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return span{}, false
	}
	lead := strings.Index(raw, trimmed)
	return span{start: s.start + lead, end: s.start + lead + len(trimmed)}, true
}

func pieceFromSpan(text string, s span) (Piece, bool) {
	t, ok := trimSpan(text, s)
	if !ok {
		return Piece{}, false
	}
	return Piece{Text: text[t.start:t.end], Start: t.start, End: t.end}, true
}
