package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/corpusd/corpusd/pkg/corpus"
)

var multiNewlines = regexp.MustCompile(`\n{3,}`)

// Plaintext handles txt and md documents. Markdown passes through
// as-is; its formatting is useful context for retrieval.
type Plaintext struct{}

// Extract normalizes line endings and collapses runs of blank lines.
func (p *Plaintext) Extract(_ context.Context, data []byte) (Result, error) {
	if !utf8.Valid(data) {
		return Result{}, fmt.Errorf("document is not valid UTF-8: %w", corpus.ErrExtraction)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = multiNewlines.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	if text == "" {
		return Result{}, fmt.Errorf("document has no extractable text: %w", corpus.ErrExtraction)
	}

	return Result{Text: text}, nil
}
