package extract

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/corpusd/corpusd/pkg/corpus"
)

var (
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockClose    = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	brTags        = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	leadingSpace  = regexp.MustCompile(`\n[ \t]+`)
)

// HTML strips markup from HTML documents, keeping block boundaries as
// newlines so the chunker sees paragraph structure.
type HTML struct{}

// Extract strips tags and unescapes entities.
func (h *HTML) Extract(_ context.Context, data []byte) (Result, error) {
	if !utf8.Valid(data) {
		return Result{}, fmt.Errorf("document is not valid UTF-8: %w", corpus.ErrExtraction)
	}

	text := string(data)
	text = htmlComments.ReplaceAllString(text, "")
	text = headTag.ReplaceAllString(text, "")
	text = scriptTag.ReplaceAllString(text, "")
	text = styleTag.ReplaceAllString(text, "")
	text = noscriptTag.ReplaceAllString(text, "")

	// Block closers become paragraph breaks before all remaining tags
	// are dropped.
	text = blockClose.ReplaceAllString(text, "\n\n")
	text = brTags.ReplaceAllString(text, "\n")
	text = allTags.ReplaceAllString(text, " ")

	text = html.UnescapeString(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = multiSpaces.ReplaceAllString(text, " ")
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = leadingSpace.ReplaceAllString(text, "\n")
	text = multiNewlines.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	if text == "" {
		return Result{}, fmt.Errorf("document has no extractable text: %w", corpus.ErrExtraction)
	}

	return Result{Text: text}, nil
}
