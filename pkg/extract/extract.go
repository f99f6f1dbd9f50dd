// Package extract turns stored document bytes into normalized text the
// chunker can work on. Each supported document type has its own
// extractor; anchors produced downstream are offsets into the
// normalized text returned here.
package extract

import (
	"context"
	"fmt"

	"github.com/corpusd/corpusd/pkg/corpus"
)

// PageSpan maps a page number to its span in the normalized text.
type PageSpan struct {
	Page  int
	Start int
	End   int
}

// Result is the output of extraction.
type Result struct {
	// Text is the normalized document text. All downstream anchors
	// are byte offsets into this string.
	Text string

	// Pages is empty for formats without page structure.
	Pages []PageSpan
}

// PageAt returns the page containing offset, or 0 when the document
// has no page structure.
func (r Result) PageAt(offset int) int {
	for _, span := range r.Pages {
		if offset >= span.Start && offset < span.End {
			return span.Page
		}
	}
	return 0
}

// Extractor extracts normalized text from raw document bytes.
type Extractor interface {
	// Extract parses data into normalized text. Malformed input
	// returns an error wrapping corpus.ErrExtraction.
	Extract(ctx context.Context, data []byte) (Result, error)
}

// Registry routes document types to extractors.
type Registry struct {
	extractors map[corpus.DocType]Extractor
}

// NewRegistry creates a registry with the built-in extractors. Types
// with no native extractor (pdf, docx) stay unregistered and fail with
// corpus.ErrUnsupportedFormat at extraction time.
func NewRegistry() *Registry {
	plain := &Plaintext{}
	return &Registry{
		extractors: map[corpus.DocType]Extractor{
			corpus.DocTypeTXT:  plain,
			corpus.DocTypeMD:   plain,
			corpus.DocTypeHTML: &HTML{},
		},
	}
}

// Register adds or replaces the extractor for a document type.
func (r *Registry) Register(docType corpus.DocType, e Extractor) {
	r.extractors[docType] = e
}

// Extract dispatches to the extractor registered for docType.
func (r *Registry) Extract(ctx context.Context, docType corpus.DocType, data []byte) (Result, error) {
	e, ok := r.extractors[docType]
	if !ok {
		return Result{}, fmt.Errorf("no extractor for %q: %w", docType, corpus.ErrUnsupportedFormat)
	}
	return e.Extract(ctx, data)
}
