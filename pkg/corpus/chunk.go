package corpus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Anchor is a positional locator tying a chunk back to its place in the
// extracted text: a half-open rune offset range [Start, End) plus the
// page the range starts on (0 when the source has no page structure).
type Anchor struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Page  int `json:"page,omitempty"`
}

// Contains reports whether the offset falls inside the anchored span.
func (a Anchor) Contains(offset int) bool {
	return offset >= a.Start && offset < a.End
}

// ChunkID identifies one chunk of one revision of a document.
// Sequence numbers are contiguous from 0 and define citation order.
type ChunkID struct {
	DocumentID uuid.UUID `json:"document_id"`
	Revision   uuid.UUID `json:"revision"`
	Seq        int       `json:"seq"`
}

// String renders the chunk ID as "documentID@revision:seq", the form
// stored in vector index backends.
func (c ChunkID) String() string {
	return fmt.Sprintf("%s@%s:%d", c.DocumentID, c.Revision, c.Seq)
}

// ParseChunkID parses the "documentID@revision:seq" form.
func ParseChunkID(s string) (ChunkID, error) {
	at := strings.IndexByte(s, '@')
	colon := strings.LastIndexByte(s, ':')
	if at < 0 || colon < at {
		return ChunkID{}, fmt.Errorf("malformed chunk id %q", s)
	}

	docID, err := uuid.Parse(s[:at])
	if err != nil {
		return ChunkID{}, fmt.Errorf("malformed chunk id %q: %w", s, err)
	}

	rev, err := uuid.Parse(s[at+1 : colon])
	if err != nil {
		return ChunkID{}, fmt.Errorf("malformed chunk id %q: %w", s, err)
	}

	seq, err := strconv.Atoi(s[colon+1:])
	if err != nil || seq < 0 {
		return ChunkID{}, fmt.Errorf("malformed chunk id %q: bad sequence", s)
	}

	return ChunkID{DocumentID: docID, Revision: rev, Seq: seq}, nil
}

// Chunk is a contiguous, anchored span of a document's extracted text,
// the unit of embedding and citation. Immutable once its revision
// commits.
type Chunk struct {
	ID        ChunkID   `json:"id"`
	Text      string    `json:"text"`
	Anchor    Anchor    `json:"anchor"`
	Embedding []float32 `json:"-"`
}

// SearchResult is one ranked hit from a hybrid query. It is ephemeral:
// produced by a query and never persisted.
type SearchResult struct {
	ChunkID    ChunkID  `json:"chunk_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Score      float32  `json:"score"`
	Rank       int      `json:"rank"`

	// Resolution fields for building citations.
	Document Document `json:"document"`
	Anchor   Anchor   `json:"anchor"`
	Snippet  string   `json:"snippet"`
}

// Citation ties a span of a generated answer back to a source passage.
type Citation struct {
	Document Document `json:"document"`
	Anchor   Anchor   `json:"anchor"`
	Snippet  string   `json:"snippet"`
}

// Answer is the result of a grounded chat completion.
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}
