// Package rag generates grounded answers: retrieve chunks, build a
// numbered context prompt, complete with an LLM, and resolve the [n]
// markers in the reply back into citations.
package rag

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/catalog"
	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/llm"
	"github.com/corpusd/corpusd/pkg/retrieval"
)

// DefaultSystemPrompt instructs the model to answer only from the
// provided context and to cite it.
const DefaultSystemPrompt = `You are a research assistant answering questions from a personal document corpus.
Answer using ONLY the numbered context passages below. Cite every claim with the
passage number in square brackets, like [1] or [2]. If the context does not
contain the answer, say so plainly instead of guessing.`

// NoContextAnswer is returned without calling the model when retrieval
// finds nothing.
const NoContextAnswer = "I could not find anything relevant to that question in your corpus."

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// Config tunes the answerer.
type Config struct {
	// TopK is the number of context passages retrieved per question.
	TopK int

	// SystemPrompt overrides DefaultSystemPrompt when non-empty.
	SystemPrompt string

	// Temperature is passed through to the completion provider.
	Temperature float32
}

// Answerer produces cited answers over the corpus.
type Answerer struct {
	searcher *retrieval.Searcher
	provider llm.Provider
	cfg      Config
	logger   *zap.Logger
}

// NewAnswerer creates an answerer.
func NewAnswerer(searcher *retrieval.Searcher, provider llm.Provider, cfg Config, logger *zap.Logger) (*Answerer, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}

	return &Answerer{
		searcher: searcher,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Request is one question against the corpus.
type Request struct {
	// Question is the user's question.
	Question string

	// Filter restricts retrieval by document metadata.
	Filter catalog.Filter

	// SystemPrompt overrides the configured system prompt for this
	// request when non-empty.
	SystemPrompt string
}

// Answer retrieves context, completes, and attaches citations.
func (a *Answerer) Answer(ctx context.Context, req Request) (corpus.Answer, error) {
	if req.Question == "" {
		return corpus.Answer{}, fmt.Errorf("%w: question is empty", corpus.ErrValidation)
	}

	results, err := a.searcher.Search(ctx, retrieval.Query{
		Text:   req.Question,
		Filter: req.Filter,
		TopK:   a.cfg.TopK,
	})
	if err != nil {
		return corpus.Answer{}, err
	}

	if len(results) == 0 {
		return corpus.Answer{Text: NoContextAnswer}, nil
	}

	system := a.cfg.SystemPrompt
	if req.SystemPrompt != "" {
		system = req.SystemPrompt
	}
	if system == "" {
		system = DefaultSystemPrompt
	}

	text, err := a.provider.Complete(ctx, llm.Request{
		System: system,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildPrompt(req.Question, results)},
		},
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		return corpus.Answer{}, fmt.Errorf("completing answer: %w", err)
	}

	return corpus.Answer{
		Text:      text,
		Citations: a.resolveCitations(text, results),
	}, nil
}

// buildPrompt renders the numbered context passages and the question.
func buildPrompt(question string, results []corpus.SearchResult) string {
	var b strings.Builder

	b.WriteString("Context passages:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s", i+1, r.Document.Title)
		if r.Document.Author != "" {
			fmt.Fprintf(&b, " by %s", r.Document.Author)
		}
		if r.Document.PublicationDate != "" {
			fmt.Fprintf(&b, " (%s)", r.Document.PublicationDate)
		}
		b.WriteString("\n")
		b.WriteString(r.Snippet)
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)

	return b.String()
}

// resolveCitations maps [n] markers in the reply onto the retrieved
// passages, in order of first appearance. Markers with no matching
// passage are dropped.
func (a *Answerer) resolveCitations(text string, results []corpus.SearchResult) []corpus.Citation {
	var citations []corpus.Citation
	seen := make(map[int]bool)

	for _, m := range citationMarker.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(results) {
			a.logger.Warn("answer cites a passage that was not provided",
				zap.String("marker", m[0]),
				zap.Int("passages", len(results)),
			)
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true

		r := results[n-1]
		citations = append(citations, corpus.Citation{
			Document: r.Document,
			Anchor:   r.Anchor,
			Snippet:  r.Snippet,
		})
	}

	return citations
}
