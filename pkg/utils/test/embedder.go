package testutils

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
)

// MockEmbedder is a test embedder that returns deterministic
// embeddings derived from the text, so equal texts always embed
// equally and different texts (almost) never collide.
type MockEmbedder struct {
	// Dimensions is the width of generated vectors.
	Dimensions int

	// FailOn causes Embed to return an error when any input matches.
	FailOn string

	// Err, when set, is returned by every Embed call.
	Err error

	mu    sync.Mutex
	calls int
}

func NewMockEmbedder(dimensions int) *MockEmbedder {
	return &MockEmbedder{Dimensions: dimensions}
}

// Calls reports how many Embed calls were made.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if m.FailOn != "" && text == m.FailOn {
			return nil, fmt.Errorf("mock embedding failure for: %s", text)
		}
		out[i] = Vectorize(text, m.Dimensions)
	}
	return out, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}

// Vectorize derives a stable pseudo-embedding from text.
func Vectorize(text string, dimensions int) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, dimensions)
	for i := range vec {
		vec[i] = float32(sum[i%len(sum)])/255.0 - 0.5
	}
	return vec
}
