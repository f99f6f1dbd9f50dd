package testutils

import (
	"context"

	"github.com/corpusd/corpusd/pkg/llm"
)

// MockLLM is a test completion provider that returns a scripted reply
// and records what it was asked.
type MockLLM struct {
	// Reply is returned by every Complete call.
	Reply string

	// Err, when set, is returned instead.
	Err error

	// Requests records every request received.
	Requests []llm.Request
}

func NewMockLLM(reply string) *MockLLM {
	return &MockLLM{Reply: reply}
}

func (m *MockLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

func (m *MockLLM) Close() error {
	return nil
}
