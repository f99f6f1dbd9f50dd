// Package llm defines the completion provider interface used by the
// answering pipeline.
package llm

import "context"

// Message is one turn of a chat conversation.
type Message struct {
	Role    string
	Content string
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is a completion request.
type Request struct {
	// System is the system prompt, empty for provider default.
	System string

	// Messages is the conversation, oldest first.
	Messages []Message

	// Temperature, zero means provider default.
	Temperature float32
}

// Provider generates chat completions.
type Provider interface {
	// Complete returns the assistant's reply to the request.
	Complete(ctx context.Context, req Request) (string, error)

	// Close releases any resources held by the provider.
	Close() error
}
