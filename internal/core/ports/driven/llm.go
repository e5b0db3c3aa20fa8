package driven

import (
	"context"
	"iter"
	"strings"
)

// ChatProvider streams text from a generative model.
//
// Implementations may include:
//   - OpenAI (and compatible servers)
//   - Anthropic (Claude)
//   - Ollama (local models)
//   - Gemini
type ChatProvider interface {
	// Stream sends the conversation and yields generated tokens in order.
	// A failure is yielded once as ("", *domain.ProviderError) and ends the
	// stream; error text is never delivered as a token.
	Stream(ctx context.Context, messages []ChatMessage, opts ChatOptions) iter.Seq2[string, error]

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// This is used at startup to fail fast on configuration errors.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatOptions configures generation behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	// Nil leaves the provider's default in place.
	Temperature *float64

	// JSON asks the provider for a single JSON object response when supported.
	JSON bool
}

// Collect drains a stream into one string.
// It returns the text received before the first error alongside that error.
func Collect(stream iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for token, err := range stream {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(token)
	}
	return b.String(), nil
}
