package services

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"strings"
	"sync"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
)

// mockChatProvider answers each Stream call with respond(messages).
// Replies are yielded in small tokens to exercise buffering.
type mockChatProvider struct {
	mu      sync.Mutex
	calls   [][]driven.ChatMessage
	opts    []driven.ChatOptions
	respond func(ctx context.Context, messages []driven.ChatMessage) (string, error)
}

func (m *mockChatProvider) Stream(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) iter.Seq2[string, error] {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	return func(yield func(string, error) bool) {
		text, err := m.respond(ctx, messages)
		if err != nil {
			yield("", err)
			return
		}
		for len(text) > 0 {
			n := min(7, len(text))
			if !yield(text[:n], nil) {
				return
			}
			text = text[n:]
		}
	}
}

func (m *mockChatProvider) ModelName() string { return "mock" }
func (m *mockChatProvider) Ping(_ context.Context) error { return nil }
func (m *mockChatProvider) Close() error { return nil }

func (m *mockChatProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// callsMatching returns the calls whose user message contains substr.
func (m *mockChatProvider) callsMatching(substr string) [][]driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]driven.ChatMessage
	for _, c := range m.calls {
		if strings.Contains(userMessage(c), substr) {
			out = append(out, c)
		}
	}
	return out
}

func userMessage(messages []driven.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == driven.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// moldFromPrompt extracts the indented mold JSON embedded in a chapter prompt.
func moldFromPrompt(prompt string) (*domain.OutlineNode, error) {
	start := strings.Index(prompt, "{\n  \"id\"")
	if start < 0 {
		return nil, errors.New("no mold in prompt")
	}
	var node domain.OutlineNode
	if err := json.Unmarshal([]byte(prompt[start:]), &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// fillMold answers a chapter prompt with the mold filled in.
func fillMold(prompt string) (string, error) {
	node, err := moldFromPrompt(prompt)
	if err != nil {
		return "", err
	}
	node.Walk(func(n *domain.OutlineNode, _ int) bool {
		if n.Title == "" {
			n.Title = "Title " + n.ID
		}
		n.Description = "About " + n.ID
		return true
	})
	data, err := json.Marshal(node)
	return "```json\n" + string(data) + "\n```", err
}

// sectionID extracts the leaf ID from a content prompt.
func sectionID(prompt string) string {
	const marker = "Section to write: "
	i := strings.Index(prompt, marker)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(marker):]
	return strings.Fields(rest)[0]
}

// mockEmbeddingService maps known texts to fixed vectors and everything
// else to fallback.
type mockEmbeddingService struct {
	vectors  map[string][]float32
	fallback []float32
	embedErr error
	batchErr error
	batches  int
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	if m.fallback != nil {
		return m.fallback, nil
	}
	return []float32{1, 0, 0}, nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batches++
	if m.batchErr != nil && m.batches > 1 {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int { return 3 }
func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error { return nil }

// mockReferenceFinder returns fixed references or an error.
type mockReferenceFinder struct {
	mu    sync.Mutex
	refs  []domain.Reference
	err   error
	calls []string
}

func (m *mockReferenceFinder) ReferenceSections(_ context.Context, title, _ string, topK int) ([]domain.Reference, error) {
	m.mu.Lock()
	m.calls = append(m.calls, title)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return domain.TopReferences(append([]domain.Reference(nil), m.refs...), topK), nil
}

// mockPromptStore serves overrides and falls back to the defaults.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", domain.ErrNotFound
}

func (m *mockPromptStore) Reload() {}
