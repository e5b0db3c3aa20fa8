package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *ChatService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", Model: "gpt-test"})
	require.NoError(t, err)
	return svc
}

func sse(w http.ResponseWriter, chunks ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, c := range chunks {
		fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", c)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.Error(t, err)

	svc, err := NewLLMService(LLMConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
	assert.NoError(t, svc.Close())
}

func TestChatService_StreamRequest(t *testing.T) {
	var got chatCompletionRequest
	temp := 0.2
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		sse(w, "{\"a\":", " 1}")
	})

	text, err := driven.Collect(svc.Stream(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "sys"},
		{Role: driven.RoleUser, Content: "hi"},
	}, driven.ChatOptions{Temperature: &temp, MaxTokens: 50, JSON: true}))

	require.NoError(t, err)
	assert.Equal(t, "{\"a\": 1}", text)
	assert.True(t, got.Stream)
	assert.Equal(t, "gpt-test", got.Model)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, 50, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-9)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestChatService_StreamOmitsResponseFormat(t *testing.T) {
	var raw map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		sse(w, "plain")
	})

	_, err := driven.Collect(svc.Stream(context.Background(), []driven.ChatMessage{{Role: driven.RoleUser, Content: "x"}}, driven.ChatOptions{}))

	require.NoError(t, err)
	assert.NotContains(t, raw, "response_format")
	assert.NotContains(t, raw, "temperature")
}

func TestChatService_StreamSendsZeroTemperature(t *testing.T) {
	var raw map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		sse(w, "plain")
	})

	zero := 0.0
	_, err := driven.Collect(svc.Stream(context.Background(), []driven.ChatMessage{{Role: driven.RoleUser, Content: "x"}}, driven.ChatOptions{Temperature: &zero}))

	require.NoError(t, err)
	require.Contains(t, raw, "temperature")
	assert.Equal(t, 0.0, raw["temperature"])
}

func TestChatService_StreamStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   domain.ProviderErrorKind
	}{
		{http.StatusUnauthorized, domain.ProviderErrAuth},
		{http.StatusTooManyRequests, domain.ProviderErrRateLimited},
		{http.StatusInternalServerError, domain.ProviderErrResponse},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope","type":"x"}}`)
			})

			text, err := driven.Collect(svc.Stream(context.Background(), nil, driven.ChatOptions{}))

			assert.Empty(t, text)
			var pe *domain.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.want, pe.Kind)
			assert.Contains(t, pe.Error(), "nope")
		})
	}
}

func TestChatService_StreamErrorEvent(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"par\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"overloaded\"}}\n\n")
	})

	text, err := driven.Collect(svc.Stream(context.Background(), nil, driven.ChatOptions{}))

	assert.Equal(t, "par", text)
	assert.True(t, domain.IsProviderError(err))
	assert.Contains(t, err.Error(), "overloaded")
}

func TestChatService_StreamMalformedChunk(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "data: {broken\n\n")
	})

	_, err := driven.Collect(svc.Stream(context.Background(), nil, driven.ChatOptions{}))

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderErrTransport, pe.Kind)
}

func TestChatService_StreamDeadline(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := driven.Collect(svc.Stream(ctx, nil, driven.ChatOptions{}))

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderErrTimeout, pe.Kind)
}

func TestChatService_StreamStopsEarly(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		sse(w, "a", "b", "c")
	})

	var tokens []string
	for token, err := range svc.Stream(context.Background(), nil, driven.ChatOptions{}) {
		require.NoError(t, err)
		tokens = append(tokens, token)
		if len(tokens) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, tokens)
}

func TestChatService_Ping(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	})
	assert.NoError(t, svc.Ping(context.Background()))

	svc.apiKey = "wrong"
	err := svc.Ping(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
