package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRow struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

func newTestService(t *testing.T, cfg Config, handler http.HandlerFunc) *EmbeddingService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.APIKey = "sk-test"
	cfg.BaseURL = srv.URL
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)
	return svc
}

// echoLengths embeds each input as [len(input)], returning rows in reverse order.
func echoLengths(t *testing.T, requests *[]embeddingRequest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*requests = append(*requests, req)
		rows := make([]embeddingRow, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			rows = append(rows, embeddingRow{Embedding: []float32{float32(len(req.Input[i]))}, Index: i})
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"data": rows}))
	}
}

func TestNewEmbeddingService_Dimensions(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err)

	tests := []struct {
		model string
		dims  int
		want  int
	}{
		{"", 0, 1536},
		{"text-embedding-3-large", 0, 3072},
		{"text-embedding-3-large", 256, 256},
		{"custom-model", 0, 1536},
	}
	for _, tt := range tests {
		svc, err := NewEmbeddingService(Config{APIKey: "k", Model: tt.model, Dimensions: tt.dims})
		require.NoError(t, err)
		assert.Equal(t, tt.want, svc.Dimensions())
	}
}

func TestEmbeddingService_EmbedBatchOrdersAndBatches(t *testing.T) {
	var requests []embeddingRequest
	svc := newTestService(t, Config{BatchSize: 2}, echoLengths(t, &requests))

	vectors, err := svc.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, vectors)
	require.Len(t, requests, 2)
	assert.Equal(t, []string{"a", "bb"}, requests[0].Input)
	assert.Equal(t, DefaultModel, requests[0].Model)
	assert.Zero(t, requests[0].Dimensions)
}

func TestEmbeddingService_SendsDimensionOverride(t *testing.T) {
	var requests []embeddingRequest
	svc := newTestService(t, Config{Model: "text-embedding-3-small", Dimensions: 512}, echoLengths(t, &requests))

	_, err := svc.Embed(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, 512, requests[0].Dimensions)
}

func TestEmbeddingService_EmptyInput(t *testing.T) {
	svc := newTestService(t, Config{}, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})

	vectors, err := svc.EmbedBatch(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbeddingService_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{"api error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
		}, "bad key"},
		{"plain status", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, "upstream down")
		}, "upstream down"},
		{"missing row", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"data":[]}`)
		}, "no embedding"},
		{"bad index", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"data":[{"embedding":[1],"index":7}]}`)
		}, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, Config{}, tt.handler)
			_, err := svc.Embed(context.Background(), "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEmbeddingService_Ping(t *testing.T) {
	svc := newTestService(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	})
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
