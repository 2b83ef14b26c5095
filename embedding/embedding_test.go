package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/viant/metavec/internal/apperrors"
)

func TestOllama_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "nomic", gjson.GetBytes(body, "model").String())
		input := gjson.GetBytes(body, "input")
		if input.IsArray() {
			_, _ = w.Write([]byte(`{"embeddings":[[1,2],[3,4]]}`))
			return
		}
		assert.Equal(t, "orders", input.String())
		_, _ = w.Write([]byte(`{"model":"nomic","embeddings":[[0.5,0.25]]}`))
	}))
	defer srv.Close()

	client := NewOllama(srv.URL+"/api/embed", "nomic", time.Second)
	vec, err := client.Embed(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)

	vecs, err := client.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, vecs)
}

func TestOllama_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "server error", status: http.StatusInternalServerError, payload: `{"error":"boom"}`},
		{name: "empty embeddings", status: http.StatusOK, payload: `{"embeddings":[]}`},
		{name: "empty vector", status: http.StatusOK, payload: `{"embeddings":[[]]}`},
		{name: "missing field", status: http.StatusOK, payload: `{"error":"model not found"}`},
		{name: "not json", status: http.StatusOK, payload: `<html>`},
		{name: "count mismatch", status: http.StatusOK, payload: `{"embeddings":[[1],[2]]}`},
		{name: "non-numeric values", status: http.StatusOK, payload: `{"embeddings":[["oops",null,{"x":1},"NaN"]]}`},
		{name: "string nan", status: http.StatusOK, payload: `{"embeddings":[[0.5,"NaN"]]}`},
		{name: "null value", status: http.StatusOK, payload: `{"embeddings":[[0.5,null]]}`},
		{name: "float32 overflow", status: http.StatusOK, payload: `{"embeddings":[[0.5,1e300]]}`},
		{name: "nested array", status: http.StatusOK, payload: `{"embeddings":[[[0.5],0.1]]}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.payload))
			}))
			defer srv.Close()
			_, err := NewOllama(srv.URL, "m", time.Second).Embed(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, apperrors.KindEmbeddingUnavailable, apperrors.KindOf(err))
		})
	}
}

func TestOllama_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewOllama(srv.URL, "m", 50*time.Millisecond).Embed(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOllama_Unreachable(t *testing.T) {
	_, err := NewOllama("", "m", time.Second).Embed(context.Background(), "x")
	assert.Equal(t, apperrors.KindEmbeddingUnavailable, apperrors.KindOf(err))
}

func TestOpenAI_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, int64(2), gjson.GetBytes(body, "dimensions").Int())
		assert.Equal(t, "text-embedding-3-small", gjson.GetBytes(body, "model").String())
		resp := map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]any{
				{"object": "embedding", "index": 1, "embedding": []float64{3, 4}},
				{"object": "embedding", "index": 0, "embedding": []float64{1, 2}},
			},
			"usage": map[string]any{"prompt_tokens": 2, "total_tokens": 2},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewOpenAI(srv.URL+"/v1/", "key", "text-embedding-3-small", 2, time.Second)
	vecs, err := client.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, vecs)
}

func TestOpenAI_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI(srv.URL+"/v1/", "key", "m", 2, time.Second).Embed(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindEmbeddingUnavailable, apperrors.KindOf(err))
}

func TestFunc(t *testing.T) {
	f := Func(func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = []float32{float32(len(text))}
		}
		return out, nil
	})
	vec, err := f.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, vec)

	failing := Func(func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("offline")
	})
	_, err = failing.Embed(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrUnavailable)

	var unset Func
	_, err = unset.EmbedBatch(context.Background(), []string{"a"})
	assert.Equal(t, apperrors.KindEmbeddingUnavailable, apperrors.KindOf(err))
}

func TestNew(t *testing.T) {
	c, err := New(Config{Provider: "ollama", URL: "http://localhost:11434/api/embed", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, c)

	c, err = New(Config{Provider: "OpenAI", Model: "m", Dimension: 1024})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, c)

	_, err = New(Config{Provider: "bedrock"})
	assert.Error(t, err)
}
