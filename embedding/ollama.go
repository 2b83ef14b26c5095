package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// Ollama calls an Ollama-compatible /api/embed endpoint.
type Ollama struct {
	url        string
	model      string
	httpClient *http.Client
}

type ollamaRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

// NewOllama creates a client posting to url, the full embed endpoint
// (for example http://localhost:11434/api/embed).
func NewOllama(url, model string, timeout time.Duration) *Ollama {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Ollama{
		url:        url,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Embed returns the embedding of a single text.
func (c *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.embed(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one embedding per input text.
func (c *Ollama) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrUnavailable.Msg("no input texts")
	}
	return c.embed(ctx, texts, len(texts))
}

func (c *Ollama) embed(ctx context.Context, input any, want int) ([][]float32, error) {
	if c.url == "" {
		return nil, ErrUnavailable.Msg("embedding endpoint is not configured")
	}
	body, err := json.Marshal(ollamaRequest{Model: c.model, Input: input})
	if err != nil {
		return nil, unavailable("failed to encode embed request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, unavailable("failed to build embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unavailable("embed request failed", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable("failed to read embed response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrUnavailable.Msg(fmt.Sprintf("embed request returned status %d", resp.StatusCode))
	}
	vecs, err := parseOllamaEmbeddings(payload)
	if err != nil {
		return nil, err
	}
	if len(vecs) != want {
		return nil, ErrUnavailable.Msg(fmt.Sprintf("expected %d embeddings, got %d", want, len(vecs)))
	}
	log.Ctx(ctx).Debug().Str("op", "embedding.ollama").Str("model", c.model).Int("inputs", want).
		Dur("elapsed", time.Since(started)).Msg("embeddings received")
	return vecs, nil
}

func parseOllamaEmbeddings(payload []byte) ([][]float32, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrUnavailable.Msg("embed response is not valid JSON")
	}
	result := gjson.GetBytes(payload, "embeddings")
	if !result.IsArray() {
		return nil, ErrUnavailable.Msg("embed response has no embeddings")
	}
	var out [][]float32
	for _, item := range result.Array() {
		values := item.Array()
		if len(values) == 0 {
			return nil, ErrUnavailable.Msg("embed response contains an empty embedding")
		}
		vec := make([]float32, len(values))
		for i, v := range values {
			if v.Type != gjson.Number {
				return nil, ErrUnavailable.Msg(fmt.Sprintf("embed response value %d is not a number: %s", i, v.Raw))
			}
			f := v.Float()
			if math.IsNaN(f) || math.IsInf(f, 0) || math.IsInf(float64(float32(f)), 0) {
				return nil, ErrUnavailable.Msg(fmt.Sprintf("embed response value %d is not finite: %s", i, v.Raw))
			}
			vec[i] = float32(f)
		}
		out = append(out, vec)
	}
	if len(out) == 0 {
		return nil, ErrUnavailable.Msg("embed response has no embeddings")
	}
	return out, nil
}
