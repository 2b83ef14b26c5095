package embedding

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

// OpenAI calls an OpenAI-compatible embeddings endpoint.
type OpenAI struct {
	client    openai.Client
	model     string
	dimension int
}

// NewOpenAI creates a client. baseURL may be empty for the public API.
// Retries are disabled; a failed call is reported immediately.
func NewOpenAI(baseURL, apiKey, model string, dimension int, timeout time.Duration) *OpenAI {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     model,
		dimension: dimension,
	}
}

// Embed returns the embedding of a single text.
func (c *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one embedding per input, ordered by the response index.
func (c *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrUnavailable.Msg("no input texts")
	}
	params := openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(c.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if c.dimension > 0 {
		params.Dimensions = openai.Int(int64(c.dimension))
	}
	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, unavailable("embeddings request failed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, ErrUnavailable.Msg(fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, item := range data {
		if len(item.Embedding) == 0 {
			return nil, ErrUnavailable.Msg("embeddings response contains an empty embedding")
		}
		vec := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	log.Ctx(ctx).Debug().Str("op", "embedding.openai").Str("model", c.model).Int("inputs", len(texts)).Msg("embeddings received")
	return out, nil
}
