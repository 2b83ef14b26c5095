// Package testutil holds deterministic fixtures shared by package tests.
package testutil

import (
	"context"
	"strings"

	"github.com/viant/metavec/embedding"
)

// KeywordEmbedder returns a deterministic embedder: axis i of the dim-length result
// counts case-insensitive occurrences of keywords[i] in the text.
func KeywordEmbedder(dim int, keywords ...string) embedding.Func {
	return func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = KeywordVector(dim, text, keywords...)
		}
		return out, nil
	}
}

// KeywordVector is the embedding KeywordEmbedder produces for text.
func KeywordVector(dim int, text string, keywords ...string) []float32 {
	vec := make([]float32, dim)
	lower := strings.ToLower(text)
	for i, kw := range keywords {
		if i >= dim {
			break
		}
		vec[i] = float32(strings.Count(lower, strings.ToLower(kw)))
	}
	return vec
}

// Switch wraps an embedder that can be turned off to simulate an outage.
type Switch struct {
	Next embedding.Client
	Down bool
	// Calls counts EmbedBatch invocations.
	Calls int
}

// Embed delegates to Next unless Down.
func (s *Switch) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch delegates to Next unless Down.
func (s *Switch) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.Calls++
	if s.Down {
		return nil, embedding.ErrUnavailable.Msg("embedding service is down")
	}
	return s.Next.EmbedBatch(ctx, texts)
}
