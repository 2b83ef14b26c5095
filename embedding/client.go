package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/viant/metavec/internal/apperrors"
)

// ErrUnavailable reports that no usable embedding could be obtained.
var ErrUnavailable apperrors.Error = apperrors.New(apperrors.KindEmbeddingUnavailable, "embedding service unavailable").SetStatusCode(http.StatusBadGateway)

// Client produces embeddings for text inputs. EmbedBatch results are positionally
// aligned with the inputs.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Func adapts a plain batch function to Client.
type Func func(ctx context.Context, texts []string) ([][]float32, error)

// Embed embeds a single text.
func (f Func) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch calls f and normalizes failures to ErrUnavailable.
func (f Func) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f == nil {
		return nil, ErrUnavailable.Msg("embedding function is not configured")
	}
	vecs, err := f(ctx, texts)
	if err != nil {
		return nil, unavailable("embedding function failed", err)
	}
	if len(vecs) == 0 {
		return nil, ErrUnavailable.Msg("embedding function returned no vectors")
	}
	return vecs, nil
}

// Provider names a supported embedding backend.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
)

// DefaultTimeout bounds every embedding request.
const DefaultTimeout = 30 * time.Second

// Config selects and configures a provider.
type Config struct {
	Provider  Provider
	URL       string
	Model     string
	APIKey    string
	Dimension int
	Timeout   time.Duration
}

// New returns the Client described by cfg.
func New(cfg Config) (Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch Provider(strings.ToLower(string(cfg.Provider))) {
	case ProviderOllama, "":
		return NewOllama(cfg.URL, cfg.Model, cfg.Timeout), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.URL, cfg.APIKey, cfg.Model, cfg.Dimension, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// unavailable wraps err as ErrUnavailable unless it already is one.
func unavailable(msg string, err error) error {
	if apperrors.KindOf(err) == apperrors.KindEmbeddingUnavailable {
		return err
	}
	return ErrUnavailable.MsgErr(msg, err)
}
