// Package resolver maps a natural-language prompt to the single most relevant catalog entry.
package resolver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/viant/metavec/catalog"
	"github.com/viant/metavec/embedding"
	"github.com/viant/metavec/internal/apperrors"
	"github.com/viant/metavec/vecindex"
)

var (
	// ErrNoMatchFound is returned when the index holds no vectors.
	ErrNoMatchFound apperrors.Error = apperrors.New(apperrors.KindNoMatchFound, "no matching table found")

	// ErrStaleIndexReference is returned when the nearest row no longer denotes the
	// catalog entry it was built from. Re-sync the index to recover.
	ErrStaleIndexReference apperrors.Error = apperrors.New(apperrors.KindStaleIndexReference, "index references a missing catalog entry").SetStatusCode(http.StatusConflict)

	// ErrInvalidPrompt is returned for a blank prompt.
	ErrInvalidPrompt apperrors.Error = apperrors.New(apperrors.KindInvalidInput, "prompt is required")
)

// Match is a resolved catalog entry.
type Match struct {
	Entry    catalog.Entry `json:"entry" yaml:"entry"`
	RowID    int64         `json:"row_id" yaml:"row_id"`
	Distance float64       `json:"distance" yaml:"distance"`
}

// Searcher finds nearest index rows with their row references.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]vecindex.Hit, error)
}

// Getter fetches catalog entries by id.
type Getter interface {
	Get(ctx context.Context, id int64) (*catalog.Entry, error)
}

// Resolver answers prompts against the current index generation.
type Resolver struct {
	embedder embedding.Client
	index    Searcher
	catalog  Getter
}

// New creates a Resolver.
func New(embedder embedding.Client, index Searcher, cat Getter) *Resolver {
	return &Resolver{embedder: embedder, index: index, catalog: cat}
}

// Resolve returns the catalog entry nearest to prompt.
func (r *Resolver) Resolve(ctx context.Context, prompt string) (*Match, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrInvalidPrompt
	}
	query, err := r.embedder.Embed(ctx, prompt)
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindEmbeddingUnavailable {
			err = embedding.ErrUnavailable.MsgErr("failed to embed prompt", err)
		}
		return nil, err
	}
	hits, err := r.index.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, ErrNoMatchFound
	}
	hit := hits[0]
	if hit.Ref == nil {
		return nil, ErrStaleIndexReference.Msg(fmt.Sprintf("row %d has no catalog mapping", hit.RowID))
	}
	entry, err := r.catalog.Get(ctx, hit.Ref.EntryID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, ErrStaleIndexReference.Msg(fmt.Sprintf("row %d references deleted table %q", hit.RowID, hit.Ref.TableName))
		}
		return nil, err
	}
	if entry.TableName != hit.Ref.TableName {
		return nil, ErrStaleIndexReference.Msg(fmt.Sprintf("row %d was built for table %q, catalog now has %q", hit.RowID, hit.Ref.TableName, entry.TableName))
	}
	log.Ctx(ctx).Debug().Str("op", "resolver.resolve").Str("table_name", entry.TableName).
		Int64("row_id", hit.RowID).Float64("distance", hit.Distance).Msg("table resolved")
	return &Match{Entry: *entry, RowID: hit.RowID, Distance: hit.Distance}, nil
}
