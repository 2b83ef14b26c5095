package vecsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/viant/metavec/catalog"
	"github.com/viant/metavec/embedding"
	"github.com/viant/metavec/vecindex"
	"github.com/viant/metavec/vector"
)

// Catalog is the part of the catalog store the engine reads.
type Catalog interface {
	Snapshot(ctx context.Context) ([]catalog.Entry, int64, error)
	ChangesSince(ctx context.Context, seq int64) (int64, int64, error)
}

// Index is the part of the vector index the engine writes.
type Index interface {
	Dimension() int
	Clear(ctx context.Context) error
	BulkInsert(ctx context.Context, records []vector.Record) error
	WriteRowMap(ctx context.Context, refs []vecindex.RowRef, state vecindex.State) error
	Replace(ctx context.Context, snap vecindex.Snapshot) error
	State(ctx context.Context) (*vecindex.State, error)
	Len(ctx context.Context) (int, error)
}

// Engine rebuilds an Index from a Catalog. Callers serialize Sync calls.
type Engine struct {
	catalog  Catalog
	embedder embedding.Client
	index    Index
	options  Options
	now      func() time.Time
}

// New creates a sync engine.
func New(cat Catalog, embedder embedding.Client, idx Index, options Options) (*Engine, error) {
	if cat == nil || embedder == nil || idx == nil {
		return nil, fmt.Errorf("vecsync: catalog, embedder and index are required")
	}
	if err := options.init(); err != nil {
		return nil, err
	}
	return &Engine{catalog: cat, embedder: embedder, index: idx, options: options, now: time.Now}, nil
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.options }

// entryText is the serialized form of an entry sent to the embedding service.
type entryText struct {
	TableName   string           `json:"table_name"`
	Description string           `json:"description"`
	Columns     []catalog.Column `json:"columns"`
}

// Sync regenerates the whole index from the current catalog.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	started := e.now()
	generation := uuid.NewString()
	logger := log.Ctx(ctx).With().Str("op", "vecsync.sync").Str("generation", generation).Logger()

	entries, seq, err := e.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var vecs [][]float32
	if len(entries) > 0 {
		if vecs, err = e.embed(ctx, entries); err != nil {
			logger.Error().Err(err).Int("entries", len(entries)).Msg("sync aborted, index left unchanged")
			return nil, err
		}
	}

	dim := e.index.Dimension()
	records := make([]vector.Record, 0, len(vecs))
	refs := make([]vecindex.RowRef, 0, len(vecs))
	for i, vec := range vecs {
		if err := vector.CheckDimension(vec, dim); err != nil {
			logger.Error().Err(err).Str("table_name", entries[i].TableName).Msg("sync aborted, index left unchanged")
			return nil, err
		}
		rowID := int64(i + 1)
		if e.options.KeyMode == KeyID {
			rowID = entries[i].ID
		}
		records = append(records, vector.Record{RowID: rowID, Embedding: vec})
		refs = append(refs, vecindex.RowRef{RowID: rowID, EntryID: entries[i].ID, TableName: entries[i].TableName})
	}

	syncedAt := e.now().UTC()
	state := vecindex.State{
		Generation:    generation,
		SyncedAt:      syncedAt,
		Entries:       len(entries),
		LastChangeSeq: seq,
		Dimension:     dim,
	}
	if e.options.TwoStep {
		if err := e.index.Clear(ctx); err != nil {
			return nil, err
		}
		if err := e.index.BulkInsert(ctx, records); err != nil {
			return nil, err
		}
		if err := e.index.WriteRowMap(ctx, refs, state); err != nil {
			return nil, err
		}
	} else if err := e.index.Replace(ctx, vecindex.Snapshot{Records: records, Refs: refs, State: state}); err != nil {
		return nil, err
	}

	result := &Result{
		Generation: generation,
		Entries:    len(entries),
		Records:    len(records),
		SyncedAt:   syncedAt,
		Duration:   e.now().Sub(started),
	}
	logger.Info().Int("entries", result.Entries).Int("records", result.Records).
		Dur("elapsed", result.Duration).Msg("vector index synced")
	return result, nil
}

func (e *Engine) embed(ctx context.Context, entries []catalog.Entry) ([][]float32, error) {
	texts := make([]string, len(entries))
	for i, entry := range entries {
		columns := entry.Columns
		if columns == nil {
			columns = []catalog.Column{}
		}
		data, err := json.Marshal(entryText{TableName: entry.TableName, Description: entry.Description, Columns: columns})
		if err != nil {
			return nil, embedding.ErrUnavailable.MsgErr("failed to serialize catalog entry", err)
		}
		texts[i] = string(data)
	}

	if e.options.EmbedMode == EmbedWholeCatalog {
		whole, err := json.Marshal(textsAsJSON(texts))
		if err != nil {
			return nil, embedding.ErrUnavailable.MsgErr("failed to serialize catalog", err)
		}
		vecs, err := e.embedder.EmbedBatch(ctx, []string{string(whole)})
		if err != nil {
			return nil, err
		}
		if len(vecs) == 0 || len(vecs) > len(entries) {
			return nil, embedding.ErrUnavailable.Msg(fmt.Sprintf("expected 1..%d embeddings, got %d", len(entries), len(vecs)))
		}
		return vecs, nil
	}

	vecs, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(entries) {
		return nil, embedding.ErrUnavailable.Msg(fmt.Sprintf("expected %d embeddings, got %d", len(entries), len(vecs)))
	}
	return vecs, nil
}

func textsAsJSON(texts []string) []json.RawMessage {
	out := make([]json.RawMessage, len(texts))
	for i, text := range texts {
		out[i] = json.RawMessage(text)
	}
	return out
}

// Status reports the last sync state and how many catalog changes happened since.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	state, err := e.index.State(ctx)
	if err != nil {
		return nil, err
	}
	var since int64
	if state != nil {
		since = state.LastChangeSeq
	}
	pending, last, err := e.catalog.ChangesSince(ctx, since)
	if err != nil {
		return nil, err
	}
	records, err := e.index.Len(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		Synced:         state != nil,
		State:          state,
		Records:        records,
		PendingChanges: pending,
		LastChangeSeq:  last,
	}, nil
}
