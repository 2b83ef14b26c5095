package vecindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/viant/metavec/index"
	"github.com/viant/metavec/index/bruteforce"
	"github.com/viant/metavec/index/vptree"
	"github.com/viant/metavec/internal/apperrors"
	"github.com/viant/metavec/vector"
)

// ErrIndex is the base error for vector index storage failures.
var ErrIndex apperrors.Error = apperrors.New(apperrors.KindStore, "vector index error")

// Store is the durable vector index. The database must be opened with engine.Open so
// the vec_l2 function is available to the sql backend.
type Store struct {
	db     *sql.DB
	dim    int
	kind   index.Kind
	tables tables

	// mu serializes mutations with lazy loads of the cached view.
	mu   sync.Mutex
	view atomic.Pointer[view]
}

// view is one generation of the index loaded in memory.
type view struct {
	idx  index.Index
	refs map[int64]RowRef
}

// Option configures a Store.
type Option func(*Store)

// WithDimension sets the embedding length; the default is vector.Dimension.
func WithDimension(dim int) Option {
	return func(s *Store) { s.dim = dim }
}

// WithKind selects the query backend; the default is index.KindBrute.
func WithKind(kind index.Kind) Option {
	return func(s *Store) {
		if kind != "" {
			s.kind = kind
		}
	}
}

// WithTables overrides the vector, row map and state table names.
func WithTables(vectors, rowmap, state string) Option {
	return func(s *Store) {
		if vectors != "" {
			s.tables.vectors = vectors
		}
		if rowmap != "" {
			s.tables.rowmap = rowmap
		}
		if state != "" {
			s.tables.state = state
		}
	}
}

// New creates the index tables when missing. It fails with ErrDimensionMismatch when the
// persisted index was built with a different dimension.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrIndex.New("vecindex: nil database")
	}
	s := &Store{
		db:   db,
		dim:  vector.Dimension,
		kind: index.KindBrute,
		tables: tables{
			vectors: DefaultVectorTable,
			rowmap:  DefaultRowMapTable,
			state:   DefaultStateTable,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dim <= 0 {
		return nil, ErrIndex.New(fmt.Sprintf("vecindex: invalid dimension %d", s.dim))
	}
	if _, err := index.ParseKind(string(s.kind)); err != nil {
		return nil, ErrIndex.MsgErr("vecindex: invalid index kind", err)
	}
	if err := s.tables.ensure(ctx, db); err != nil {
		return nil, err
	}
	state, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	if state != nil && state.Dimension != s.dim {
		return nil, vector.ErrDimensionMismatch.Msg(fmt.Sprintf("index was built with dimension %d, configured %d", state.Dimension, s.dim))
	}
	return s, nil
}

// Dimension returns the fixed embedding length.
func (s *Store) Dimension() int { return s.dim }

// Kind returns the configured query backend.
func (s *Store) Kind() index.Kind { return s.kind }

// Clear deletes all vectors, row references and the sync state in one transaction.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return s.deleteAll(ctx, tx)
	})
	if err != nil {
		return err
	}
	s.view.Store(nil)
	log.Ctx(ctx).Debug().Str("op", "vecindex.clear").Msg("vector index cleared")
	return nil
}

// BulkInsert inserts records in one transaction. Every embedding is validated first;
// on a dimension mismatch nothing is written.
func (s *Store) BulkInsert(ctx context.Context, records []vector.Record) error {
	if err := s.checkRecords(records); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return s.insertRecords(ctx, tx, records)
	})
	if err != nil {
		return err
	}
	s.view.Store(nil)
	log.Ctx(ctx).Debug().Str("op", "vecindex.bulk_insert").Int("records", len(records)).Msg("vectors inserted")
	return nil
}

// WriteRowMap replaces the row map and sync state in one transaction.
func (s *Store) WriteRowMap(ctx context.Context, refs []RowRef, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+s.tables.rowmap); err != nil {
			return ErrIndex.MsgErr("failed to clear row map", err)
		}
		if err := s.insertRefs(ctx, tx, refs); err != nil {
			return err
		}
		return s.putState(ctx, tx, state)
	})
	if err != nil {
		return err
	}
	s.view.Store(nil)
	return nil
}

// Replace swaps the whole index content for snap in one transaction and then swaps the
// cached view, so a reader sees either the previous or the new generation.
func (s *Store) Replace(ctx context.Context, snap Snapshot) error {
	if err := s.checkRecords(snap.Records); err != nil {
		return err
	}
	next, err := s.buildView(snap.Records, snap.Refs)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.deleteAll(ctx, tx); err != nil {
			return err
		}
		if err := s.insertRecords(ctx, tx, snap.Records); err != nil {
			return err
		}
		if err := s.insertRefs(ctx, tx, snap.Refs); err != nil {
			return err
		}
		return s.putState(ctx, tx, snap.State)
	})
	if err != nil {
		return err
	}
	s.view.Store(next)
	log.Ctx(ctx).Debug().Str("op", "vecindex.replace").Str("generation", snap.State.Generation).
		Int("records", len(snap.Records)).Msg("vector index replaced")
	return nil
}

// Nearest returns up to k neighbours of query ordered by ascending L2 distance.
func (s *Store) Nearest(ctx context.Context, query []float32, k int) ([]vector.Neighbor, error) {
	hits, err := s.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]vector.Neighbor, len(hits))
	for i, h := range hits {
		out[i] = h.Neighbor
	}
	return out, nil
}

// Search is Nearest with each hit's row reference resolved against the same generation.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if err := vector.CheckDimension(query, s.dim); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Hit{}, nil
	}
	if s.kind == index.KindSQL {
		return s.searchSQL(ctx, query, k)
	}
	v, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	neighbors, err := v.idx.Nearest(query, k)
	if err != nil {
		return nil, ErrIndex.MsgErr("nearest neighbour search failed", err)
	}
	hits := make([]Hit, len(neighbors))
	for i, n := range neighbors {
		hits[i] = Hit{Neighbor: n}
		if ref, ok := v.refs[n.RowID]; ok {
			hits[i].Ref = &ref
		}
	}
	return hits, nil
}

func (s *Store) searchSQL(ctx context.Context, query []float32, k int) ([]Hit, error) {
	blob, err := vector.EncodeFixed(query, s.dim)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT v.row_id, vec_l2(v.embedding, ?) AS distance, m.entry_id, m.table_name
FROM `+s.tables.vectors+` v LEFT JOIN `+s.tables.rowmap+` m ON m.row_id = v.row_id
ORDER BY distance, v.row_id LIMIT ?`, blob, k)
	if err != nil {
		return nil, ErrIndex.MsgErr("nearest neighbour query failed", err)
	}
	defer rows.Close()
	hits := []Hit{}
	for rows.Next() {
		var h Hit
		var entryID sql.NullInt64
		var tableName sql.NullString
		if err := rows.Scan(&h.RowID, &h.Distance, &entryID, &tableName); err != nil {
			return nil, ErrIndex.MsgErr("failed to scan neighbour", err)
		}
		if entryID.Valid {
			h.Ref = &RowRef{RowID: h.RowID, EntryID: entryID.Int64, TableName: tableName.String}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrIndex.MsgErr("failed to iterate neighbours", err)
	}
	return hits, nil
}

// Records returns every stored record ordered by row id.
func (s *Store) Records(ctx context.Context) ([]vector.Record, error) {
	return s.readRecords(ctx, s.db)
}

// RowRef returns the row reference for rowID; ok is false when none is recorded.
func (s *Store) RowRef(ctx context.Context, rowID int64) (ref RowRef, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT row_id, entry_id, table_name FROM `+s.tables.rowmap+` WHERE row_id = ?`, rowID).
		Scan(&ref.RowID, &ref.EntryID, &ref.TableName)
	if errors.Is(err, sql.ErrNoRows) {
		return RowRef{}, false, nil
	}
	if err != nil {
		return RowRef{}, false, ErrIndex.MsgErr("failed to read row map", err)
	}
	return ref, true, nil
}

// State returns the last sync state, or nil when the index was never synced.
func (s *Store) State(ctx context.Context) (*State, error) {
	var st State
	var syncedAt int64
	err := s.db.QueryRowContext(ctx, `SELECT generation, synced_at, entries, last_change_seq, dimension FROM `+s.tables.state+` WHERE id = 1`).
		Scan(&st.Generation, &syncedAt, &st.Entries, &st.LastChangeSeq, &st.Dimension)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ErrIndex.MsgErr("failed to read sync state", err)
	}
	st.SyncedAt = time.UnixMilli(syncedAt).UTC()
	return &st, nil
}

// Len returns the number of indexed vectors.
func (s *Store) Len(ctx context.Context) (int, error) {
	if s.kind == index.KindSQL {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+s.tables.vectors).Scan(&n); err != nil {
			return 0, ErrIndex.MsgErr("failed to count vectors", err)
		}
		return n, nil
	}
	v, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return v.idx.Len(), nil
}

func (s *Store) load(ctx context.Context) (*view, error) {
	if v := s.view.Load(); v != nil {
		return v, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := s.view.Load(); v != nil {
		return v, nil
	}
	var records []vector.Record
	var refs []RowRef
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if records, err = s.readRecords(ctx, tx); err != nil {
			return err
		}
		refs, err = s.readRefs(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	v, err := s.buildView(records, refs)
	if err != nil {
		return nil, err
	}
	s.view.Store(v)
	log.Ctx(ctx).Debug().Str("op", "vecindex.load").Int("records", len(records)).Msg("vector index loaded")
	return v, nil
}

func (s *Store) buildView(records []vector.Record, refs []RowRef) (*view, error) {
	ids := make([]int64, len(records))
	vecs := make([][]float32, len(records))
	for i, r := range records {
		ids[i] = r.RowID
		vecs[i] = r.Embedding
	}
	var idx index.Index
	switch index.ResolveKind(s.kind, len(records), s.dim) {
	case index.KindVPTree:
		idx = vptree.New(s.dim)
	default:
		idx = bruteforce.New(s.dim)
	}
	if err := idx.Build(ids, vecs); err != nil {
		return nil, err
	}
	m := make(map[int64]RowRef, len(refs))
	for _, ref := range refs {
		m[ref.RowID] = ref
	}
	return &view{idx: idx, refs: m}, nil
}

func (s *Store) checkRecords(records []vector.Record) error {
	seen := make(map[int64]struct{}, len(records))
	for _, r := range records {
		if err := vector.CheckDimension(r.Embedding, s.dim); err != nil {
			return err
		}
		if _, dup := seen[r.RowID]; dup {
			return ErrIndex.New(fmt.Sprintf("duplicate row id %d", r.RowID))
		}
		seen[r.RowID] = struct{}{}
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ErrIndex.MsgErr("failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return ErrIndex.MsgErr("failed to commit transaction", err)
	}
	return nil
}

func (s *Store) deleteAll(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{s.tables.vectors, s.tables.rowmap, s.tables.state} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return ErrIndex.MsgErr("failed to clear "+table, err)
		}
	}
	return nil
}

func (s *Store) insertRecords(ctx context.Context, tx *sql.Tx, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+s.tables.vectors+` (row_id, embedding) VALUES (?, ?)`)
	if err != nil {
		return ErrIndex.MsgErr("failed to prepare vector insert", err)
	}
	defer stmt.Close()
	for _, r := range records {
		blob, err := vector.EncodeFixed(r.Embedding, s.dim)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.RowID, blob); err != nil {
			return ErrIndex.MsgErr(fmt.Sprintf("failed to insert vector %d", r.RowID), err)
		}
	}
	return nil
}

func (s *Store) insertRefs(ctx context.Context, tx *sql.Tx, refs []RowRef) error {
	if len(refs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+s.tables.rowmap+` (row_id, entry_id, table_name) VALUES (?, ?, ?)`)
	if err != nil {
		return ErrIndex.MsgErr("failed to prepare row map insert", err)
	}
	defer stmt.Close()
	for _, ref := range refs {
		if _, err := stmt.ExecContext(ctx, ref.RowID, ref.EntryID, ref.TableName); err != nil {
			return ErrIndex.MsgErr(fmt.Sprintf("failed to insert row map %d", ref.RowID), err)
		}
	}
	return nil
}

func (s *Store) putState(ctx context.Context, tx *sql.Tx, st State) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO `+s.tables.state+` (id, generation, synced_at, entries, last_change_seq, dimension)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET generation = excluded.generation, synced_at = excluded.synced_at,
    entries = excluded.entries, last_change_seq = excluded.last_change_seq, dimension = excluded.dimension`,
		st.Generation, st.SyncedAt.UnixMilli(), st.Entries, st.LastChangeSeq, s.dim)
	if err != nil {
		return ErrIndex.MsgErr("failed to write sync state", err)
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) readRecords(ctx context.Context, q queryer) ([]vector.Record, error) {
	rows, err := q.QueryContext(ctx, `SELECT row_id, embedding FROM `+s.tables.vectors+` ORDER BY row_id`)
	if err != nil {
		return nil, ErrIndex.MsgErr("failed to read vectors", err)
	}
	defer rows.Close()
	var out []vector.Record
	for rows.Next() {
		var r vector.Record
		var blob []byte
		if err := rows.Scan(&r.RowID, &blob); err != nil {
			return nil, ErrIndex.MsgErr("failed to scan vector", err)
		}
		if r.Embedding, err = vector.DecodeFixed(blob, s.dim); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrIndex.MsgErr("failed to iterate vectors", err)
	}
	return out, nil
}

func (s *Store) readRefs(ctx context.Context, q queryer) ([]RowRef, error) {
	rows, err := q.QueryContext(ctx, `SELECT row_id, entry_id, table_name FROM `+s.tables.rowmap+` ORDER BY row_id`)
	if err != nil {
		return nil, ErrIndex.MsgErr("failed to read row map", err)
	}
	defer rows.Close()
	var out []RowRef
	for rows.Next() {
		var ref RowRef
		if err := rows.Scan(&ref.RowID, &ref.EntryID, &ref.TableName); err != nil {
			return nil, ErrIndex.MsgErr("failed to scan row map", err)
		}
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrIndex.MsgErr("failed to iterate row map", err)
	}
	return out, nil
}
