package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/metavec/engine"
	"github.com/viant/metavec/internal/apperrors"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := engine.Open(engine.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := NewSQLiteStore(context.Background(), db)
	require.NoError(t, err)
	return store
}

func ordersEntry() Entry {
	return Entry{
		TableName:   "orders",
		Description: "customer purchase orders",
		Columns: []Column{
			{ColumnName: "order_id", DataType: "NUMBER", Description: "order key"},
			{ColumnName: "amount", DataType: "NUMBER"},
		},
	}
}

func TestSQLiteStore_CreateList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Create(ctx, ordersEntry())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	entries, err := store.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, "orders", entries[0].TableName)
	assert.Equal(t, ordersEntry().Columns, entries[0].Columns)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entries[0], *got)
}

func TestSQLiteStore_ListPagination(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, name := range []string{"a", "b", "c"} {
		_, err := store.Create(ctx, Entry{TableName: name, Description: name + " table"})
		require.NoError(t, err)
	}

	page, err := store.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].TableName)
	assert.Equal(t, "c", page[1].TableName)
	assert.Empty(t, page[0].Columns)
	assert.NotNil(t, page[0].Columns)

	_, err = store.List(ctx, -1, 0)
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))
}

func TestSQLiteStore_Validation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	testCases := []struct {
		name  string
		entry Entry
	}{
		{name: "missing table name", entry: Entry{Description: "x"}},
		{name: "missing description", entry: Entry{TableName: "x"}},
		{name: "table name too long", entry: Entry{TableName: strings.Repeat("t", 101), Description: "x"}},
		{name: "column without type", entry: Entry{TableName: "x", Description: "x", Columns: []Column{{ColumnName: "c"}}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Create(ctx, tc.entry)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))
		})
	}
}

func TestSQLiteStore_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	id, err := store.Create(ctx, ordersEntry())
	require.NoError(t, err)

	cols := []Column{{ColumnName: "total", DataType: "NUMBER", Description: "order total"}}
	require.NoError(t, store.Update(ctx, "orders", "orders placed by customers", cols))
	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "orders placed by customers", got.Description)
	assert.Equal(t, cols, got.Columns)

	err = store.Update(ctx, "missing", "d", nil)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	require.NoError(t, store.Delete(ctx, "orders"))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Delete(ctx, "orders")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestSQLiteStore_ChangeLog(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, seq, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	_, err = store.Create(ctx, ordersEntry())
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, "orders", "changed", nil))

	entries, seq, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, int64(2), seq)

	require.NoError(t, store.Delete(ctx, "orders"))
	count, last, err := store.ChangesSince(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(3), last)
}

func TestDecodeColumns(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		want    []Column
		wantErr bool
	}{
		{name: "empty", payload: "", want: []Column{}},
		{name: "objects", payload: `[{"column_name":"id","data_type":"INT","description":"key"}]`, want: []Column{{ColumnName: "id", DataType: "INT", Description: "key"}}},
		{name: "encoded strings", payload: `["{\"column_name\":\"id\",\"data_type\":\"INT\",\"description\":\"\"}"]`, want: []Column{{ColumnName: "id", DataType: "INT"}}},
		{name: "not an array", payload: `{"column_name":"id"}`, wantErr: true},
		{name: "invalid", payload: `[`, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeColumns(tc.payload)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
