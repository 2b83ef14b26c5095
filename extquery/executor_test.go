package extquery

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/metavec/internal/apperrors"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	exec, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "external.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Close() })
	_, err = exec.Query(context.Background(), `CREATE TABLE orders (order_id INTEGER, customer TEXT, amount REAL)`)
	require.NoError(t, err)
	_, err = exec.Query(context.Background(), `INSERT INTO orders VALUES (1, 'ann', 10.5), (2, 'bob', 3)`)
	require.NoError(t, err)
	return exec
}

func TestExecutor_Query(t *testing.T) {
	exec := newTestExecutor(t)
	rows, err := exec.Query(context.Background(), `SELECT order_id, customer, amount FROM orders ORDER BY order_id`)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0]["order_id"])
	assert.Equal(t, "ann", rows[0]["customer"])
	assert.Equal(t, 10.5, rows[0]["amount"])
	assert.Equal(t, "bob", rows[1]["customer"])
}

func TestExecutor_EmptyResult(t *testing.T) {
	exec := newTestExecutor(t)
	rows, err := exec.Query(context.Background(), `SELECT * FROM orders WHERE order_id > 100`)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestExecutor_Errors(t *testing.T) {
	exec := newTestExecutor(t)

	_, err := exec.Query(context.Background(), `SELECT * FROM missing_table`)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUpstreamQuery, apperrors.KindOf(err))
	assert.Contains(t, apperrors.Message(err), "missing_table")

	_, err = exec.Query(context.Background(), " ")
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open("oracle", "user/pass@db")
	assert.Error(t, err)
	_, err = Open(DriverPgx, "")
	assert.Error(t, err)
}
