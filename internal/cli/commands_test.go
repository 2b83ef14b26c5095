package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/viant/metavec/internal/testutil"
)

const testDim = 4

var keywords = []string{"order", "user", "product", "invoice"}

// fakeOllama serves /api/embed with keyword vectors.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		input := gjson.GetBytes(body, "input")
		var texts []string
		if input.IsArray() {
			for _, item := range input.Array() {
				texts = append(texts, item.String())
			}
		} else {
			texts = []string{input.String()}
		}
		embeddings := make([][]float32, len(texts))
		for i, text := range texts {
			embeddings[i] = testutil.KeywordVector(testDim, text, keywords...)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupEnv(t *testing.T) {
	t.Helper()
	srv := fakeOllama(t)
	t.Setenv("SQLITE_DATABASE", filepath.Join(t.TempDir(), "metavec.db"))
	t.Setenv("OLLAMA_URL", srv.URL+"/api/embed")
	t.Setenv("VECTOR_DIMENSION", "4")
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("INDEX_KIND", "brute")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_Flow(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "catalog", "create", "--table", "orders", "--description", "customer purchase orders",
		"--column", "order_id:NUMBER:order key", "--column", "amount:NUMBER")
	require.NoError(t, err)
	assert.Contains(t, out, "Created orders")

	_, err = run(t, "catalog", "create", "--table", "users", "--description", "registered user accounts")
	require.NoError(t, err)

	out, err = run(t, "catalog", "list", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, int64(2), gjson.Get(out, "#").Int())
	assert.Equal(t, "order key", gjson.Get(out, "0.columns.0.description").String())

	out, err = run(t, "sync", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, int64(2), gjson.Get(out, "records").Int())

	out, err = run(t, "resolve", "-o", "json", "which", "users", "signed", "up")
	require.NoError(t, err)
	assert.Equal(t, "users", gjson.Get(out, "entry.table_name").String())

	out, err = run(t, "status", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "pending_changes: 0")

	_, err = run(t, "catalog", "delete", "missing")
	assert.Error(t, err)

	_, err = run(t, "catalog", "delete", "users")
	require.NoError(t, err)
	_, err = run(t, "resolve", "which users signed up")
	assert.Error(t, err)
}

func TestCLI_CreateFromFile(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "invoices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
table_name: invoices
description: billed invoices
columns:
  - column_name: invoice_id
    data_type: NUMBER
`), 0o600))
	_, err := run(t, "catalog", "create", "-f", path)
	require.NoError(t, err)

	out, err := run(t, "catalog", "list", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "table_name: invoices")
	assert.Contains(t, out, "column_name: invoice_id")
}

func TestCLI_Errors(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "catalog", "list", "-o", "xml")
	assert.Error(t, err)

	_, err = run(t, "catalog", "create", "--table", "t", "--description", "d", "--column", "broken")
	assert.Error(t, err)

	_, err = run(t, "query", "SELECT 1")
	assert.Error(t, err)
}

func TestParseColumn(t *testing.T) {
	column, err := parseColumn("email:VARCHAR2:contact: primary")
	require.NoError(t, err)
	assert.Equal(t, "email", column.ColumnName)
	assert.Equal(t, "VARCHAR2", column.DataType)
	assert.Equal(t, "contact: primary", column.Description)

	_, err = parseColumn(":x")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "metavec test\n", out)
}
