package apperrors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	ErrBase := New(KindStore, "store error")
	assert.Equal(t, "store error", ErrBase.Error())
	assert.Equal(t, KindStore, ErrBase.Kind())
	assert.Equal(t, http.StatusInternalServerError, ErrBase.StatusCode())

	ErrNotFound := New(KindNotFound, "not found")
	ErrEntryNotFound := ErrNotFound.New("catalog entry not found")
	assert.Equal(t, "catalog entry not found", ErrEntryNotFound.Error())
	assert.ErrorIs(t, ErrEntryNotFound, ErrNotFound)
	assert.Equal(t, KindNotFound, ErrEntryNotFound.Kind())
	assert.Equal(t, http.StatusNotFound, ErrEntryNotFound.StatusCode())

	driverErr := errors.New("database is locked")
	wrapped := ErrBase.MsgErr("failed to insert catalog entry", driverErr)
	assert.Equal(t, "failed to insert catalog entry", wrapped.Error())
	assert.Equal(t, "failed to insert catalog entry: database is locked", wrapped.ErrorAll())
	assert.ErrorIs(t, wrapped, ErrBase)
	assert.ErrorIs(t, wrapped, driverErr)
	assert.NotErrorIs(t, wrapped, ErrNotFound)

	attached := ErrNotFound.Err(fmt.Errorf("table_name %q", "orders"))
	assert.Equal(t, `not found: table_name "orders"`, attached.ErrorAll())
}

func TestKindOf(t *testing.T) {
	ErrStale := New(KindStaleIndexReference, "stale index reference")
	err := errors.Wrap(ErrStale.Msg("row 3 no longer exists"), "resolving prompt")
	assert.Equal(t, KindStaleIndexReference, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, "StaleIndexReference", KindStaleIndexReference.String())
	assert.Equal(t, "UpstreamQueryError", KindUpstreamQuery.String())
	assert.Equal(t, "row 3 no longer exists", Message(ErrStale.Msg("row 3 no longer exists")))
}
