package catalog

import (
	"github.com/viant/metavec/internal/apperrors"
)

var (
	// ErrCatalog is the base error for catalog store failures.
	ErrCatalog apperrors.Error = apperrors.New(apperrors.KindStore, "catalog store error")

	// ErrNotFound is returned when an update, delete or get target does not exist.
	ErrNotFound apperrors.Error = apperrors.New(apperrors.KindNotFound, "catalog entry not found")

	// ErrInvalidInput is returned when an entry or pagination argument fails validation.
	ErrInvalidInput apperrors.Error = apperrors.New(apperrors.KindInvalidInput, "invalid catalog input")
)
