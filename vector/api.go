package vector

import (
	"fmt"
	"net/http"

	"github.com/viant/metavec/internal/apperrors"
)

// Dimension is the embedding length stored by the index.
const Dimension = 1024

// ErrDimensionMismatch is returned whenever an embedding length differs from the
// dimension the index was created with. Embeddings are never truncated or padded.
var ErrDimensionMismatch apperrors.Error = apperrors.New(apperrors.KindDimensionMismatch, "embedding dimension mismatch").SetStatusCode(http.StatusBadRequest)

// Record pairs an index row id with its embedding.
type Record struct {
	RowID     int64
	Embedding []float32
}

// Neighbor is a single nearest-neighbour hit. Smaller Distance means more similar.
type Neighbor struct {
	RowID    int64
	Distance float64
}

// CheckDimension validates that vec has exactly dim values.
func CheckDimension(vec []float32, dim int) error {
	if len(vec) != dim {
		return ErrDimensionMismatch.Msg(fmt.Sprintf("embedding dimension mismatch: want %d, got %d", dim, len(vec)))
	}
	return nil
}
