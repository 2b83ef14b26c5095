package index

import (
	"fmt"

	"github.com/viant/metavec/vector"
)

// Index defines an exact nearest-neighbour index over fixed-dimension embeddings.
// It is built once from (row id, embedding) pairs and then queried read-only, so a
// built Index can be shared between goroutines.
type Index interface {
	// Build constructs the index from the given ids and vectors.
	// ids and vectors must have the same length and every vector must have the
	// index dimension; violations return vector.ErrDimensionMismatch.
	Build(ids []int64, vectors [][]float32) error

	// Nearest returns up to k neighbours ordered by ascending L2 distance.
	// An empty index yields an empty result.
	Nearest(query []float32, k int) ([]vector.Neighbor, error)

	// Len returns the number of indexed vectors.
	Len() int
}

// Kind names a supported index implementation.
type Kind string

const (
	KindBrute  Kind = "brute"
	KindVPTree Kind = "vptree"
	KindSQL    Kind = "sql"
)

// KindAuto picks brute or vptree from the dataset shape.
const KindAuto Kind = "auto"

const (
	autoTreeMinDocs            = 4000
	autoTreeMinDim             = 64
	autoTreeMinDensity float64 = 16
)

// ParseKind validates a configured index kind. An empty value means KindBrute.
func ParseKind(value string) (Kind, error) {
	switch k := Kind(value); k {
	case "":
		return KindBrute, nil
	case KindBrute, KindVPTree, KindSQL, KindAuto:
		return k, nil
	default:
		return "", fmt.Errorf("unsupported index kind: %q", value)
	}
}

// ResolveKind maps KindAuto to a concrete in-memory kind for docCount vectors of
// length dim. Other kinds are returned unchanged.
func ResolveKind(kind Kind, docCount, dim int) Kind {
	if kind != KindAuto {
		return kind
	}
	if docCount >= autoTreeMinDocs && dim >= autoTreeMinDim {
		if density := float64(docCount) / float64(dim); density >= autoTreeMinDensity {
			return KindVPTree
		}
	}
	return KindBrute
}
