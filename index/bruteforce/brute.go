package bruteforce

import (
	"fmt"
	"sort"

	"github.com/viant/metavec/index"
	"github.com/viant/metavec/vector"
)

// Index is a brute-force exact L2 index with a fixed dimension.
type Index struct {
	dim  int
	ids  []int64
	vecs [][]float32
}

// New creates an empty index for vectors of length dim.
func New(dim int) *Index {
	return &Index{dim: dim}
}

// Build loads ids and vectors, validating every vector length.
func (i *Index) Build(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("bruteforce: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	for j := range vectors {
		if err := vector.CheckDimension(vectors[j], i.dim); err != nil {
			return err
		}
	}
	i.ids = append([]int64(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	return nil
}

// Nearest returns the top-k rows by ascending L2 distance. Ties keep build order.
func (i *Index) Nearest(query []float32, k int) ([]vector.Neighbor, error) {
	if err := vector.CheckDimension(query, i.dim); err != nil {
		return nil, err
	}
	if len(i.vecs) == 0 || k <= 0 {
		return []vector.Neighbor{}, nil
	}
	out := make([]vector.Neighbor, 0, len(i.vecs))
	for j := range i.vecs {
		d, err := vector.L2Distance(query, i.vecs[j])
		if err != nil {
			return nil, err
		}
		out = append(out, vector.Neighbor{RowID: i.ids[j], Distance: d})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Distance < out[b].Distance })
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

var _ index.Index = (*Index)(nil)
