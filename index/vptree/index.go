package vptree

import (
	"fmt"
	"math"
	"sort"

	"github.com/viant/metavec/index"
	"github.com/viant/metavec/vector"
)

// Index implements an L2 kNN index over a VP-tree.
type Index struct {
	dim  int
	ids  []int64
	vecs [][]float32
	root *node
}

type node struct {
	idx   int // index into ids/vecs
	thr   float64
	left  *node
	right *node
}

// New creates an empty index for vectors of length dim.
func New(dim int) *Index {
	return &Index{dim: dim}
}

// Build constructs the VP-tree.
func (i *Index) Build(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("vptree: ids/vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	for j := range vectors {
		if err := vector.CheckDimension(vectors[j], i.dim); err != nil {
			return err
		}
	}
	i.ids = append([]int64(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	idxs := make([]int, len(vectors))
	for k := range idxs {
		idxs[k] = k
	}
	i.root = i.build(idxs)
	return nil
}

func (i *Index) build(idxs []int) *node {
	if len(idxs) == 0 {
		return nil
	}
	// pick last as vantage point to avoid extra randomness
	vp := idxs[len(idxs)-1]
	idxs = idxs[:len(idxs)-1]
	if len(idxs) == 0 {
		return &node{idx: vp}
	}
	dists := make([]float64, len(idxs))
	for k, j := range idxs {
		dists[k] = i.dist(i.vecs[vp], i.vecs[j])
	}
	order := make([]int, len(idxs))
	for k := range order {
		order[k] = k
	}
	sort.Slice(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })
	mid := len(order) / 2
	thr := dists[order[mid]]
	left := make([]int, 0, mid+1)
	right := make([]int, 0, len(order)-mid-1)
	for rank, k := range order {
		if rank <= mid {
			left = append(left, idxs[k])
		} else {
			right = append(right, idxs[k])
		}
	}
	return &node{
		idx:   vp,
		thr:   thr,
		left:  i.build(left),
		right: i.build(right),
	}
}

// Nearest returns up to k rows ordered by ascending L2 distance.
func (i *Index) Nearest(query []float32, k int) ([]vector.Neighbor, error) {
	if err := vector.CheckDimension(query, i.dim); err != nil {
		return nil, err
	}
	if i.root == nil || k <= 0 {
		return []vector.Neighbor{}, nil
	}
	best := make([]vector.Neighbor, 0, k)
	radius := math.Inf(1)
	offer := func(n vector.Neighbor) {
		if len(best) < k {
			best = append(best, n)
		} else if n.Distance < best[len(best)-1].Distance {
			best[len(best)-1] = n
		} else {
			return
		}
		sort.SliceStable(best, func(a, b int) bool { return best[a].Distance < best[b].Distance })
		if len(best) == k {
			radius = best[len(best)-1].Distance
		}
	}
	var search func(n *node)
	search = func(n *node) {
		if n == nil {
			return
		}
		d := i.dist(query, i.vecs[n.idx])
		offer(vector.Neighbor{RowID: i.ids[n.idx], Distance: d})
		if d < n.thr {
			if d-radius <= n.thr {
				search(n.left)
			}
			if d+radius >= n.thr {
				search(n.right)
			}
			return
		}
		if d+radius >= n.thr {
			search(n.right)
		}
		if d-radius <= n.thr {
			search(n.left)
		}
	}
	search(i.root)
	return best, nil
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

func (i *Index) dist(a, b []float32) float64 {
	d, _ := vector.L2Distance(a, b)
	return d
}

var _ index.Index = (*Index)(nil)
