package vptree

import (
	"math/rand"
	"testing"

	"github.com/viant/metavec/index/bruteforce"
)

func TestIndex_MatchesBruteForce(t *testing.T) {
	const dim, n = 8, 200
	rng := rand.New(rand.NewSource(7))
	ids := make([]int64, n)
	vecs := make([][]float32, n)
	for j := 0; j < n; j++ {
		ids[j] = int64(j + 1)
		v := make([]float32, dim)
		for d := range v {
			v[d] = rng.Float32()*2 - 1
		}
		vecs[j] = v
	}
	tree, brute := New(dim), bruteforce.New(dim)
	if err := tree.Build(ids, vecs); err != nil {
		t.Fatalf("vptree Build failed: %v", err)
	}
	if err := brute.Build(ids, vecs); err != nil {
		t.Fatalf("bruteforce Build failed: %v", err)
	}
	for q := 0; q < 25; q++ {
		query := make([]float32, dim)
		for d := range query {
			query[d] = rng.Float32()*2 - 1
		}
		for _, k := range []int{1, 5} {
			got, err := tree.Nearest(query, k)
			if err != nil {
				t.Fatalf("vptree Nearest failed: %v", err)
			}
			want, _ := brute.Nearest(query, k)
			if len(got) != len(want) {
				t.Fatalf("k=%d: got %d results, want %d", k, len(got), len(want))
			}
			for r := range want {
				if got[r].Distance != want[r].Distance {
					t.Fatalf("query %d k=%d rank %d: distance %v, want %v", q, k, r, got[r].Distance, want[r].Distance)
				}
			}
		}
	}
}

func TestIndex_KnownDistances(t *testing.T) {
	idx := New(2)
	if err := idx.Build([]int64{10, 20, 30}, [][]float32{{5, 5}, {1, 0}, {-3, -4}}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	got, err := idx.Nearest([]float32{0, 0}, 1)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if len(got) != 1 || got[0].RowID != 20 || got[0].Distance != 1 {
		t.Fatalf("Nearest = %+v, want row 20 at distance 1", got)
	}
	empty := New(2)
	if res, err := empty.Nearest([]float32{0, 0}, 1); err != nil || len(res) != 0 {
		t.Fatalf("Nearest on empty tree = %+v, %v", res, err)
	}
}
