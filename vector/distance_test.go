package vector

import (
	"math"
	"testing"

	"github.com/viant/vec/search"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	c := []float32{1, 0}

	// Orthogonal vectors -> similarity 0
	if sim, err := CosineSimilarity(a, b); err != nil || sim != 0 {
		t.Fatalf("CosineSimilarity(a,b) = %v, %v; want 0, nil", sim, err)
	}

	// Identical vectors -> similarity 1
	if sim, err := CosineSimilarity(a, c); err != nil || math.Abs(sim-1) > 1e-6 {
		t.Fatalf("CosineSimilarity(a,c) = %v, %v; want 1, nil", sim, err)
	}

	if _, err := CosineSimilarity(a, []float32{0, 0}); err == nil {
		t.Fatalf("CosineSimilarity with zero vector succeeded, want error")
	}
}

func TestL2Distance(t *testing.T) {
	a := []float32{0, 0}
	b := []float32{3, 4}

	d, err := L2Distance(a, b)
	if err != nil {
		t.Fatalf("L2Distance failed: %v", err)
	}
	if d != 5 {
		t.Fatalf("L2Distance(0,0)-(3,4) = %v, want 5", d)
	}
	if _, err := L2Distance(a, []float32{1}); err == nil {
		t.Fatalf("L2Distance with mismatched dims succeeded, want error")
	}
}

func TestL2Distance_MatchesSearchKernel(t *testing.T) {
	a := make([]float32, Dimension)
	b := make([]float32, Dimension)
	var ref float64
	for i := range a {
		a[i] = float32(math.Sin(float64(i)))
		b[i] = float32(math.Cos(float64(i)))
		d := float64(a[i]) - float64(b[i])
		ref += d * d
	}
	ref = math.Sqrt(ref)

	d, err := L2Distance(a, b)
	if err != nil {
		t.Fatalf("L2Distance failed: %v", err)
	}
	if want := float64(search.Float32s(a).EuclideanDistance(b)); d != want {
		t.Fatalf("L2Distance = %v, want %v", d, want)
	}
	if math.Abs(d-ref) > 1e-3 {
		t.Fatalf("L2Distance = %v, reference %v", d, ref)
	}
}
