package engine

import (
	"encoding/binary"
	"math"
	"testing"
)

func encode(vec ...float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func TestRegisterVectorFunctionsAndUse(t *testing.T) {
	if err := RegisterVectorFunctions(); err != nil {
		t.Fatalf("RegisterVectorFunctions failed: %v", err)
	}
	// A second call must be a no-op.
	if err := RegisterVectorFunctions(); err != nil {
		t.Fatalf("RegisterVectorFunctions (again) failed: %v", err)
	}
	db, err := Open(MemoryDSN)
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	// vec_cosine orthogonal -> 0
	var sim float64
	if err := db.QueryRow(`SELECT vec_cosine(?, ?)`, encode(1, 0), encode(0, 1)).Scan(&sim); err != nil {
		t.Fatalf("vec_cosine(a,b) query failed: %v", err)
	}
	if sim != 0 {
		t.Fatalf("vec_cosine(a,b) = %v, want 0", sim)
	}

	// vec_cosine identical -> 1
	if err := db.QueryRow(`SELECT vec_cosine(?, ?)`, encode(1, 0), encode(1, 0)).Scan(&sim); err != nil {
		t.Fatalf("vec_cosine(a,c) query failed: %v", err)
	}
	if math.Abs(sim-1) > 1e-9 {
		t.Fatalf("vec_cosine(a,c) = %v, want 1", sim)
	}

	// vec_l2 between (0,0) and (3,4) -> 5
	var dist float64
	if err := db.QueryRow(`SELECT vec_l2(?, ?)`, encode(0, 0), encode(3, 4)).Scan(&dist); err != nil {
		t.Fatalf("vec_l2 query failed: %v", err)
	}
	if math.Abs(dist-5) > 1e-9 {
		t.Fatalf("vec_l2 = %v, want 5", dist)
	}

	// mismatched dimensions surface as a query error
	if err := db.QueryRow(`SELECT vec_l2(?, ?)`, encode(0, 0), encode(1, 2, 3)).Scan(&dist); err == nil {
		t.Fatalf("vec_l2 with mismatched dims succeeded, want error")
	}
}
