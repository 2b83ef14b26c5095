package vector

import (
	"testing"

	"github.com/viant/metavec/internal/apperrors"
)

func TestEncodeDecodeEmbedding_RoundTrip(t *testing.T) {
	orig := []float32{0.0, 1.5, -2.25, 3.75}

	b, err := EncodeEmbedding(orig)
	if err != nil {
		t.Fatalf("EncodeEmbedding failed: %v", err)
	}
	if len(b) != 4*len(orig) {
		t.Fatalf("blob length = %d, want %d", len(b), 4*len(orig))
	}
	// 1.5 little-endian float32 = 0x3FC00000
	if b[4] != 0x00 || b[5] != 0x00 || b[6] != 0xC0 || b[7] != 0x3F {
		t.Fatalf("unexpected byte layout for 1.5: % x", b[4:8])
	}

	decoded, err := DecodeEmbedding(b)
	if err != nil {
		t.Fatalf("DecodeEmbedding failed: %v", err)
	}
	if len(decoded) != len(orig) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(orig))
	}
	for i := range orig {
		if got, want := decoded[i], orig[i]; got != want {
			t.Fatalf("decoded[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestEncodeDecodeEmbedding_Empty(t *testing.T) {
	b, err := EncodeEmbedding(nil)
	if err != nil {
		t.Fatalf("EncodeEmbedding(nil) failed: %v", err)
	}
	if len(b) != 0 {
		t.Fatalf("expected empty blob for nil slice, got len=%d", len(b))
	}

	vec, err := DecodeEmbedding(nil)
	if err != nil {
		t.Fatalf("DecodeEmbedding(nil) failed: %v", err)
	}
	if len(vec) != 0 {
		t.Fatalf("expected empty slice for nil blob, got len=%d", len(vec))
	}
	if _, err := DecodeEmbedding([]byte{1, 2, 3}); err == nil {
		t.Fatalf("DecodeEmbedding of 3 bytes succeeded, want error")
	}
}

func TestEncodeFixed_DimensionMismatch(t *testing.T) {
	if _, err := EncodeFixed(make([]float32, Dimension), Dimension); err != nil {
		t.Fatalf("EncodeFixed(%d) failed: %v", Dimension, err)
	}
	for _, n := range []int{0, 1, Dimension - 1, Dimension + 1} {
		_, err := EncodeFixed(make([]float32, n), Dimension)
		if err == nil {
			t.Fatalf("EncodeFixed(len=%d) succeeded, want DimensionMismatch", n)
		}
		if kind := apperrors.KindOf(err); kind != apperrors.KindDimensionMismatch {
			t.Fatalf("EncodeFixed(len=%d) kind = %v, want DimensionMismatch", n, kind)
		}
	}
	blob, _ := EncodeEmbedding([]float32{1, 2})
	if _, err := DecodeFixed(blob, 3); apperrors.KindOf(err) != apperrors.KindDimensionMismatch {
		t.Fatalf("DecodeFixed kind = %v, want DimensionMismatch", apperrors.KindOf(err))
	}
}
