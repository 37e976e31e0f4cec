package embed

import (
	"math"
	"testing"
)

func TestNormalizeUnitLength(t *testing.T) {
	v := []float32{3, 4}
	got := Normalize(v)
	if math.Abs(Dot(got, got)-1) > 1e-6 {
		t.Fatalf("normalized vector has norm^2 %v, want 1", Dot(got, got))
	}
	if got[0] != 0.6 || got[1] != 0.8 {
		t.Fatalf("got %v, want [0.6 0.8]", got)
	}
	if v[0] != 3 {
		t.Fatal("Normalize mutated its input")
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	got := Normalize(v)
	for i, x := range got {
		if x != 0 {
			t.Fatalf("index %d: got %v, want 0", i, x)
		}
	}
}

func TestDotCosineOfUnitVectors(t *testing.T) {
	a := Normalize([]float32{1, 0, 0})
	b := Normalize([]float32{1, 1, 0})
	want := 1 / math.Sqrt2
	if math.Abs(Dot(a, b)-want) > 1e-6 {
		t.Fatalf("got %v, want %v", Dot(a, b), want)
	}
}
