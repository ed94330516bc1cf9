package imaging

import (
	"math"
	"testing"
)

func loc(v float64) *float64 { return &v }

func inst(v int) *int { return &v }

func TestOrderUsesLocationFirst(t *testing.T) {
	slices := []Slice{
		{Location: loc(3), SourcePath: "c"},
		{Location: loc(1), SourcePath: "a"},
		{Location: loc(2), SourcePath: "b"},
	}
	ordered := Order(slices)
	for i, want := range []string{"a", "b", "c"} {
		if ordered[i].SourcePath != want {
			t.Fatalf("position %d = %s, want %s", i, ordered[i].SourcePath, want)
		}
	}
}

func TestOrderFallbackChain(t *testing.T) {
	slices := []Slice{
		{Position: []float64{0, 0, 5}, SourcePath: "pos"},
		{Instance: inst(1), SourcePath: "inst"},
		{Location: loc(-2), SourcePath: "loc"},
	}
	ordered := Order(slices)
	if ordered[0].SourcePath != "loc" {
		t.Fatalf("first = %s, want loc", ordered[0].SourcePath)
	}
	if ordered[1].SourcePath != "inst" {
		t.Fatalf("second = %s, want inst", ordered[1].SourcePath)
	}
	if ordered[2].SourcePath != "pos" {
		t.Fatalf("third = %s, want pos", ordered[2].SourcePath)
	}
}

func TestOrderMalformedKeyFallsBackToPath(t *testing.T) {
	slices := []Slice{
		{Location: loc(math.NaN()), SourcePath: "b"},
		{Location: loc(1), SourcePath: "a"},
		{Location: loc(0), SourcePath: "c"},
	}
	ordered := Order(slices)
	for i, want := range []string{"a", "b", "c"} {
		if ordered[i].SourcePath != want {
			t.Fatalf("position %d = %s, want %s", i, ordered[i].SourcePath, want)
		}
	}
}

func TestOrderIsStableOnTies(t *testing.T) {
	slices := []Slice{
		{SourcePath: "first"},
		{SourcePath: "second"},
	}
	ordered := Order(slices)
	if ordered[0].SourcePath != "first" || ordered[1].SourcePath != "second" {
		t.Fatalf("tie order changed: %s, %s", ordered[0].SourcePath, ordered[1].SourcePath)
	}
}

func TestRescaleZeroSlopeDefaultsToOne(t *testing.T) {
	s := Slice{Pixels: []float64{1, 2}, Slope: 0, Intercept: 10}
	Rescale(&s)
	if s.Pixels[0] != 11 || s.Pixels[1] != 12 {
		t.Fatalf("pixels = %v, want [11 12]", s.Pixels)
	}
}

func TestRescaleAppliesCalibration(t *testing.T) {
	s := Slice{Pixels: []float64{1, 2}, Slope: 2, Intercept: -1}
	Rescale(&s)
	if s.Pixels[0] != 1 || s.Pixels[1] != 3 {
		t.Fatalf("pixels = %v, want [1 3]", s.Pixels)
	}
}

func TestStackDropsMismatchedSlices(t *testing.T) {
	slices := []Slice{
		{Pixels: []float64{1, 2, 3, 4}, Rows: 2, Cols: 2, Location: loc(0)},
		{Pixels: []float64{9}, Rows: 1, Cols: 1, Location: loc(1)},
		{Pixels: []float64{5, 6, 7, 8}, Rows: 2, Cols: 2, Location: loc(2)},
	}
	volume, err := Stack(slices, DefaultSpacing())
	if err != nil {
		t.Fatalf("Stack: %v", err)
	}
	if volume.NX != 2 || volume.NY != 2 || volume.NZ != 2 {
		t.Fatalf("shape = (%d,%d,%d), want (2,2,2)", volume.NX, volume.NY, volume.NZ)
	}
	if got := volume.At(0, 1, 0); got != 2 {
		t.Fatalf("At(0,1,0) = %v, want 2", got)
	}
	if got := volume.At(1, 0, 1); got != 7 {
		t.Fatalf("At(1,0,1) = %v, want 7", got)
	}
}

func TestStackEmptyAfterFilteringErrors(t *testing.T) {
	slices := []Slice{
		{Pixels: []float64{1}, Rows: 2, Cols: 2},
	}
	if _, err := Stack(slices, DefaultSpacing()); err == nil {
		t.Fatal("expected error for unusable slices")
	}
}

func TestNormalize(t *testing.T) {
	volume := &Volume{Data: []float64{0, 50, 100}, NX: 1, NY: 1, NZ: 3, Spacing: DefaultSpacing()}
	gray, constant := volume.Normalize()
	if constant {
		t.Fatal("volume is not constant")
	}
	if gray.Data[0] != 0 || gray.Data[2] != 255 {
		t.Fatalf("range = [%d..%d], want [0..255]", gray.Data[0], gray.Data[2])
	}
}

func TestNormalizeConstantVolume(t *testing.T) {
	volume := &Volume{Data: []float64{7, 7, 7}, NX: 1, NY: 1, NZ: 3}
	gray, constant := volume.Normalize()
	if !constant {
		t.Fatal("expected constant volume flag")
	}
	for i, v := range gray.Data {
		if v != 0 {
			t.Fatalf("gray[%d] = %d, want 0", i, v)
		}
	}
}
