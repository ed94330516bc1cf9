package niftifile

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"reslice/internal/testsupport"
)

func TestLoadSplitsVolumeIntoSlices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.nii")
	testsupport.WriteNIfTI(t, path, 4, 3, 2, func(x, y, z int) byte {
		return byte(x + 10*y + 100*z)
	})

	slices, spacing, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(slices) != 2 {
		t.Fatalf("slices = %d, want 2", len(slices))
	}
	if spacing.X != 0.5 || spacing.Y != 0.5 || spacing.Z != 1.25 {
		t.Fatalf("spacing = %+v", spacing)
	}

	first := slices[0]
	if first.Rows != 4 || first.Cols != 3 {
		t.Fatalf("slice shape = (%d,%d), want (4,3)", first.Rows, first.Cols)
	}
	// Pixel (row x, col y) of plane z must hold voxel(x, y, z).
	if got := first.Pixels[2*first.Cols+1]; got != 12 {
		t.Fatalf("pixel (2,1) = %v, want 12", got)
	}
	second := slices[1]
	if got := second.Pixels[0]; got != 100 {
		t.Fatalf("pixel (0,0) of plane 1 = %v, want 100", got)
	}
	if second.Location == nil || *second.Location != 1.25 {
		t.Fatalf("plane 1 location = %v, want 1.25", second.Location)
	}
}

func TestLoadGzipCompressed(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "volume.nii")
	testsupport.WriteNIfTI(t, plain, 2, 2, 2, nil)

	raw, err := os.ReadFile(plain)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	packed := filepath.Join(dir, "volume.nii.gz")
	if err := os.WriteFile(packed, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	slices, _, err := Load(packed)
	if err != nil {
		t.Fatalf("Load gz: %v", err)
	}
	if len(slices) != 2 {
		t.Fatalf("slices = %d, want 2", len(slices))
	}
}

func TestLoadRejectsNonNIfTI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.nii")
	if err := os.WriteFile(path, make([]byte, 400), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid header")
	}
}

func TestLoadRejectsTruncatedVoxelData(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "full.nii")
	testsupport.WriteNIfTI(t, full, 4, 4, 4, nil)

	raw, err := os.ReadFile(full)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	short := filepath.Join(dir, "short.nii")
	if err := os.WriteFile(short, raw[:len(raw)-8], 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := Load(short); err == nil {
		t.Fatal("expected error for truncated data")
	}
}
