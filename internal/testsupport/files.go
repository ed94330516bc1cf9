package testsupport

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteNIfTI writes a minimal little-endian single-file NIfTI-1 volume of
// uint8 voxels. When voxel is nil a position-dependent gradient is used so
// every plane carries variance.
func WriteNIfTI(t testing.TB, path string, nx, ny, nz int, voxel func(x, y, z int) byte) {
	t.Helper()

	if voxel == nil {
		voxel = func(x, y, z int) byte {
			return byte((x*7 + y*3 + z*11) % 251)
		}
	}

	header := make([]byte, 352)
	binary.LittleEndian.PutUint32(header[0:4], 348)
	dims := []int16{3, int16(nx), int16(ny), int16(nz), 1, 1, 1, 1}
	for i, d := range dims {
		binary.LittleEndian.PutUint16(header[40+2*i:], uint16(d))
	}
	binary.LittleEndian.PutUint16(header[70:], 2)  // datatype uint8
	binary.LittleEndian.PutUint16(header[72:], 8)  // bitpix
	pixdims := []float32{1, 0.5, 0.5, 1.25, 0, 0, 0, 0}
	for i, p := range pixdims {
		binary.LittleEndian.PutUint32(header[76+4*i:], math.Float32bits(p))
	}
	binary.LittleEndian.PutUint32(header[108:], math.Float32bits(352)) // vox_offset
	binary.LittleEndian.PutUint32(header[112:], math.Float32bits(1))   // scl_slope
	copy(header[344:348], "n+1\x00")

	data := make([]byte, 0, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				data = append(data, voxel(x, y, z))
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
