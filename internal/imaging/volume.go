package imaging

// Volume is a reconstructed 3D study stored as float64 until normalization.
// The layout is (X, Y, Z) where X indexes acquisition rows, Y acquisition
// columns, and Z the stacking axis added during reconstruction.
type Volume struct {
	Data    []float64
	NX      int
	NY      int
	NZ      int
	Spacing Spacing
}

// GrayVolume is the 8-bit result of normalizing a Volume.
type GrayVolume struct {
	Data    []uint8
	NX      int
	NY      int
	NZ      int
	Spacing Spacing
}

// At returns the voxel at (x, y, z).
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[(x*v.NY+y)*v.NZ+z]
}

func (v *Volume) set(x, y, z int, value float64) {
	v.Data[(x*v.NY+y)*v.NZ+z] = value
}

// At returns the voxel at (x, y, z).
func (g *GrayVolume) At(x, y, z int) uint8 {
	return g.Data[(x*g.NY+y)*g.NZ+z]
}

// Shape returns the volume extents as a slice for result payloads.
func (g *GrayVolume) Shape() []int {
	return []int{g.NX, g.NY, g.NZ}
}

// Normalize linearly scales voxel intensities into the 8-bit range [0,255].
// A degenerate volume with max == min yields an all-zero volume and reports
// the condition through the second return value; it is not an error.
func (v *Volume) Normalize() (*GrayVolume, bool) {
	gray := &GrayVolume{
		Data:    make([]uint8, len(v.Data)),
		NX:      v.NX,
		NY:      v.NY,
		NZ:      v.NZ,
		Spacing: v.Spacing,
	}
	if len(v.Data) == 0 {
		return gray, true
	}

	minVal, maxVal := v.Data[0], v.Data[0]
	for _, value := range v.Data {
		if value < minVal {
			minVal = value
		}
		if value > maxVal {
			maxVal = value
		}
	}
	if maxVal == minVal {
		return gray, true
	}

	scale := 255.0 / (maxVal - minVal)
	for i, value := range v.Data {
		gray.Data[i] = uint8((value - minVal) * scale)
	}
	return gray, false
}
