package imaging

// Slice is one 2D acquisition plane produced by a loader. Pixels are stored
// row-major as float64 so rescale calibration can run before quantization.
// Ordering keys are optional; absent keys fall through the sort chain.
type Slice struct {
	Pixels []float64
	Rows   int
	Cols   int

	// Location is the explicit slice-location scalar, when present.
	Location *float64
	// Position is the 3-vector patient position; only the third component
	// participates in ordering.
	Position []float64
	// Instance is the integer instance number, when present.
	Instance *int

	// Slope and Intercept are the per-slice rescale calibration. Zero slope
	// means "missing" and defaults to 1.0, never a valid zero calibration.
	Slope     float64
	Intercept float64

	SourcePath string
}

// Spacing holds voxel dimensions in millimeters.
type Spacing struct {
	X float64 `json:"x_spacing_mm"`
	Y float64 `json:"y_spacing_mm"`
	Z float64 `json:"z_spacing_mm"`
}

// DefaultSpacing is used when a source carries no usable voxel metadata.
func DefaultSpacing() Spacing {
	return Spacing{X: 1.0, Y: 1.0, Z: 1.0}
}
