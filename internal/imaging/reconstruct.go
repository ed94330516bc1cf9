package imaging

import (
	"math"
	"sort"

	"reslice/internal/services"
)

// Order sorts slices along the acquisition axis using the fallback key chain:
// explicit slice location, then the third component of the position vector,
// then the instance number, then a constant zero. The sort is stable so ties
// preserve discovery order. When any key is malformed (NaN or infinite) the
// whole set falls back to ordering by source path, matching the behavior of
// a sort whose comparator throws partway through.
func Order(slices []Slice) []Slice {
	ordered := make([]Slice, len(slices))
	copy(ordered, slices)

	usable := true
	for i := range ordered {
		if key := sortKey(&ordered[i]); math.IsNaN(key) || math.IsInf(key, 0) {
			usable = false
			break
		}
	}

	if usable {
		sort.SliceStable(ordered, func(i, j int) bool {
			return sortKey(&ordered[i]) < sortKey(&ordered[j])
		})
	} else {
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].SourcePath < ordered[j].SourcePath
		})
	}
	return ordered
}

func sortKey(s *Slice) float64 {
	if s.Location != nil {
		return *s.Location
	}
	if len(s.Position) >= 3 {
		return s.Position[2]
	}
	if s.Instance != nil {
		return float64(*s.Instance)
	}
	return 0
}

// Rescale applies the per-slice linear calibration value' = value*slope +
// intercept in place. A zero slope is treated as missing and defaults to 1.0.
func Rescale(s *Slice) {
	slope := s.Slope
	if slope == 0 {
		slope = 1.0
	}
	if slope == 1.0 && s.Intercept == 0 {
		return
	}
	for i, value := range s.Pixels {
		s.Pixels[i] = value*slope + s.Intercept
	}
}

// Stack orders, rescales, and concatenates slices along a new third axis.
// Slices whose dimensions disagree with the first usable slice are dropped;
// an empty result after filtering is a reconstruction error.
func Stack(slices []Slice, spacing Spacing) (*Volume, error) {
	ordered := Order(slices)

	var kept []Slice
	rows, cols := 0, 0
	for i := range ordered {
		s := &ordered[i]
		if s.Rows <= 0 || s.Cols <= 0 || len(s.Pixels) != s.Rows*s.Cols {
			continue
		}
		if rows == 0 {
			rows, cols = s.Rows, s.Cols
		}
		if s.Rows != rows || s.Cols != cols {
			continue
		}
		Rescale(s)
		kept = append(kept, *s)
	}

	if len(kept) == 0 {
		return nil, services.Wrap(services.ErrReconstruction, "reconstruction", "stack slices", "no valid slices", nil)
	}

	volume := &Volume{
		Data:    make([]float64, rows*cols*len(kept)),
		NX:      rows,
		NY:      cols,
		NZ:      len(kept),
		Spacing: spacing,
	}
	for z, s := range kept {
		for x := 0; x < rows; x++ {
			for y := 0; y < cols; y++ {
				volume.set(x, y, z, s.Pixels[x*cols+y])
			}
		}
	}
	return volume, nil
}
