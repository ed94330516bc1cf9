// Package imaging reconstructs 3D volumes from unordered 2D acquisition
// slices: ordering by the documented fallback key chain, per-slice rescale
// calibration, stacking, and 8-bit min-max normalization.
package imaging
