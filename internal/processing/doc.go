// Package processing implements the reconstruction stage: loading the
// study, stacking a volume, and exporting the orthogonal view sequences.
package processing
