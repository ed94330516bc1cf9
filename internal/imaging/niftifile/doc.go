// Package niftifile parses single-file NIfTI-1 studies, compressed or not,
// into the per-plane slice form the reconstruction pipeline consumes.
package niftifile
