// Package sliceexport renders a normalized volume's axial, coronal, and
// sagittal planes to JPEG sequences, filtering out planes without signal.
package sliceexport
