// Package objectstore is a thin HTTP client for the artifact storage
// backend used to publish exported slices and report documents.
package objectstore
