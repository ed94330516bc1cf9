// Package textutil provides small text helpers shared by the pipeline and
// the CLI: path-safe token sanitization for storage keys, and presentation
// labels for machine-readable status and stage names.
package textutil
