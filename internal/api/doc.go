// Package api implements the ingestion and status service shared by the
// daemon's HTTP surface and the CLI.
package api
