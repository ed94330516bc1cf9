// Package config loads, validates, and normalizes the TOML configuration
// consumed by the resliced daemon and the reslice CLI.
package config
