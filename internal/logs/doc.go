// Package logs reads the daemon log file for CLI viewing: bounded "last N
// lines" tailing plus follow-mode polling that picks up lines as the daemon
// appends them.
package logs
