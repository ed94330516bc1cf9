// Package logging provides the slog construction and attribute conventions
// shared by the daemon, the workflow manager, and the stage handlers.
package logging
