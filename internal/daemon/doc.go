// Package daemon wires the queue, status store, workflow manager, and HTTP
// API into a single-instance background service.
package daemon
