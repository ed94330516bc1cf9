// Package stage defines the handler contract workflow stages implement and
// tolerant accessors for the payloads stages exchange.
package stage
