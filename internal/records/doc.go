// Package records posts advisory report status updates to the external
// record system. Updates never gate workflow progress.
package records
