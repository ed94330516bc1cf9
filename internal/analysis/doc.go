// Package analysis implements the advisory analysis branch. Its failures
// degrade the aggregated result but never fail the workflow.
package analysis
