// Package aggregation merges branch results into the final job document
// after the processing and analysis branches have both finished.
package aggregation
