// Package workflow runs the job pipeline: a worker pool claims queued jobs
// and drives each through validation, the parallel processing and analysis
// branches, and final aggregation.
package workflow
