// Package queue persists workflow jobs in SQLite and hands them to the
// workflow manager's worker pool. It also serves as the fallback result
// store consulted when a job's Redis status record has expired.
package queue
