// Package jobstatus tracks per-job progress records in Redis with a 24-hour
// TTL and an auxiliary time-ordered index used by a garbage-collection sweep.
// Writes are best-effort: retry up to a fixed bound, then surrender silently.
package jobstatus
