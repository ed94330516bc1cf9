// Package uploading implements the two publishing stages: exported slice
// upload to object storage and advisory report upload to the record system.
package uploading
