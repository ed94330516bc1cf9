package queue

import (
	"slices"
	"strings"
	"time"
)

// Status represents the lifecycle of a workflow job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

// Job represents one workflow instance persisted in SQLite. The job id is the
// workflow identifier used for status reporting; the upload id identifies the
// ingested file and is threaded through every stage untouched.
type Job struct {
	ID           string
	UploadID     string
	ClinicID     string
	PatientID    string
	ReportType   string
	ReportID     string
	SourcePath   string
	Filename     string
	FileSize     int64
	Status       Status
	ErrorMessage string
	ResultJSON   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Queued     int
	Processing int
	Failed     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	Path       string
	FileExists bool
	Readable   bool
	JobsTable  bool
	Intact     bool
	TotalJobs  int
	Error      string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return slices.Clone(allStatuses)
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	return normalized, slices.Contains(allStatuses, normalized)
}

// IsTerminal reports whether a status is final. Terminal jobs are never revived.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
}
