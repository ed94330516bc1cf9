package api

import (
	"encoding/json"
	"time"

	"reslice/internal/queue"
)

// FromJob converts a queue row into its API representation.
func FromJob(job *queue.Job) JobView {
	if job == nil {
		return JobView{}
	}
	view := JobView{
		JobID:        job.ID,
		UploadID:     job.UploadID,
		ClinicID:     job.ClinicID,
		PatientID:    job.PatientID,
		ReportType:   job.ReportType,
		ReportID:     job.ReportID,
		Filename:     job.Filename,
		FileSize:     job.FileSize,
		Status:       string(job.Status),
		ErrorMessage: job.ErrorMessage,
	}
	if job.ResultJSON != "" {
		view.Result = json.RawMessage(job.ResultJSON)
	}
	if !job.CreatedAt.IsZero() {
		view.CreatedAt = job.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !job.UpdatedAt.IsZero() {
		view.UpdatedAt = job.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return view
}

// FromJobs converts a job list.
func FromJobs(jobs []*queue.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, FromJob(job))
	}
	return views
}
