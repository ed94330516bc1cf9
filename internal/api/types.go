package api

import "encoding/json"

// JobView describes a workflow job in a transport-friendly format.
type JobView struct {
	JobID        string          `json:"job_id"`
	UploadID     string          `json:"upload_id,omitempty"`
	ClinicID     string          `json:"clinic_id,omitempty"`
	PatientID    string          `json:"patient_id,omitempty"`
	ReportType   string          `json:"report_type,omitempty"`
	ReportID     string          `json:"report_id,omitempty"`
	Filename     string          `json:"filename,omitempty"`
	FileSize     int64           `json:"file_size,omitempty"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	CreatedAt    string          `json:"created_at,omitempty"`
	UpdatedAt    string          `json:"updated_at,omitempty"`
}

// JobStatusView is the polled status payload: live progress from the status
// store when available, otherwise the durable queue row.
type JobStatusView struct {
	JobID    string          `json:"job_id"`
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Progress int             `json:"progress"`
	Result   json.RawMessage `json:"result,omitempty"`
	// Source records which backend answered: "status_store" or "queue".
	Source string `json:"source"`
}

// IngestResponse acknowledges an accepted upload.
type IngestResponse struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	UploadID string `json:"upload_id"`
	ReportID string `json:"report_id,omitempty"`
	Message  string `json:"message"`
	FileInfo struct {
		Filename string `json:"filename"`
		FileSize int64  `json:"file_size"`
	} `json:"file_info"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running     bool           `json:"running"`
	PID         int            `json:"pid"`
	QueueStats  map[string]int `json:"queue_stats"`
	StatusStore bool           `json:"status_store_available"`
	StageHealth []StageHealth  `json:"stage_health"`
	LastError   string         `json:"last_error,omitempty"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}
