package uploading

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reslice/internal/config"
	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/records"
	"reslice/internal/services"
	"reslice/internal/stage"
)

// ReportUploader pushes the finished analysis document to the record
// system. It runs in the advisory branch, so failures degrade rather than
// fail the job, and it skips entirely when analysis did not complete.
type ReportUploader struct {
	cfg     *config.Config
	status  *jobstatus.Store
	records records.Service
	logger  *slog.Logger
}

// NewReportUploader constructs the report upload stage handler.
func NewReportUploader(cfg *config.Config, status *jobstatus.Store, recordsSvc records.Service, logger *slog.Logger) *ReportUploader {
	return &ReportUploader{
		cfg:     cfg,
		status:  status,
		records: recordsSvc,
		logger:  logging.NewComponentLogger(logger, "report-upload"),
	}
}

// SetLogger swaps in a context-scoped logger for one execution.
func (u *ReportUploader) SetLogger(logger *slog.Logger) {
	if logger != nil {
		u.logger = logger
	}
}

// Prepare is a no-op: the skip path must run even when nothing is configured.
func (u *ReportUploader) Prepare(ctx context.Context, req *stage.Request) error {
	return nil
}

// Execute uploads the analysis report. When the analysis payload is absent
// or not ai_completed, the upload is skipped and the job continues.
func (u *ReportUploader) Execute(ctx context.Context, req *stage.Request) (stage.Payload, error) {
	job := req.Job
	analysis := req.Input("analysis")

	if stage.StringField(analysis, "status") != "ai_completed" {
		u.logger.Warn("analysis not completed, skipping report upload")
		return stage.Payload{
			"status":    "skipped",
			"message":   "AI analysis not completed, skipping report upload",
			"ai_result": map[string]any(analysis),
			"report_id": job.ReportID,
		}, nil
	}

	u.notify(ctx, job.ReportID, "report_upload_started")
	u.status.Update(ctx, job.ID, jobstatus.StatusProcessing, "Uploading AI report to storage...", 80, nil)

	analysisData := stage.MapField(analysis, "ai_result")
	if generated := stage.MapField(analysisData, "generated_data"); generated != nil {
		analysisData = generated
	}

	document := map[string]any{
		"report_id":    job.ReportID,
		"patient_id":   job.PatientID,
		"clinic_id":    job.ClinicID,
		"report_type":  job.ReportType,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"ai_analysis":  map[string]any(analysisData),
		"file_info": map[string]any{
			"path":      job.SourcePath,
			"filename":  job.Filename,
			"file_size": job.FileSize,
		},
		"upload_id": job.UploadID,
		"metadata": map[string]any{
			"processing_pipeline_id": uuid.NewString(),
			"upload_id":              job.UploadID,
			"job_id":                 job.ID,
		},
	}

	err := u.records.InsertReport(ctx, records.Report{
		ClinicID:   job.ClinicID,
		PatientID:  job.PatientID,
		ReportType: job.ReportType,
		ReportID:   job.ReportID,
		Data:       document,
	})
	if err != nil {
		u.notify(ctx, job.ReportID, "report_upload_failed")
		payload := stage.Payload{
			"status":    "report_upload_failed",
			"error":     fmt.Sprintf("Report upload error: %v", err),
			"ai_result": map[string]any(analysis),
			"report_id": job.ReportID,
		}
		return payload, services.Wrap(services.ErrDegraded, "report_uploading", "insert report", "", err)
	}

	u.notify(ctx, job.ReportID, "report_uploaded")
	u.logger.Info("report uploaded", logging.String("report_id", job.ReportID))

	return stage.Payload{
		"status":    "report_uploaded",
		"message":   "AI report uploaded to storage successfully",
		"ai_result": map[string]any(analysis),
		"report_id": job.ReportID,
	}, nil
}

// HealthCheck always reports ready: missing configuration degrades instead
// of blocking startup.
func (u *ReportUploader) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("report_uploading")
}

func (u *ReportUploader) notify(ctx context.Context, reportID, marker string) {
	if u.records == nil {
		return
	}
	if err := u.records.UpdateReportStatus(ctx, reportID, marker); err != nil {
		u.logger.Debug("report status update failed", logging.Error(err), logging.String("marker", marker))
	}
}
