package uploading

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"reslice/internal/config"
	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/objectstore"
	"reslice/internal/queue"
	"reslice/internal/services"
	"reslice/internal/sliceexport"
	"reslice/internal/stage"
	"reslice/internal/textutil"
)

const (
	maxUploadAttempts = 3
	retryBackoffBase  = time.Second

	uploadProgressFloor   = 50
	uploadProgressCeiling = 95
)

// storagePrefix namespaces all slice objects inside the bucket.
const storagePrefix = "medical_slices"

// SliceUploader publishes every exported slice to object storage and
// collects per-view upload manifests.
type SliceUploader struct {
	cfg    *config.Config
	status *jobstatus.Store
	store  *objectstore.Client
	logger *slog.Logger
}

// NewSliceUploader constructs the artifact upload stage handler.
func NewSliceUploader(cfg *config.Config, status *jobstatus.Store, store *objectstore.Client, logger *slog.Logger) *SliceUploader {
	return &SliceUploader{
		cfg:    cfg,
		status: status,
		store:  store,
		logger: logging.NewComponentLogger(logger, "slice-upload"),
	}
}

// SetLogger swaps in a context-scoped logger for one execution.
func (u *SliceUploader) SetLogger(logger *slog.Logger) {
	if logger != nil {
		u.logger = logger
	}
}

// Prepare fails fast when object storage is unconfigured.
func (u *SliceUploader) Prepare(ctx context.Context, req *stage.Request) error {
	if !u.store.Available() {
		return services.Wrap(services.ErrStorage, "uploading", "prepare", "object storage not available", nil)
	}
	return nil
}

// Execute uploads each retained slice with bounded retries. Individual slice
// failures are recorded in the manifest; only an empty export fails the stage.
func (u *SliceUploader) Execute(ctx context.Context, req *stage.Request) (stage.Payload, error) {
	job := req.Job
	u.status.Update(ctx, job.ID, jobstatus.StatusProcessing, "Initializing upload...", uploadProgressFloor, nil)

	processing := req.Input("processing")
	processingResult := stage.MapField(processing, "processing_result")
	outputDir := stage.StringField(processingResult, "output_dir")
	counts := stage.MapField(processingResult, "slice_counts")

	total := 0
	viewCounts := make(map[sliceexport.View]int, len(sliceexport.Views))
	for _, view := range sliceexport.Views {
		count, _ := stage.IntField(counts, string(view))
		viewCounts[view] = count
		total += count
	}
	if total == 0 {
		return nil, services.Wrap(services.ErrOrchestration, "uploading", "upload slices", "no slices to upload", nil)
	}

	manifest := map[string]any{
		"total_uploaded": 0,
		"failed_uploads": 0,
		"storage_structure": map[string]any{
			"clinic_id":   job.ClinicID,
			"patient_id":  job.PatientID,
			"report_type": textutil.SanitizeToken(job.ReportType),
			"report_id":   job.ReportID,
		},
	}
	var uploadErrors []map[string]any
	uploaded, failed, done := 0, 0, 0

	for _, view := range sliceexport.Views {
		count := viewCounts[view]
		if count == 0 {
			continue
		}
		var entries []map[string]any
		for i := 0; i < count; i++ {
			localPath := filepath.Join(outputDir, string(view), fmt.Sprintf("%d.jpg", i))
			entry, err := u.uploadOne(ctx, job, view, i, localPath)
			done++
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				failed++
				uploadErrors = append(uploadErrors, map[string]any{
					"view":        string(view),
					"slice_index": i,
					"error":       err.Error(),
				})
				u.logger.Error("slice upload failed",
					logging.String(logging.FieldView, string(view)),
					logging.Int("slice_index", i),
					logging.Error(err),
				)
				continue
			}
			entries = append(entries, entry)
			uploaded++

			progress := uploadProgressFloor + (uploadProgressCeiling-uploadProgressFloor)*done/total
			u.status.Update(ctx, job.ID, jobstatus.StatusProcessing,
				fmt.Sprintf("Uploading %s slices... (%d/%d)", view, done, total), progress, nil)
		}
		manifest[string(view)] = entries
	}

	manifest["total_uploaded"] = uploaded
	manifest["failed_uploads"] = failed
	manifest["upload_errors"] = uploadErrors

	u.logger.Info("slice upload finished",
		logging.Int("uploaded", uploaded),
		logging.Int("failed", failed),
		logging.Int("total", total),
	)

	return stage.Payload{
		"status":            "uploaded",
		"message":           fmt.Sprintf("Upload completed: %d/%d slices", uploaded, total),
		"upload_result":     manifest,
		"processing_result": map[string]any(processingResult),
		"upload_id":         job.UploadID,
		"clinic_id":         job.ClinicID,
		"patient_id":        job.PatientID,
		"report_type":       job.ReportType,
		"report_id":         job.ReportID,
	}, nil
}

// HealthCheck reports readiness based on storage configuration.
func (u *SliceUploader) HealthCheck(ctx context.Context) stage.Health {
	if !u.store.Available() {
		return stage.Unhealthy("uploading", "object storage not configured")
	}
	return stage.Healthy("uploading")
}

func (u *SliceUploader) uploadOne(ctx context.Context, job *queue.Job, view sliceexport.View, index int, localPath string) (map[string]any, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("read slice: %w", err)
	}

	objectPath := fmt.Sprintf("%s/%s/%s/%s/%s/%s/%d.jpg",
		storagePrefix,
		textutil.SanitizeToken(job.ClinicID),
		textutil.SanitizeToken(job.PatientID),
		textutil.SanitizeToken(job.ReportType),
		textutil.SanitizeToken(job.ReportID),
		view, index)

	var lastErr error
	for attempt := 1; attempt <= maxUploadAttempts; attempt++ {
		publicURL, err := u.store.Upload(ctx, objectPath, data, "image/jpeg")
		if err == nil {
			return map[string]any{
				"slice_index":  index,
				"storage_path": objectPath,
				"public_url":   publicURL,
			}, nil
		}
		lastErr = err
		if attempt < maxUploadAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoffBase * time.Duration(attempt)):
			}
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxUploadAttempts, lastErr)
}
