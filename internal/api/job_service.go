package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"reslice/internal/config"
	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/queue"
	"reslice/internal/records"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedType is returned for disallowed file extensions.
	ErrUnsupportedType = errors.New("file type not allowed")
	// ErrNotFound is returned when a job cannot be located anywhere.
	ErrNotFound = errors.New("job not found")
)

// JobService exposes the ingestion and status surface shared by the HTTP
// API and the CLI.
type JobService struct {
	cfg     *config.Config
	store   *queue.Store
	status  *jobstatus.Store
	records records.Service
	logger  *slog.Logger
}

// NewJobService constructs a JobService.
func NewJobService(cfg *config.Config, store *queue.Store, status *jobstatus.Store, recordsSvc records.Service, logger *slog.Logger) *JobService {
	return &JobService{
		cfg:     cfg,
		store:   store,
		status:  status,
		records: recordsSvc,
		logger:  logging.NewComponentLogger(logger, "api"),
	}
}

// SubmitRequest carries the routing metadata accompanying an upload.
type SubmitRequest struct {
	Filename   string
	UploadID   string
	ClinicID   string
	PatientID  string
	ReportType string
	ReportID   string
}

// Ingest persists an uploaded study stream into the upload directory and
// enqueues a workflow job for it. The stream is bounded by the configured
// size limit; oversized or disallowed files are rejected before any job
// state is created.
func (s *JobService) Ingest(ctx context.Context, body io.Reader, req SubmitRequest) (*IngestResponse, error) {
	filename := sanitizeFilename(req.Filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: empty filename", ErrUnsupportedType)
	}
	if !s.extensionAllowed(filename) {
		s.notifyRecords(ctx, req.ReportID, "invalid_file")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}

	uploadID := strings.TrimSpace(req.UploadID)
	if uploadID == "" {
		uploadID = uuid.NewString()
	}

	savePath := filepath.Join(s.cfg.Paths.UploadDir, fmt.Sprintf("%s_%s", uploadID, filename))
	size, err := s.saveBounded(savePath, body)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			s.notifyRecords(ctx, req.ReportID, "file_too_large")
		}
		return nil, err
	}
	s.notifyRecords(ctx, req.ReportID, "file_uploaded")

	reportType := strings.TrimSpace(req.ReportType)
	if reportType == "" {
		reportType = "cbct"
	}

	job, err := s.store.NewJob(ctx, &queue.Job{
		UploadID:   uploadID,
		ClinicID:   strings.TrimSpace(req.ClinicID),
		PatientID:  strings.TrimSpace(req.PatientID),
		ReportType: reportType,
		ReportID:   strings.TrimSpace(req.ReportID),
		SourcePath: savePath,
		Filename:   filename,
		FileSize:   size,
	})
	if err != nil {
		_ = os.Remove(savePath)
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.status.Update(ctx, job.ID, jobstatus.StatusQueued, "Job queued for processing", 0, nil)
	s.notifyRecords(ctx, req.ReportID, "workflow_started")
	s.notifyRecords(ctx, req.ReportID, "workflow_in_progress")

	s.logger.Info("upload accepted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("filename", filename),
		logging.Int64("file_size", size),
	)

	resp := &IngestResponse{
		JobID:    job.ID,
		Status:   string(queue.StatusQueued),
		UploadID: uploadID,
		ReportID: job.ReportID,
		Message:  "File uploaded and processing workflow started",
	}
	resp.FileInfo.Filename = filename
	resp.FileInfo.FileSize = size
	return resp, nil
}

// SubmitPath enqueues an existing local file by copying it into the upload
// directory. Used by the CLI.
func (s *JobService) SubmitPath(ctx context.Context, path string, req SubmitRequest) (*IngestResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer file.Close()

	if strings.TrimSpace(req.Filename) == "" {
		req.Filename = filepath.Base(path)
	}
	return s.Ingest(ctx, file, req)
}

// Status resolves the live status of a job: the status store answers when it
// has a record, otherwise the queue row is translated, otherwise ErrNotFound.
func (s *JobService) Status(ctx context.Context, jobID string) (*JobStatusView, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, ErrNotFound
	}

	if record := s.status.Get(ctx, jobID); record != nil {
		return &JobStatusView{
			JobID:    record.JobID,
			Status:   string(record.Status),
			Message:  record.Message,
			Progress: record.Progress,
			Result:   record.Result,
			Source:   "status_store",
		}, nil
	}

	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}

	view := &JobStatusView{
		JobID:   job.ID,
		Status:  string(job.Status),
		Message: job.ErrorMessage,
		Source:  "queue",
	}
	if job.Status == queue.StatusCompleted {
		view.Progress = 100
	}
	if job.ResultJSON != "" {
		view.Result = json.RawMessage(job.ResultJSON)
	}
	return view, nil
}

// Describe fetches the durable queue row for a job.
func (s *JobService) Describe(ctx context.Context, jobID string) (*JobView, error) {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}
	view := FromJob(job)
	return &view, nil
}

// List returns jobs filtered by status, newest first.
func (s *JobService) List(ctx context.Context, statuses ...queue.Status) ([]JobView, error) {
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Stats returns queue counts keyed by status string.
func (s *JobService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]int, len(stats))
	for status, count := range stats {
		merged[string(status)] = count
	}
	return merged, nil
}

func (s *JobService) saveBounded(path string, body io.Reader) (int64, error) {
	limit := int64(s.cfg.Ingest.MaxFileSizeMiB) * 1024 * 1024

	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create upload file: %w", err)
	}

	written, err := io.Copy(out, io.LimitReader(body, limit+1))
	closeErr := out.Close()
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("write upload file: %w", err)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("write upload file: %w", closeErr)
	}
	if limit > 0 && written > limit {
		_ = os.Remove(path)
		return 0, fmt.Errorf("%w: maximum size %d MiB", ErrFileTooLarge, s.cfg.Ingest.MaxFileSizeMiB)
	}
	return written, nil
}

func (s *JobService) extensionAllowed(filename string) bool {
	allowed := s.cfg.Ingest.AllowedExtensions
	if len(allowed) == 0 {
		return true
	}
	name := strings.ToLower(filename)
	for _, ext := range allowed {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (s *JobService) notifyRecords(ctx context.Context, reportID, marker string) {
	if s.records == nil || reportID == "" {
		return
	}
	if err := s.records.UpdateReportStatus(ctx, reportID, marker); err != nil {
		s.logger.Debug("report status update failed", logging.Error(err), logging.String("marker", marker))
	}
}

// sanitizeFilename strips path components and unsafe characters from an
// uploaded filename.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
