package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reslice/internal/config"
)

const userAgent = "Reslice-Go/0.1.0"

// Service pushes report lifecycle updates to the external record system.
// Callers treat status updates as fire-and-forget: a failed update is logged
// and never fails the stage that issued it. Report inserts are load-bearing
// for the report upload stage and do return actionable errors.
type Service interface {
	UpdateReportStatus(ctx context.Context, reportID, stage string) error
	InsertReport(ctx context.Context, report Report) error
}

// Report is the finished analysis document pushed to the record system.
type Report struct {
	ClinicID   string         `json:"clinic_id"`
	PatientID  string         `json:"patient_id"`
	ReportType string         `json:"report_type"`
	ReportID   string         `json:"report_id"`
	Data       map[string]any `json:"data"`
}

// statusMapping translates internal stage markers to the status vocabulary
// the record system exposes to clinicians. Unknown markers pass through.
var statusMapping = map[string]string{
	"workflow_started":     "workflow_started",
	"workflow_in_progress": "workflow_in_progress",

	"validation_started": "validation_started",
	"validation_failed":  "validation_failed",
	"validated":          "file_validated",

	"processing_started": "processing_started",
	"processing_failed":  "processing_failed",
	"processed":          "file_processed",

	"upload_started": "upload_started",
	"upload_failed":  "upload_failed",
	"uploaded":       "slices_uploaded",

	"ai_started":   "ai_analysis_started",
	"ai_failed":    "ai_analysis_failed",
	"ai_skipped":   "ai_analysis_skipped",
	"ai_completed": "ai_analysis_completed",

	"report_upload_started": "report_upload_started",
	"report_upload_failed":  "report_upload_failed",
	"report_upload_skipped": "report_upload_skipped",
	"report_uploaded":       "report_uploaded",

	"aggregation_started": "aggregation_started",
	"aggregation_failed":  "aggregation_failed",
	"completed":           "completed",

	"file_uploaded":  "file_uploaded",
	"file_too_large": "file_too_large",
	"invalid_file":   "invalid_file",
}

// NewService builds a record service backed by the configured REST endpoint.
// When no endpoint is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	base := strings.TrimSpace(cfg.Records.BaseURL)
	if base == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Records.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	table := strings.TrimSpace(cfg.Records.Table)
	if table == "" {
		table = "report_ai"
	}

	return &restService{
		baseURL: strings.TrimRight(base, "/"),
		table:   table,
		token:   strings.TrimSpace(cfg.Records.Token),
		client:  &http.Client{Timeout: timeout},
	}
}

type restService struct {
	baseURL string
	table   string
	token   string
	client  *http.Client
}

func (s *restService) UpdateReportStatus(ctx context.Context, reportID, stage string) error {
	reportID = strings.TrimSpace(reportID)
	if reportID == "" {
		return nil
	}

	status, ok := statusMapping[stage]
	if !ok {
		status = stage
	}

	body, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return fmt.Errorf("encode status update: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?report_id=eq.%s",
		s.baseURL, url.PathEscape(s.table), url.QueryEscape(reportID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build status update request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	if s.token != "" {
		req.Header.Set("apikey", s.token)
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send status update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("record system returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *restService) InsertReport(ctx context.Context, report Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	endpoint := s.baseURL + "/rest/v1/report_ai_json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build report insert request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	if s.token != "" {
		req.Header.Set("apikey", s.token)
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("record system returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) UpdateReportStatus(context.Context, string, string) error { return nil }

func (noopService) InsertReport(context.Context, Report) error {
	return fmt.Errorf("record system not configured")
}
