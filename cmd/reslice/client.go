package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"reslice/internal/api"
)

type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: base,
		http: &http.Client{Timeout: 10 * time.Minute},
	}
}

type submitMeta struct {
	UploadID   string
	ClinicID   string
	PatientID  string
	ReportType string
	ReportID   string
}

// ingest streams a local file to the daemon as a multipart upload.
func (c *apiClient) ingest(ctx context.Context, path string, meta submitMeta) (*api.IngestResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		fields := map[string]string{
			"upload_id":   meta.UploadID,
			"clinic_id":   meta.ClinicID,
			"patient_id":  meta.PatientID,
			"report_type": meta.ReportType,
			"report_id":   meta.ReportID,
		}
		for key, value := range fields {
			if value == "" {
				continue
			}
			if err := form.WriteField(key, value); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		part, err := form.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/ingest", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var resp api.IngestResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) jobStatus(ctx context.Context, jobID string) (*api.JobStatusView, error) {
	var view api.JobStatusView
	if err := c.get(ctx, "/api/jobs/"+url.PathEscape(jobID), &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *apiClient) listJobs(ctx context.Context, statuses []string) ([]api.JobView, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		query := url.Values{}
		for _, status := range statuses {
			query.Add("status", status)
		}
		path += "?" + query.Encode()
	}
	var resp api.JobListResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (c *apiClient) daemonStatus(ctx context.Context) (*api.DaemonStatus, error) {
	var status api.DaemonStatus
	if err := c.get(ctx, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.base)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon: unexpected status %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errDaemonUnreachable marks connection failures so commands can fall back
// to reading the queue database directly.
var errDaemonUnreachable = errors.New("daemon unreachable")

func wrapDialError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w at %s: connection refused; verify resliced is running", errDaemonUnreachable, base)
	}
	return fmt.Errorf("connect to daemon at %s: %w", base, err)
}
