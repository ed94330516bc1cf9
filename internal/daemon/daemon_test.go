package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"reslice/internal/api"
	"reslice/internal/config"
	"reslice/internal/logging"
	"reslice/internal/queue"
	"reslice/internal/stage"
	"reslice/internal/testsupport"
	"reslice/internal/workflow"
)

type okHandler struct {
	payload stage.Payload
}

func (h okHandler) Prepare(ctx context.Context, req *stage.Request) error { return nil }

func (h okHandler) Execute(ctx context.Context, req *stage.Request) (stage.Payload, error) {
	return h.payload, nil
}

func (h okHandler) HealthCheck(ctx context.Context) stage.Health { return stage.Healthy("ok") }

func newTestDaemon(t *testing.T) (*Daemon, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	status := testsupport.NewStatusStore(t, cfg)

	stages := workflow.StageSet{
		Validator:      okHandler{payload: stage.Payload{"status": "validated"}},
		Processor:      okHandler{payload: stage.Payload{"status": "processed"}},
		SliceUploader:  okHandler{payload: stage.Payload{"status": "uploaded"}},
		Analyzer:       okHandler{payload: stage.Payload{"status": "ai_completed"}},
		ReportUploader: okHandler{payload: stage.Payload{"status": "report_uploaded"}},
		Aggregator:     okHandler{payload: stage.Payload{"status": "completed", "workflow_completed": true}},
	}
	wf := workflow.NewManager(cfg, store, status, nil, stages, logging.NewNop())
	jobSvc := api.NewJobService(cfg, store, status, nil, logging.NewNop())

	d, err := New(cfg, store, status, jobSvc, wf, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, cfg
}

func startDaemon(t *testing.T, d *Daemon) string {
	t.Helper()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return "http://" + d.server.listener.Addr().String()
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestDaemonServesUploadLifecycle(t *testing.T) {
	d, _ := newTestDaemon(t)
	base := startDaemon(t, d)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("clinic_id", "clinic-1")
	_ = writer.WriteField("patient_id", "patient-1")
	_ = writer.WriteField("report_type", "ct")
	_ = writer.WriteField("report_id", "report-1")
	part, err := writer.CreateFormFile("file", "study.nii")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = part.Write([]byte("study bytes"))
	_ = writer.Close()

	resp, err := http.Post(base+"/api/ingest", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST ingest: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("ingest status = %d", resp.StatusCode)
	}
	var ingest api.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&ingest); err != nil {
		t.Fatalf("decode ingest: %v", err)
	}
	if ingest.JobID == "" {
		t.Fatal("no job id returned")
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		var view api.JobStatusView
		code := getJSON(t, fmt.Sprintf("%s/api/jobs/%s", base, ingest.JobID), &view)
		if code != http.StatusOK {
			t.Fatalf("job status code = %d", code)
		}
		if view.Status == string(queue.StatusCompleted) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in status %s", view.Status)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestDaemonRejectsUploadWithoutFile(t *testing.T) {
	d, _ := newTestDaemon(t)
	base := startDaemon(t, d)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("clinic_id", "clinic-1")
	_ = writer.Close()

	resp, err := http.Post(base+"/api/ingest", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST ingest: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDaemonStatusEndpoint(t *testing.T) {
	d, _ := newTestDaemon(t)
	base := startDaemon(t, d)

	var status api.DaemonStatus
	if code := getJSON(t, base+"/api/status", &status); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if !status.Running {
		t.Fatal("daemon not reported running")
	}
	if len(status.StageHealth) != 6 {
		t.Fatalf("stage health entries = %d", len(status.StageHealth))
	}
	for _, health := range status.StageHealth {
		if !health.Ready {
			t.Fatalf("stage %s not ready", health.Name)
		}
	}
	if !status.StatusStore {
		t.Fatal("status store not reported available")
	}
}

func TestDaemonHealthEndpoint(t *testing.T) {
	d, _ := newTestDaemon(t)
	base := startDaemon(t, d)

	var health map[string]any
	if code := getJSON(t, base+"/api/health", &health); code != http.StatusOK {
		t.Fatalf("health code = %d", code)
	}
	if health["status"] != "healthy" {
		t.Fatalf("health = %v", health)
	}
}

func TestDaemonUnknownJobReturns404(t *testing.T) {
	d, _ := newTestDaemon(t)
	base := startDaemon(t, d)

	if code := getJSON(t, base+"/api/jobs/missing", nil); code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", code)
	}
}

func TestDaemonDoubleStart(t *testing.T) {
	d, _ := newTestDaemon(t)
	startDaemon(t, d)

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second start succeeded")
	}
}
