package analysis

import (
	"context"
	"sync"
	"testing"

	"reslice/internal/logging"
	"reslice/internal/queue"
	"reslice/internal/records"
	"reslice/internal/services"
	"reslice/internal/stage"
	"reslice/internal/testsupport"
)

type markerRecorder struct {
	mu      sync.Mutex
	markers []string
}

func (m *markerRecorder) UpdateReportStatus(ctx context.Context, reportID, marker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers = append(m.markers, marker)
	return nil
}

func (m *markerRecorder) InsertReport(ctx context.Context, report records.Report) error {
	return nil
}

func fullJob() *queue.Job {
	return &queue.Job{
		ID:         "job-1",
		UploadID:   "upload-1",
		ClinicID:   "clinic-1",
		PatientID:  "patient-1",
		ReportType: "mri",
		ReportID:   "report-1",
		SourcePath: "/tmp/study.nii",
		Filename:   "study.nii",
	}
}

func TestExecuteProducesAnalysisResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	recorder := &markerRecorder{}
	a := New(cfg, nil, recorder, logging.NewNop())

	req := &stage.Request{
		Job:    fullJob(),
		Inputs: map[string]stage.Payload{"validation": {"status": "validated"}},
	}
	payload, err := a.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if payload["status"] != "ai_completed" {
		t.Fatalf("status = %v", payload["status"])
	}

	result, ok := payload["ai_result"].(map[string]any)
	if !ok {
		t.Fatalf("ai_result = %T", payload["ai_result"])
	}
	generated, ok := result["generated_data"].(map[string]any)
	if !ok {
		t.Fatalf("generated_data = %T", result["generated_data"])
	}
	confidence, ok := generated["confidence"].(float64)
	if !ok || confidence < 0.75 || confidence > 0.99 {
		t.Fatalf("confidence = %v", generated["confidence"])
	}

	// The mri vocabulary must drive the synthesized finding.
	finding, _ := generated["finding"].(string)
	known := map[string]bool{
		"Normal brain MRI": true, "Small lesion detected": true,
		"No abnormalities": true, "Mild edema": true,
	}
	if !known[finding] {
		t.Fatalf("finding = %q not in mri vocabulary", finding)
	}

	if len(recorder.markers) != 2 || recorder.markers[0] != "ai_started" || recorder.markers[1] != "ai_completed" {
		t.Fatalf("markers = %v", recorder.markers)
	}
}

func TestExecuteSkipsWithoutRoutingIdentifiers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	recorder := &markerRecorder{}
	a := New(cfg, nil, recorder, logging.NewNop())

	job := fullJob()
	job.PatientID = ""
	payload, err := a.Execute(context.Background(), &stage.Request{Job: job})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if payload["status"] != "skipped" {
		t.Fatalf("status = %v, want skipped", payload["status"])
	}
	if payload["message"] != "AI analysis parameters not provided" {
		t.Fatalf("message = %v", payload["message"])
	}
	if len(recorder.markers) != 0 {
		t.Fatalf("markers = %v, want none", recorder.markers)
	}
}

func TestExecuteUnknownReportTypeFallsBackToXray(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	a := New(cfg, nil, nil, logging.NewNop())

	job := fullJob()
	job.ReportType = "ultrasound"
	payload, err := a.Execute(context.Background(), &stage.Request{Job: job})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result := payload["ai_result"].(map[string]any)
	generated := result["generated_data"].(map[string]any)
	organ, _ := generated["organ"].(string)
	known := map[string]bool{"lungs": true, "heart": true, "ribs": true, "diaphragm": true}
	if !known[organ] {
		t.Fatalf("organ = %q not in xray vocabulary", organ)
	}
}

func TestExecuteCancelledContextDegrades(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	a := New(cfg, nil, nil, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload, err := a.Execute(ctx, &stage.Request{Job: fullJob()})
	if err == nil {
		t.Fatal("expected degraded error")
	}
	if services.IsFatal(err) {
		t.Fatalf("degraded error classified fatal: %v", err)
	}
	if payload["status"] != "ai_failed" {
		t.Fatalf("status = %v, want ai_failed", payload["status"])
	}
	if payload["error"] == "" {
		t.Fatal("error detail missing")
	}
}
