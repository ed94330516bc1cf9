package validation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reslice/internal/logging"
	"reslice/internal/queue"
	"reslice/internal/services"
	"reslice/internal/stage"
	"reslice/internal/testsupport"
)

func newRequest(t *testing.T, sourcePath, filename string) *stage.Request {
	t.Helper()
	return &stage.Request{Job: &queue.Job{
		ID:         "job-1",
		UploadID:   "upload-1",
		ReportID:   "report-1",
		SourcePath: sourcePath,
		Filename:   filename,
	}}
}

func TestPrepareRejectsMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	v := New(cfg, nil, logging.NewNop())

	err := v.Prepare(context.Background(), newRequest(t, filepath.Join(cfg.Paths.UploadDir, "absent.nii"), "absent.nii"))
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("err = %v, want input error", err)
	}
}

func TestPrepareRejectsDisallowedExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(cfg.Paths.UploadDir, "study.txt")
	testsupport.WriteFile(t, path, 10)

	v := New(cfg, nil, logging.NewNop())
	err := v.Prepare(context.Background(), newRequest(t, path, "study.txt"))
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("err = %v, want input error", err)
	}
}

func TestPrepareRejectsDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	v := New(cfg, nil, logging.NewNop())

	err := v.Prepare(context.Background(), newRequest(t, cfg.Paths.UploadDir, "uploads.nii"))
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("err = %v, want input error", err)
	}
}

func TestExecuteValidatesNIfTI(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(cfg.Paths.UploadDir, "study.nii")
	testsupport.WriteNIfTI(t, path, 4, 4, 2, nil)

	v := New(cfg, nil, logging.NewNop())
	req := newRequest(t, path, "study.nii")
	if err := v.Prepare(context.Background(), req); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	payload, err := v.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if payload["status"] != "validated" {
		t.Fatalf("status = %v", payload["status"])
	}
	if payload["message"] != "Valid NIfTI file" {
		t.Fatalf("message = %v", payload["message"])
	}
	info, ok := payload["file_info"].(map[string]any)
	if !ok || info["filename"] != "study.nii" {
		t.Fatalf("file_info = %v", payload["file_info"])
	}
	if payload["report_id"] != "report-1" {
		t.Fatalf("report_id = %v", payload["report_id"])
	}
}

func TestExecuteRejectsCorruptNIfTI(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(cfg.Paths.UploadDir, "study.nii")
	testsupport.WriteFile(t, path, 400)

	v := New(cfg, nil, logging.NewNop())
	_, err := v.Execute(context.Background(), newRequest(t, path, "study.nii"))
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("err = %v, want input error", err)
	}
}

func TestHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	v := New(cfg, nil, logging.NewNop())

	if health := v.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("health = %+v, want ready", health)
	}

	if err := os.RemoveAll(cfg.Paths.UploadDir); err != nil {
		t.Fatalf("remove upload dir: %v", err)
	}
	if health := v.HealthCheck(context.Background()); health.Ready {
		t.Fatal("health ready with missing upload dir")
	}
}
