package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("missing file reported as existing")
	}
	if resolved != path {
		t.Fatalf("resolved = %s", resolved)
	}
	if cfg.Workflow.Workers != Default().Workflow.Workers {
		t.Fatalf("workers = %d", cfg.Workflow.Workers)
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
upload_dir = "` + dir + `/uploads"
slices_dir = "` + dir + `/slices"
log_dir = "` + dir + `/logs"

[ingest]
allowed_extensions = ["NII", ".dcm", " nii.gz "]

[workflow]
workers = 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("existing file not detected")
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("workers = %d", cfg.Workflow.Workers)
	}

	want := []string{".nii", ".dcm", ".nii.gz"}
	if len(cfg.Ingest.AllowedExtensions) != len(want) {
		t.Fatalf("extensions = %v", cfg.Ingest.AllowedExtensions)
	}
	for i, ext := range want {
		if cfg.Ingest.AllowedExtensions[i] != ext {
			t.Fatalf("extensions = %v, want %v", cfg.Ingest.AllowedExtensions, want)
		}
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[workflow]
workers = 0

[export]
jpeg_quality = 500
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := Load(path)
	if err == nil {
		t.Fatal("invalid config accepted")
	}
	if !strings.Contains(err.Error(), "workflow.workers") || !strings.Contains(err.Error(), "export.jpeg_quality") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateSoftTimeoutCeiling(t *testing.T) {
	cfg := Default()
	cfg.Workflow.StageSoftTimeout = cfg.Workflow.StageHardTimeout + 1

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "stage_soft_timeout") {
		t.Fatalf("err = %v", err)
	}
}

func TestWriteSampleParsesBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("overwrote existing config")
	}

	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("Load sample: exists=%v err=%v", exists, err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	got, err := ExpandPath("~/data/uploads")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "data", "uploads") {
		t.Fatalf("got %s", got)
	}

	if got, err := ExpandPath(""); err != nil || got != "" {
		t.Fatalf("empty path: %q %v", got, err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.UploadDir = filepath.Join(dir, "a")
	cfg.Paths.SlicesDir = filepath.Join(dir, "b")
	cfg.Paths.LogDir = filepath.Join(dir, "c", "nested")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, p := range []string{cfg.Paths.UploadDir, cfg.Paths.SlicesDir, cfg.Paths.LogDir} {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %s missing: %v", p, err)
		}
	}
}
