package testsupport

import (
	"path/filepath"
	"testing"

	"reslice/internal/config"
)

// ConfigOption mutates the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.SlicesDir = filepath.Join(base, "slices")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Workflow.Workers = 1
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.ErrorRetryInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithMaxFileSize overrides the upload size limit on the test config.
func WithMaxFileSize(mib int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ingest.MaxFileSizeMiB = mib
	}
}

// WithAllowedExtensions overrides the accepted upload extensions.
func WithAllowedExtensions(exts ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ingest.AllowedExtensions = exts
	}
}

// WithExport overrides the slice export tuning knobs.
func WithExport(quality int, threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Export.JPEGQuality = quality
		cfg.Export.StdDevThreshold = threshold
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.UploadDir)
}
