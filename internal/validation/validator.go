package validation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"reslice/internal/config"
	"reslice/internal/imaging"
	"reslice/internal/imaging/niftifile"
	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/services"
	"reslice/internal/stage"
)

// Validator checks that an ingested study file is structurally readable
// before any expensive processing starts.
type Validator struct {
	cfg    *config.Config
	status *jobstatus.Store
	logger *slog.Logger
}

// New constructs the validation stage handler.
func New(cfg *config.Config, status *jobstatus.Store, logger *slog.Logger) *Validator {
	return &Validator{
		cfg:    cfg,
		status: status,
		logger: logging.NewComponentLogger(logger, "validation"),
	}
}

// SetLogger swaps in a context-scoped logger for one execution.
func (v *Validator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		v.logger = logger
	}
}

// Prepare verifies the source file exists and carries an allowed extension.
func (v *Validator) Prepare(ctx context.Context, req *stage.Request) error {
	path := strings.TrimSpace(req.Job.SourcePath)
	if path == "" {
		return services.Wrap(services.ErrInput, "validation", "prepare", "source path is empty", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrInput, "validation", "prepare", "source file missing", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrInput, "validation", "prepare", "source path is a directory", nil)
	}
	if !v.extensionAllowed(req.Job.Filename) {
		return services.Wrap(services.ErrInput, "validation", "prepare",
			fmt.Sprintf("file type not allowed: %s", req.Job.Filename), nil)
	}
	return nil
}

// Execute reads the file deeply enough to prove it will survive
// reconstruction: NIfTI studies must decode to at least one plane, DICOM
// files must carry pixel data.
func (v *Validator) Execute(ctx context.Context, req *stage.Request) (stage.Payload, error) {
	v.status.Update(ctx, req.Job.ID, jobstatus.StatusProcessing, "Validating file...", 10, nil)

	message, err := v.validateContent(req.Job.SourcePath, req.Job.Filename)
	if err != nil {
		return nil, err
	}

	v.logger.Info("file validated",
		logging.String("filename", req.Job.Filename),
		logging.String("detail", message),
	)

	return stage.Payload{
		"status": "validated",
		"file_info": map[string]any{
			"path":      req.Job.SourcePath,
			"filename":  req.Job.Filename,
			"file_size": req.Job.FileSize,
		},
		"message":   message,
		"report_id": req.Job.ReportID,
	}, nil
}

// HealthCheck reports readiness based on the upload directory.
func (v *Validator) HealthCheck(ctx context.Context) stage.Health {
	if _, err := os.Stat(v.cfg.Paths.UploadDir); err != nil {
		return stage.Unhealthy("validation", fmt.Sprintf("upload directory unavailable: %v", err))
	}
	return stage.Healthy("validation")
}

func (v *Validator) extensionAllowed(filename string) bool {
	allowed := v.cfg.Ingest.AllowedExtensions
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

func (v *Validator) validateContent(path, filename string) (string, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".nii"), strings.HasSuffix(name, ".nii.gz"):
		slices, _, err := niftifile.Load(path)
		if err != nil {
			return "", services.Wrap(services.ErrInput, "validation", "validate content", "file validation failed", err)
		}
		if len(slices) == 0 {
			return "", services.Wrap(services.ErrInput, "validation", "validate content", "empty NIfTI file", nil)
		}
		return "Valid NIfTI file", nil
	case imaging.IsDICOMFile(path):
		dataset, err := dicom.ParseFile(path, nil)
		if err != nil {
			return "", services.Wrap(services.ErrInput, "validation", "validate content", "file validation failed", err)
		}
		if _, err := dataset.FindElementByTag(tag.PixelData); err != nil {
			return "", services.Wrap(services.ErrInput, "validation", "validate content", "DICOM has no pixel data", nil)
		}
		return "Valid DICOM file", nil
	default:
		return "File validation passed", nil
	}
}
