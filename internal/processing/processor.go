package processing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reslice/internal/config"
	"reslice/internal/imaging"
	"reslice/internal/imaging/dicomfile"
	"reslice/internal/imaging/niftifile"
	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/queue"
	"reslice/internal/services"
	"reslice/internal/sliceexport"
	"reslice/internal/stage"
)

// Progress within the overall job reserved for this stage. Loader and
// exporter callbacks are rescaled into this window.
const (
	progressFloor   = 20
	progressCeiling = 50
)

// Processor reconstructs the study volume and exports the three orthogonal
// view sequences to the slices directory.
type Processor struct {
	cfg    *config.Config
	status *jobstatus.Store
	logger *slog.Logger
}

// New constructs the processing stage handler.
func New(cfg *config.Config, status *jobstatus.Store, logger *slog.Logger) *Processor {
	return &Processor{
		cfg:    cfg,
		status: status,
		logger: logging.NewComponentLogger(logger, "processing"),
	}
}

// SetLogger swaps in a context-scoped logger for one execution.
func (p *Processor) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Prepare verifies the source still exists and the output root is writable.
func (p *Processor) Prepare(ctx context.Context, req *stage.Request) error {
	if _, err := os.Stat(req.Job.SourcePath); err != nil {
		return services.Wrap(services.ErrInput, "processing", "prepare", "source file missing", err)
	}
	if err := os.MkdirAll(p.outputDir(req.Job.UploadID), 0o755); err != nil {
		return services.Wrap(services.ErrStorage, "processing", "prepare", "create output directory", err)
	}
	return nil
}

// Execute loads the study, stacks it into a volume, normalizes it, and
// writes the filtered JPEG sequences for all three views.
func (p *Processor) Execute(ctx context.Context, req *stage.Request) (stage.Payload, error) {
	p.report(ctx, req.Job.ID, progressFloor, "Processing medical file...")

	slices, spacing, sourceFiles, err := p.loadStudy(ctx, req.Job)
	if err != nil {
		return nil, err
	}

	p.report(ctx, req.Job.ID, 35, "Creating volume...")
	volume, err := imaging.Stack(slices, spacing)
	if err != nil {
		return nil, err
	}

	gray, constant := volume.Normalize()
	if constant {
		p.logger.Warn("constant intensity data detected")
	}

	exporter := sliceexport.New(sliceexport.Options{
		JPEGQuality:      p.cfg.Export.JPEGQuality,
		StdDevThreshold:  p.cfg.Export.StdDevThreshold,
		ProgressInterval: p.cfg.Export.ProgressInterval,
	}, p.logger)
	exporter.Progress = func(percent int, message string) {
		p.report(ctx, req.Job.ID, scale(percent, 40, progressCeiling), message)
	}

	outputDir := p.outputDir(req.Job.UploadID)
	exported, err := exporter.Export(ctx, gray, outputDir)
	if err != nil {
		return nil, err
	}

	total := 0
	counts := make(map[string]any, len(exported.Counts))
	indices := make(map[string]any, len(exported.SourceIndices))
	for view, count := range exported.Counts {
		counts[string(view)] = count
		total += count
	}
	for view, idx := range exported.SourceIndices {
		indices[string(view)] = idx
	}

	p.logger.Info("study processed",
		logging.Int("source_files", sourceFiles),
		logging.Int("total_slices", total),
	)

	processingResult := map[string]any{
		"status":       "success",
		"message":      "Medical file processed successfully",
		"slice_counts": counts,
		"voxel_sizes":  spacing,
		"data_shape":   gray.Shape(),
		"output_id":    req.Job.UploadID,
		"output_dir":   outputDir,
		"source_files": sourceFiles,
		"total_slices": total,
		// Maps each exported index back to its plane position in the volume.
		"source_indices": indices,
	}

	return stage.Payload{
		"status":            "processed",
		"processing_result": processingResult,
		"upload_id":         req.Job.UploadID,
		"file_info": map[string]any{
			"path":      req.Job.SourcePath,
			"filename":  req.Job.Filename,
			"file_size": req.Job.FileSize,
		},
		"report_id": req.Job.ReportID,
	}, nil
}

// HealthCheck reports readiness based on the slices directory.
func (p *Processor) HealthCheck(ctx context.Context) stage.Health {
	if err := os.MkdirAll(p.cfg.Paths.SlicesDir, 0o755); err != nil {
		return stage.Unhealthy("processing", fmt.Sprintf("slices directory unavailable: %v", err))
	}
	return stage.Healthy("processing")
}

func (p *Processor) loadStudy(ctx context.Context, job *queue.Job) ([]imaging.Slice, imaging.Spacing, int, error) {
	name := strings.ToLower(job.Filename)
	if strings.HasSuffix(name, ".nii") || strings.HasSuffix(name, ".nii.gz") {
		p.report(ctx, job.ID, 25, "Loading NIfTI file...")
		slices, spacing, err := niftifile.Load(job.SourcePath)
		if err != nil {
			return nil, imaging.Spacing{}, 0, err
		}
		return slices, spacing, 1, nil
	}

	loader := dicomfile.NewLoader(filepath.Dir(job.SourcePath), p.logger)
	loader.Progress = func(percent int, message string) {
		p.report(ctx, job.ID, scale(percent, 25, 35), message)
	}
	slices, spacing, err := loader.Load(ctx)
	if err != nil {
		return nil, imaging.Spacing{}, 0, err
	}
	return slices, spacing, len(slices), nil
}

func (p *Processor) outputDir(uploadID string) string {
	return filepath.Join(p.cfg.Paths.SlicesDir, uploadID)
}

func (p *Processor) report(ctx context.Context, jobID string, progress int, message string) {
	p.status.Update(ctx, jobID, jobstatus.StatusProcessing, message, progress, nil)
}

// scale maps a local [0,100] progress value into [floor,ceiling].
func scale(local, floor, ceiling int) int {
	if local < 0 {
		local = 0
	}
	if local > 100 {
		local = 100
	}
	return floor + (ceiling-floor)*local/100
}
