package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"reslice/internal/config"
	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/queue"
	"reslice/internal/records"
	"reslice/internal/services"
	"reslice/internal/stage"
)

// findingsByType drives the synthesized report content per modality.
// Unknown report types fall back to the xray vocabulary.
var findingsByType = map[string]struct {
	findings   []string
	organs     []string
	conditions []string
}{
	"xray": {
		findings:   []string{"Normal chest X-ray", "Mild pneumonia", "Clear lungs", "Minor pleural effusion"},
		organs:     []string{"lungs", "heart", "ribs", "diaphragm"},
		conditions: []string{"pneumonia", "atelectasis", "pleural effusion", "normal"},
	},
	"mri": {
		findings:   []string{"Normal brain MRI", "Small lesion detected", "No abnormalities", "Mild edema"},
		organs:     []string{"brain", "spine", "knee", "shoulder"},
		conditions: []string{"normal", "lesion", "inflammation", "degenerative changes"},
	},
	"ct": {
		findings:   []string{"Normal CT scan", "Mild inflammation", "No acute findings", "Small nodule"},
		organs:     []string{"abdomen", "chest", "head", "pelvis"},
		conditions: []string{"normal", "inflammation", "nodule", "cyst"},
	},
}

// Analyzer runs the advisory analysis branch. Analysis failures degrade the
// final result instead of failing the job, so Execute converts its own
// errors into a degraded payload.
type Analyzer struct {
	cfg     *config.Config
	status  *jobstatus.Store
	records records.Service
	logger  *slog.Logger

	rand *rand.Rand
}

// New constructs the analysis stage handler.
func New(cfg *config.Config, status *jobstatus.Store, recordsSvc records.Service, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		cfg:     cfg,
		status:  status,
		records: recordsSvc,
		logger:  logging.NewComponentLogger(logger, "analysis"),
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetLogger swaps in a context-scoped logger for one execution.
func (a *Analyzer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		a.logger = logger
	}
}

// Prepare is a no-op: the analyzer deliberately tolerates missing inputs.
func (a *Analyzer) Prepare(ctx context.Context, req *stage.Request) error {
	return nil
}

// Execute produces the analysis payload. Missing routing identifiers yield a
// skipped payload; internal failures yield a degraded ai_failed payload. The
// returned error is never fatal to the job.
func (a *Analyzer) Execute(ctx context.Context, req *stage.Request) (stage.Payload, error) {
	job := req.Job
	base := a.basePayload(job, req.Input("validation"))

	if job.ClinicID == "" || job.PatientID == "" || job.ReportType == "" || job.ReportID == "" {
		base["status"] = "skipped"
		base["message"] = "AI analysis parameters not provided"
		return base, nil
	}

	a.notify(ctx, job.ReportID, "ai_started")
	a.status.Update(ctx, job.ID, jobstatus.StatusProcessing, "Running AI analysis...", 40, nil)

	analysis, err := a.analyze(ctx, job)
	if err != nil {
		a.logger.Warn("analysis failed, continuing degraded", logging.Error(err))
		a.notify(ctx, job.ReportID, "ai_failed")
		base["status"] = "ai_failed"
		base["ai_result"] = nil
		base["error"] = fmt.Sprintf("AI analysis error: %v", err)
		return base, services.Wrap(services.ErrDegraded, "analysis", "run analysis", "", err)
	}

	a.notify(ctx, job.ReportID, "ai_completed")
	base["status"] = "ai_completed"
	base["ai_result"] = analysis
	return base, nil
}

// HealthCheck always reports ready: the analyzer has no external deps.
func (a *Analyzer) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("analysis")
}

func (a *Analyzer) basePayload(job *queue.Job, validation stage.Payload) stage.Payload {
	return stage.Payload{
		"validation_result": map[string]any(validation),
		"file_info": map[string]any{
			"path":      job.SourcePath,
			"filename":  job.Filename,
			"file_size": job.FileSize,
		},
		"upload_id":   job.UploadID,
		"clinic_id":   job.ClinicID,
		"patient_id":  job.PatientID,
		"report_type": job.ReportType,
		"report_id":   job.ReportID,
	}
}

// analyze synthesizes the model output. The model integration point is this
// function; everything around it already handles degraded results.
func (a *Analyzer) analyze(ctx context.Context, job *queue.Job) (map[string]any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}

	key := strings.ToLower(job.ReportType)
	vocab, ok := findingsByType[key]
	if !ok {
		vocab = findingsByType["xray"]
	}

	finding := vocab.findings[a.rand.Intn(len(vocab.findings))]
	organ := vocab.organs[a.rand.Intn(len(vocab.organs))]
	condition := vocab.conditions[a.rand.Intn(len(vocab.conditions))]
	confidence := 0.75 + a.rand.Float64()*0.24

	a.logger.Info("analysis complete",
		logging.String("finding", finding),
		logging.Float64("confidence", confidence),
	)

	return map[string]any{
		"status":  "success",
		"message": "Analysis pipeline executed",
		"generated_data": map[string]any{
			"finding":    finding,
			"organ":      organ,
			"condition":  condition,
			"confidence": confidence,
		},
		"technical_details": map[string]any{
			"model_version":         fmt.Sprintf("v%d.%d.%d", 1+a.rand.Intn(5), a.rand.Intn(10), a.rand.Intn(10)),
			"preprocessing_applied": []string{"noise_reduction", "contrast_enhancement"},
		},
		"metadata": map[string]any{
			"processing_pipeline_id": uuid.NewString(),
			"upload_id":              job.UploadID,
			"simulation":             true,
		},
	}, nil
}

func (a *Analyzer) notify(ctx context.Context, reportID, marker string) {
	if a.records == nil {
		return
	}
	if err := a.records.UpdateReportStatus(ctx, reportID, marker); err != nil {
		a.logger.Debug("report status update failed", logging.Error(err), logging.String("marker", marker))
	}
}
