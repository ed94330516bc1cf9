package aggregation

import (
	"context"
	"encoding/json"
	"log/slog"

	"reslice/internal/config"
	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/services"
	"reslice/internal/stage"
)

// Aggregator merges the branch payloads into the final workflow result.
// Extraction is tolerant: a missing or malformed branch payload yields nil
// fields, never an aggregation failure.
type Aggregator struct {
	cfg    *config.Config
	status *jobstatus.Store
	logger *slog.Logger
}

// New constructs the aggregation stage handler.
func New(cfg *config.Config, status *jobstatus.Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		cfg:    cfg,
		status: status,
		logger: logging.NewComponentLogger(logger, "aggregation"),
	}
}

// SetLogger swaps in a context-scoped logger for one execution.
func (a *Aggregator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		a.logger = logger
	}
}

// Prepare requires the primary branch to have produced an upload payload.
func (a *Aggregator) Prepare(ctx context.Context, req *stage.Request) error {
	if req.Input("uploading") == nil {
		return services.Wrap(services.ErrOrchestration, "aggregation", "prepare", "primary branch produced no result", nil)
	}
	return nil
}

// Execute assembles the final result document, persists it to the status
// store with progress 100, and returns it for queue persistence.
func (a *Aggregator) Execute(ctx context.Context, req *stage.Request) (stage.Payload, error) {
	a.status.Update(ctx, req.Job.ID, jobstatus.StatusProcessing, "Aggregating results...", 95, nil)

	validation := req.Input("validation")
	uploadResult := req.Input("uploading")
	analysisResult := req.Input("report_uploading")
	if analysisResult == nil {
		analysisResult = req.Input("analysis")
	}

	final := stage.Payload{
		"status":             "completed",
		"message":            "Medical file processing completed successfully",
		"validation_result":  map[string]any(validation),
		"ai_result":          analysisResult["ai_result"],
		"upload_result":      uploadResult["upload_result"],
		"processing_result":  uploadResult["processing_result"],
		"upload_id":          firstNonEmpty(stage.StringField(uploadResult, "upload_id"), req.Job.UploadID),
		"report_id":          req.Job.ReportID,
		"workflow_completed": true,
	}

	encoded, err := json.Marshal(final)
	if err != nil {
		return nil, services.Wrap(services.ErrOrchestration, "aggregation", "encode result", "", err)
	}

	a.status.Update(ctx, req.Job.ID, jobstatus.StatusCompleted, "Workflow completed", 100, encoded)
	a.logger.Info("workflow aggregated", logging.Int("result_bytes", len(encoded)))

	return final, nil
}

// HealthCheck always reports ready.
func (a *Aggregator) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("aggregation")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
