package workflow

import (
	"context"

	"reslice/internal/stage"
)

// Health reports the readiness of every configured stage, ordered by
// pipeline position.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	order := []struct {
		name    string
		handler stage.Handler
	}{
		{StageValidation, m.stages.Validator},
		{StageProcessing, m.stages.Processor},
		{StageUploading, m.stages.SliceUploader},
		{StageAnalysis, m.stages.Analyzer},
		{StageReportUpload, m.stages.ReportUploader},
		{StageAggregation, m.stages.Aggregator},
	}

	checks := make([]stage.Health, 0, len(order))
	for _, entry := range order {
		if entry.handler == nil {
			checks = append(checks, stage.Unhealthy(entry.name, "not configured"))
			continue
		}
		checks = append(checks, entry.handler.HealthCheck(ctx))
	}
	return checks
}
