package workflow

import "reslice/internal/stage"

// Stage names as they appear in payload input maps, logs, and context.
const (
	StageValidation   = "validation"
	StageProcessing   = "processing"
	StageUploading    = "uploading"
	StageAnalysis     = "analysis"
	StageReportUpload = "report_uploading"
	StageAggregation  = "aggregation"
)

// Branch names for context annotation. The primary branch gates job
// success; the secondary branch is advisory.
const (
	branchPrimary   = "primary"
	branchSecondary = "secondary"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Validator      stage.Handler
	Processor      stage.Handler
	SliceUploader  stage.Handler
	Analyzer       stage.Handler
	ReportUploader stage.Handler
	Aggregator     stage.Handler
}

func (s StageSet) named() map[string]stage.Handler {
	return map[string]stage.Handler{
		StageValidation:   s.Validator,
		StageProcessing:   s.Processor,
		StageUploading:    s.SliceUploader,
		StageAnalysis:     s.Analyzer,
		StageReportUpload: s.ReportUploader,
		StageAggregation:  s.Aggregator,
	}
}
