package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"reslice/internal/logging"
	"reslice/internal/queue"
	"reslice/internal/services"
	"reslice/internal/stage"
	"reslice/internal/stageexec"
)

// processJob drives one claimed job through the pipeline graph:
//
//	validation
//	  -> processing -> uploading        (primary branch)
//	  -> analysis   -> report upload    (secondary, advisory)
//	aggregation after both branches finish
//
// A primary-branch failure fails the job. Secondary-branch failures are
// absorbed into a degraded analysis payload so aggregation still runs.
func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	jobCtx := services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(jobCtx, m.logger)
	logger.Info("job started", logging.String(logging.FieldEventType, "job_start"))

	inputs := map[string]stage.Payload{}
	var inputsMu sync.Mutex
	record := func(name string, payload stage.Payload) {
		inputsMu.Lock()
		inputs[name] = payload
		inputsMu.Unlock()
	}
	snapshot := func() map[string]stage.Payload {
		inputsMu.Lock()
		defer inputsMu.Unlock()
		copied := make(map[string]stage.Payload, len(inputs))
		for k, v := range inputs {
			copied[k] = v
		}
		return copied
	}

	validated, err := m.runStage(jobCtx, job, StageValidation, m.stages.Validator, snapshot(), markers{
		start:   "validation_started",
		success: "validated",
		failure: "validation_failed",
	})
	if err != nil {
		return m.failJob(jobCtx, logger, job, err)
	}
	record(StageValidation, validated)

	// Both branch contexts derive straight from jobCtx. A primary failure
	// fails the job at the barrier but must not cancel the advisory branch,
	// which always runs to completion on its own.
	var group errgroup.Group

	group.Go(func() error {
		branchCtx := services.WithBranch(jobCtx, branchPrimary)
		processed, err := m.runStage(branchCtx, job, StageProcessing, m.stages.Processor, snapshot(), markers{
			success: "processed",
			failure: "processing_failed",
		})
		if err != nil {
			return err
		}
		record(StageProcessing, processed)

		uploaded, err := m.runStage(branchCtx, job, StageUploading, m.stages.SliceUploader, snapshot(), markers{
			start:   "upload_started",
			success: "uploaded",
			failure: "upload_failed",
		})
		if err != nil {
			return err
		}
		record(StageUploading, uploaded)
		return nil
	})

	group.Go(func() error {
		branchCtx := services.WithBranch(jobCtx, branchSecondary)
		analyzed, err := m.runStage(branchCtx, job, StageAnalysis, m.stages.Analyzer, snapshot(), markers{})
		if err != nil {
			// The advisory branch never fails the job: record the
			// degradation and let aggregation see what happened.
			logger.Warn("analysis branch failed, continuing degraded", logging.Error(err))
			record(StageAnalysis, degradedPayload(job, err))
			return nil
		}
		record(StageAnalysis, analyzed)

		reported, err := m.runStage(branchCtx, job, StageReportUpload, m.stages.ReportUploader, snapshot(), markers{})
		if err != nil {
			logger.Warn("report upload failed, continuing degraded", logging.Error(err))
			record(StageReportUpload, degradedPayload(job, err))
			return nil
		}
		record(StageReportUpload, reported)
		return nil
	})

	if err := group.Wait(); err != nil {
		return m.failJob(jobCtx, logger, job, err)
	}

	final, err := m.runStage(jobCtx, job, StageAggregation, m.stages.Aggregator, snapshot(), markers{
		start:   "aggregation_started",
		success: "completed",
		failure: "aggregation_failed",
	})
	if err != nil {
		return m.failJob(jobCtx, logger, job, err)
	}

	encoded, err := json.Marshal(final)
	if err != nil {
		return m.failJob(jobCtx, logger, job,
			services.Wrap(services.ErrOrchestration, StageAggregation, "encode result", "", err))
	}

	job.Status = queue.StatusCompleted
	job.ErrorMessage = ""
	job.ResultJSON = string(encoded)
	if err := m.store.Update(jobCtx, job); err != nil {
		logger.Error("failed to persist completed job", logging.Error(err))
		return err
	}

	logger.Info("job completed", logging.String(logging.FieldEventType, "job_complete"))
	return nil
}

type markers struct {
	start   string
	success string
	failure string
}

func (m *Manager) runStage(ctx context.Context, job *queue.Job, name string, handler stage.Handler, inputs map[string]stage.Payload, marks markers) (stage.Payload, error) {
	return stageexec.Run(ctx, stageexec.Options{
		Logger:        m.logger,
		Status:        m.status,
		Records:       m.records,
		Handler:       handler,
		StageName:     name,
		StartMarker:   marks.start,
		SuccessMarker: marks.success,
		FailureMarker: marks.failure,
		Job:           job,
		Inputs:        inputs,
		SoftTimeout:   m.softTimeout,
		HardTimeout:   m.hardTimeout,
	})
}

func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, job *queue.Job, stageErr error) error {
	job.SetFailed(services.Message(stageErr))
	if err := m.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	logger.Error("job failed",
		logging.String(logging.FieldEventType, "job_failed"),
		logging.Error(stageErr),
	)
	return stageErr
}

func degradedPayload(job *queue.Job, err error) stage.Payload {
	return stage.Payload{
		"status":    "ai_failed",
		"ai_result": nil,
		"error":     services.Message(err),
		"report_id": job.ReportID,
	}
}
