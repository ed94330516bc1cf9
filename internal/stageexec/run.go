package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/queue"
	"reslice/internal/records"
	"reslice/internal/services"
	"reslice/internal/stage"
)

// Options controls stage execution and status reporting behavior.
type Options struct {
	Logger  *slog.Logger
	Status  *jobstatus.Store
	Records records.Service
	Handler stage.Handler

	StageName string
	// StartMarker, SuccessMarker, and FailureMarker are the advisory
	// record-system stage strings published around execution. Empty markers
	// suppress the update.
	StartMarker   string
	SuccessMarker string
	FailureMarker string

	Job    *queue.Job
	Inputs map[string]stage.Payload

	// SoftTimeout logs a warning when exceeded; HardTimeout cancels the
	// stage context. Zero disables the respective ceiling.
	SoftTimeout time.Duration
	HardTimeout time.Duration
}

// Run executes one stage against a job and returns the stage payload. On
// failure the job status record is marked failed and the record system is
// told, but persistence of the queue row is left to the caller.
func Run(ctx context.Context, opts Options) (stage.Payload, error) {
	if opts.Handler == nil {
		return nil, fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}
	if opts.Job == nil {
		return nil, fmt.Errorf("queue job is required")
	}

	stageCtx := services.WithStage(services.WithJobID(ctx, opts.Job.ID), opts.StageName)
	if opts.HardTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, opts.HardTimeout)
		defer cancel()
	}

	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if opts.SoftTimeout > 0 {
		timer := time.AfterFunc(opts.SoftTimeout, func() {
			stageLogger.Warn("stage exceeded soft time ceiling",
				logging.String(logging.FieldEventType, "stage_soft_timeout"),
				logging.Duration("soft_timeout", opts.SoftTimeout),
			)
		})
		defer timer.Stop()
	}

	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("source_file", strings.TrimSpace(opts.Job.SourcePath)),
	)
	notifyRecords(stageCtx, stageLogger, opts, opts.StartMarker)

	started := time.Now()
	request := &stage.Request{Job: opts.Job, Inputs: opts.Inputs}

	if err := opts.Handler.Prepare(stageCtx, request); err != nil {
		return nil, handleFailure(ctx, stageLogger, opts, classifyTimeout(stageCtx, err))
	}

	payload, err := opts.Handler.Execute(stageCtx, request)
	if err != nil {
		if !services.IsFatal(err) {
			// Degraded results carry a usable payload; the stage counts
			// as finished and the workflow continues.
			stageLogger.Warn("stage finished degraded",
				logging.String(logging.FieldEventType, "stage_degraded"),
				logging.Error(err),
			)
			return payload, nil
		}
		return nil, handleFailure(ctx, stageLogger, opts, classifyTimeout(stageCtx, err))
	}

	notifyRecords(ctx, stageLogger, opts, opts.SuccessMarker)
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return payload, nil
}

// classifyTimeout rewraps context-deadline failures so callers can tell a
// hard-ceiling kill apart from an ordinary stage error.
func classifyTimeout(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || (ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		stageName, _ := services.StageFromContext(ctx)
		return services.Wrap(services.ErrTimeout, stageName, "execute", "stage exceeded hard time ceiling", err)
	}
	return err
}

func handleFailure(ctx context.Context, logger *slog.Logger, opts Options, stageErr error) error {
	message := services.Message(stageErr)
	if strings.TrimSpace(message) == "" {
		message = "stage failed"
	}

	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)

	// Failure-side updates run on the parent context so a dead stage
	// context cannot block the failure from being recorded.
	if opts.Status != nil && services.IsFatal(stageErr) {
		opts.Status.Update(ctx, opts.Job.ID, jobstatus.StatusFailed, message, 0, nil)
	}
	notifyRecords(ctx, logger, opts, opts.FailureMarker)

	return stageErr
}

func notifyRecords(ctx context.Context, logger *slog.Logger, opts Options, marker string) {
	if opts.Records == nil || marker == "" || opts.Job == nil {
		return
	}
	if err := opts.Records.UpdateReportStatus(ctx, opts.Job.ReportID, marker); err != nil {
		logger.Debug("report status update failed", logging.Error(err), logging.String("marker", marker))
	}
}
