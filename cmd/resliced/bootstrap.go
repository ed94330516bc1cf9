package main

import (
	"context"
	"log/slog"

	"reslice/internal/aggregation"
	"reslice/internal/analysis"
	"reslice/internal/api"
	"reslice/internal/config"
	"reslice/internal/daemon"
	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/objectstore"
	"reslice/internal/processing"
	"reslice/internal/queue"
	"reslice/internal/records"
	"reslice/internal/uploading"
	"reslice/internal/validation"
	"reslice/internal/workflow"
)

// buildDaemon wires the queue, status store, stage handlers, workflow
// manager, and job service into a runnable daemon.
func buildDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, err
	}

	statusStore := connectStatusStore(ctx, cfg, logger)
	recordsSvc := records.NewService(cfg)
	objectStore := objectstore.New(cfg)

	stages := buildStages(cfg, statusStore, recordsSvc, objectStore, logger)
	manager := workflow.NewManager(cfg, store, statusStore, recordsSvc, stages, logger)
	jobSvc := api.NewJobService(cfg, store, statusStore, recordsSvc, logger)

	d, err := daemon.New(cfg, store, statusStore, jobSvc, manager, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return d, nil
}

func buildStages(cfg *config.Config, status *jobstatus.Store, recordsSvc records.Service, objectStore *objectstore.Client, logger *slog.Logger) workflow.StageSet {
	return workflow.StageSet{
		Validator:      validation.New(cfg, status, logger),
		Processor:      processing.New(cfg, status, logger),
		SliceUploader:  uploading.NewSliceUploader(cfg, status, objectStore, logger),
		Analyzer:       analysis.New(cfg, status, recordsSvc, logger),
		ReportUploader: uploading.NewReportUploader(cfg, status, recordsSvc, logger),
		Aggregator:     aggregation.New(cfg, status, logger),
	}
}

// connectStatusStore attempts to reach Redis and degrades to a no-op status
// store when the backend is unavailable. Jobs still run without live status.
func connectStatusStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) *jobstatus.Store {
	client, err := jobstatus.Connect(ctx, cfg)
	if err != nil {
		logger.Warn("status store unavailable, live progress disabled", logging.Error(err))
		return jobstatus.NewStore(nil, cfg, logger)
	}
	return jobstatus.NewStore(client, cfg, logger)
}
