package main

import (
	"context"
	"testing"

	"reslice/internal/logging"
	"reslice/internal/objectstore"
	"reslice/internal/records"
	"reslice/internal/testsupport"
)

func TestBuildStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()

	stages := buildStages(cfg, nil, records.NewService(cfg), objectstore.New(cfg), logger)

	if stages.Validator == nil {
		t.Fatal("validator stage is nil")
	}
	if stages.Processor == nil {
		t.Fatal("processor stage is nil")
	}
	if stages.SliceUploader == nil {
		t.Fatal("slice uploader stage is nil")
	}
	if stages.Analyzer == nil {
		t.Fatal("analyzer stage is nil")
	}
	if stages.ReportUploader == nil {
		t.Fatal("report uploader stage is nil")
	}
	if stages.Aggregator == nil {
		t.Fatal("aggregator stage is nil")
	}
}

func TestBuildDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	// Point at a closed port so the status store degrades instead of hanging.
	cfg.Redis.URL = "redis://127.0.0.1:1/0"
	cfg.Redis.DialTimeout = 1

	d, err := buildDaemon(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildDaemon: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close daemon: %v", err)
	}
}
