package queueaccess_test

import (
	"context"
	"errors"
	"testing"

	"reslice/internal/api"
	"reslice/internal/queue"
	"reslice/internal/queueaccess"
	"reslice/internal/testsupport"
)

func TestOpenDirectReadsQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "upload-1", "/tmp/study.nii")
	job.Status = queue.StatusFailed
	job.ErrorMessage = "processing error"
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	testsupport.NewJob(t, store, "upload-2", "/tmp/other.nii")

	session, err := queueaccess.OpenDirect(cfg)
	if err != nil {
		t.Fatalf("OpenDirect: %v", err)
	}
	defer session.Close()

	jobs, err := session.List(context.Background(), []string{"failed", "bogus"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 || jobs[0].UploadID != "upload-1" {
		t.Fatalf("jobs = %+v", jobs)
	}

	view, err := session.Status(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Source != "queue" || view.Status != "failed" {
		t.Fatalf("view = %+v", view)
	}

	stats, err := session.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["failed"] != 1 || stats["queued"] != 1 {
		t.Fatalf("stats = %v", stats)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	session, err := queueaccess.OpenDirect(cfg)
	if err != nil {
		t.Fatalf("OpenDirect: %v", err)
	}
	defer session.Close()

	if _, err := session.Status(context.Background(), "missing"); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}
