package queue_test

import (
	"context"
	"testing"

	"reslice/internal/queue"
	"reslice/internal/testsupport"
)

func TestNewJobAssignsIDAndQueuedStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := testsupport.NewJob(t, store, "upload-1", "/tmp/study.nii")
	if job.ID == "" {
		t.Fatal("job id not assigned")
	}
	if job.Status != queue.StatusQueued {
		t.Fatalf("status = %s, want queued", job.Status)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job, err := store.GetByID(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job != nil {
		t.Fatalf("job = %+v, want nil", job)
	}
}

func TestClaimNextTransitionsOldestJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewJob(t, store, "upload-1", "/tmp/a.nii")
	testsupport.NewJob(t, store, "upload-2", "/tmp/b.nii")

	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("claimed = %+v, want job %s", claimed, first.ID)
	}
	if claimed.Status != queue.StatusProcessing {
		t.Fatalf("status = %s, want processing", claimed.Status)
	}
}

func TestClaimNextEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job, err := store.ClaimNext(context.Background())
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if job != nil {
		t.Fatalf("job = %+v, want nil", job)
	}
}

func TestUpdatePersistsResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "upload-1", "/tmp/a.nii")
	job.Status = queue.StatusCompleted
	job.ResultJSON = `{"status":"completed"}`
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reloaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", reloaded.Status)
	}
	if reloaded.ResultJSON != job.ResultJSON {
		t.Fatalf("result = %q", reloaded.ResultJSON)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewJob(t, store, "upload-1", "/tmp/a.nii")
	failed := testsupport.NewJob(t, store, "upload-2", "/tmp/b.nii")
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	jobs, err := store.List(ctx, queue.StatusFailed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != failed.ID {
		t.Fatalf("jobs = %+v, want only %s", jobs, failed.ID)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all jobs = %d, want 2", len(all))
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewJob(t, store, "upload-1", "/tmp/a.nii")
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}

	jobs, err := store.List(ctx, queue.StatusFailed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("failed jobs = %d, want 1", len(jobs))
	}
	if jobs[0].ErrorMessage != queue.DaemonStopReason {
		t.Fatalf("error message = %q", jobs[0].ErrorMessage)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewJob(t, store, "upload-1", "/tmp/a.nii")
	testsupport.NewJob(t, store, "upload-2", "/tmp/b.nii")

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[queue.StatusQueued] != 2 {
		t.Fatalf("queued = %d, want 2", stats[queue.StatusQueued])
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 2 || health.Queued != 2 {
		t.Fatalf("health = %+v", health)
	}
}

func TestRemoveAndClearCompleted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	victim := testsupport.NewJob(t, store, "upload-1", "/tmp/a.nii")
	removed, err := store.Remove(ctx, victim.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatal("job not removed")
	}

	done := testsupport.NewJob(t, store, "upload-2", "/tmp/b.nii")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}
	cleared, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("cleared = %d, want 1", cleared)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Queued "); !ok || status != queue.StatusQueued {
		t.Fatalf("ParseStatus = %s, %v", status, ok)
	}
	if _, ok := queue.ParseStatus("bogus"); ok {
		t.Fatal("bogus status accepted")
	}
}
