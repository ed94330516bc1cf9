package testsupport

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"reslice/internal/config"
	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob enqueues a job with sensible metadata for tests.
func NewJob(t testing.TB, store *queue.Store, uploadID, sourcePath string) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), &queue.Job{
		UploadID:   uploadID,
		ClinicID:   "clinic-1",
		PatientID:  "patient-1",
		ReportType: "cbct",
		ReportID:   "report-1",
		SourcePath: sourcePath,
		Filename:   "study.nii",
		FileSize:   1,
	})
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}

// NewStatusStore spins up an in-memory redis server and returns a status
// store bound to it.
func NewStatusStore(t testing.TB, cfg *config.Config) *jobstatus.Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return jobstatus.NewStore(client, cfg, logging.NewNop())
}
