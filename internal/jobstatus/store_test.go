package jobstatus_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/testsupport"
)

func TestUpdateAndGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStatusStore(t, cfg)
	ctx := context.Background()

	result := json.RawMessage(`{"status":"completed"}`)
	record := store.Update(ctx, "job-1", jobstatus.StatusCompleted, "Workflow completed", 100, result)
	if record == nil {
		t.Fatal("Update returned nil record")
	}
	if record.Progress != 100 {
		t.Fatalf("progress = %d, want 100", record.Progress)
	}

	fetched := store.Get(ctx, "job-1")
	if fetched == nil {
		t.Fatal("Get returned nil")
	}
	if fetched.Status != jobstatus.StatusCompleted {
		t.Fatalf("status = %s, want completed", fetched.Status)
	}
	if string(fetched.Result) != string(result) {
		t.Fatalf("result = %s", fetched.Result)
	}
	if fetched.Timestamp == "" {
		t.Fatal("timestamp missing")
	}
}

func TestUpdateClampsProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStatusStore(t, cfg)
	ctx := context.Background()

	if record := store.Update(ctx, "job-1", jobstatus.StatusProcessing, "", 150, nil); record.Progress != 100 {
		t.Fatalf("progress = %d, want 100", record.Progress)
	}
	if record := store.Update(ctx, "job-1", jobstatus.StatusProcessing, "", -5, nil); record.Progress != 0 {
		t.Fatalf("progress = %d, want 0", record.Progress)
	}
}

func TestGetMissingJobReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStatusStore(t, cfg)

	if record := store.Get(context.Background(), "missing"); record != nil {
		t.Fatalf("record = %+v, want nil", record)
	}
}

func TestNilStoreIsNoop(t *testing.T) {
	store := jobstatus.NewStore(nil, nil, nil)
	ctx := context.Background()

	if store.Available() {
		t.Fatal("nil-client store reports available")
	}
	if record := store.Update(ctx, "job-1", jobstatus.StatusQueued, "", 0, nil); record != nil {
		t.Fatalf("record = %+v, want nil", record)
	}
	if record := store.Get(ctx, "job-1"); record != nil {
		t.Fatalf("record = %+v, want nil", record)
	}
	if removed, err := store.Sweep(ctx, time.Hour); err != nil || removed != 0 {
		t.Fatalf("Sweep = %d, %v", removed, err)
	}
}

func TestUpdateReturnsNilAfterRetryExhaustion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := jobstatus.NewStore(client, cfg, logging.NewNop())
	ctx := context.Background()

	// Backend goes away after the store is wired up. Every write attempt
	// now fails; the store must burn through its retries and degrade to
	// nil instead of surfacing an error.
	mr.Close()

	if record := store.Update(ctx, "job-1", jobstatus.StatusProcessing, "Reconstructing volume", 40, nil); record != nil {
		t.Fatalf("record = %+v, want nil after retries exhausted", record)
	}
	if record := store.Get(ctx, "job-1"); record != nil {
		t.Fatalf("Get = %+v, want nil", record)
	}
}

func TestSweepRemovesOldIndexEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStatusStore(t, cfg)
	ctx := context.Background()

	store.Update(ctx, "job-old", jobstatus.StatusCompleted, "", 100, nil)

	// A negative cutoff places "now" before the sweep horizon, so the entry
	// written above is already older than it.
	removed, err := store.Sweep(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	// The record itself survives; only the index entry is pruned.
	if record := store.Get(ctx, "job-old"); record == nil {
		t.Fatal("record pruned by sweep")
	}
}

func TestClampProgress(t *testing.T) {
	cases := map[int]int{-1: 0, 0: 0, 55: 55, 100: 100, 250: 100}
	for input, want := range cases {
		if got := jobstatus.ClampProgress(input); got != want {
			t.Errorf("ClampProgress(%d) = %d, want %d", input, got, want)
		}
	}
}
