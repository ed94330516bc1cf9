package jobstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"reslice/internal/config"
	"reslice/internal/logging"
)

// Status enumerates job record states exposed to polling clients.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const (
	jobKeyPrefix  = "job_status:"
	timestampsKey = "job_timestamps"

	maxWriteAttempts = 3
	writeBackoffBase = 500 * time.Millisecond
	defaultRecordTTL = 24 * time.Hour
)

// Record is the durable, polled status/result object for one workflow instance.
type Record struct {
	JobID     string          `json:"job_id"`
	Status    Status          `json:"status"`
	Message   string          `json:"message"`
	Progress  int             `json:"progress"`
	Result    json.RawMessage `json:"result"`
	Timestamp string          `json:"timestamp"`
}

// Store writes job status records to Redis with a bounded-retry, best-effort
// contract: a failed write degrades observability but never the pipeline.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Connect builds a Redis client from configuration and verifies reachability.
// An unreachable backend returns an error; callers may still construct a nil
// store and rely on its no-op behavior.
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Redis.DialTimeout > 0 {
		opts.DialTimeout = time.Duration(cfg.Redis.DialTimeout) * time.Second
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewStore constructs a status store around an existing Redis client. A nil
// client yields a store whose operations are no-ops returning nil records.
func NewStore(client *redis.Client, cfg *config.Config, logger *slog.Logger) *Store {
	ttl := defaultRecordTTL
	if cfg != nil && cfg.Redis.StatusTTLHours > 0 {
		ttl = time.Duration(cfg.Redis.StatusTTLHours) * time.Hour
	}
	return &Store{
		client: client,
		ttl:    ttl,
		logger: logging.NewComponentLogger(logger, "jobstatus"),
	}
}

func jobKey(jobID string) string {
	return jobKeyPrefix + jobID
}

// ClampProgress bounds a progress value into [0,100].
func ClampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// Update creates or replaces the status record for a job. The write is
// attempted up to three times with exponential backoff; once retries are
// exhausted it returns nil rather than an error. Callers must treat a nil
// record as best-effort loss of observability, never as pipeline failure.
func (s *Store) Update(ctx context.Context, jobID string, status Status, message string, progress int, result json.RawMessage) *Record {
	if s == nil || s.client == nil || strings.TrimSpace(jobID) == "" {
		return nil
	}

	record := &Record{
		JobID:     jobID,
		Status:    status,
		Message:   message,
		Progress:  ClampProgress(progress),
		Result:    result,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		s.logger.Error("marshal job record", logging.Error(err), logging.String(logging.FieldJobID, jobID))
		return nil
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		pipe := s.client.Pipeline()
		pipe.Set(ctx, jobKey(jobID), payload, s.ttl)
		pipe.ZAdd(ctx, timestampsKey, redis.Z{
			Score:  float64(time.Now().UTC().UnixNano()) / float64(time.Second),
			Member: jobID,
		})
		if _, err := pipe.Exec(ctx); err == nil {
			s.logger.Debug("job status updated",
				logging.String(logging.FieldJobID, jobID),
				logging.String("status", string(status)),
				logging.Int("progress", record.Progress),
			)
			return record
		} else if attempt < maxWriteAttempts-1 {
			backoff := writeBackoffBase * (1 << attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
		} else {
			s.logger.Error("job status write failed after retries",
				logging.Error(err),
				logging.String(logging.FieldJobID, jobID),
				logging.Int("attempts", maxWriteAttempts),
			)
		}
	}
	return nil
}

// Get fetches the status record for a job. A missing key or unreachable
// backend returns nil; polling callers fall back to the queue result store.
func (s *Store) Get(ctx context.Context, jobID string) *Record {
	if s == nil || s.client == nil || strings.TrimSpace(jobID) == "" {
		return nil
	}
	payload, err := s.client.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Error("job status read failed", logging.Error(err), logging.String(logging.FieldJobID, jobID))
		}
		return nil
	}
	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		s.logger.Error("decode job record", logging.Error(err), logging.String(logging.FieldJobID, jobID))
		return nil
	}
	return &record
}

// Sweep removes timestamp-index entries older than the cutoff. The records
// themselves expire via TTL; this keeps the auxiliary sorted set from growing
// without bound. Returns the number of removed entries.
func (s *Store) Sweep(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.client == nil {
		return 0, nil
	}
	cutoff := float64(time.Now().UTC().Add(-olderThan).UnixNano()) / float64(time.Second)
	removed, err := s.client.ZRemRangeByScore(ctx, timestampsKey, "-inf", fmt.Sprintf("%f", cutoff)).Result()
	if err != nil {
		return 0, fmt.Errorf("sweep job timestamps: %w", err)
	}
	return removed, nil
}

// Available reports whether the backing client is usable.
func (s *Store) Available() bool {
	return s != nil && s.client != nil
}
