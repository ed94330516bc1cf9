// Package queueaccess gives the CLI read access to the job queue when the
// daemon is not reachable, by opening the queue database directly.
package queueaccess

import (
	"context"

	"reslice/internal/api"
	"reslice/internal/config"
	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/queue"
)

// Session wraps a directly opened queue store behind the same views the
// daemon API serves. Live progress is unavailable in this mode; statuses
// come from the durable queue rows only.
type Session struct {
	service *api.JobService
	store   *queue.Store
}

// OpenDirect opens the queue database for the given configuration.
func OpenDirect(cfg *config.Config) (*Session, error) {
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, err
	}
	service := api.NewJobService(cfg, store, jobstatus.NewStore(nil, cfg, logging.NewNop()), nil, logging.NewNop())
	return &Session{service: service, store: store}, nil
}

// Close releases the underlying database handle.
func (s *Session) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Close()
}

// List returns jobs filtered by the given status names. Unknown names are
// ignored, matching the daemon API behavior.
func (s *Session) List(ctx context.Context, statuses []string) ([]api.JobView, error) {
	var filters []queue.Status
	for _, value := range statuses {
		if parsed, ok := queue.ParseStatus(value); ok {
			filters = append(filters, parsed)
		}
	}
	return s.service.List(ctx, filters...)
}

// Status resolves a job's state from the queue row.
func (s *Session) Status(ctx context.Context, jobID string) (*api.JobStatusView, error) {
	return s.service.Status(ctx, jobID)
}

// Stats returns queue counts keyed by status name.
func (s *Session) Stats(ctx context.Context) (map[string]int, error) {
	return s.service.Stats(ctx)
}
