package queue

import (
	"context"
	"fmt"
	"os"
)

// Stats returns job counts keyed by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(reqContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health returns aggregated queue counts for the daemon status surface.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	summary := HealthSummary{
		Queued:     stats[StatusQueued],
		Processing: stats[StatusProcessing],
		Failed:     stats[StatusFailed],
		Completed:  stats[StatusCompleted],
	}
	for _, count := range stats {
		summary.Total += count
	}
	return summary, nil
}

// CheckHealth runs deeper diagnostics against the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	ctx = reqContext(ctx)
	health := DatabaseHealth{Path: s.path}

	if _, err := os.Stat(s.path); err == nil {
		health.FileExists = true
	}

	if err := s.db.PingContext(ctx); err != nil {
		health.Error = err.Error()
		return health, nil
	}
	health.Readable = true

	var tableExists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='jobs'",
	).Scan(&tableExists); err != nil {
		health.Error = err.Error()
		return health, nil
	}
	health.JobsTable = tableExists > 0

	var integrity string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, nil
	}
	health.Intact = integrity == "ok"

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM jobs").Scan(&health.TotalJobs); err != nil {
		health.Error = err.Error()
	}
	return health, nil
}
