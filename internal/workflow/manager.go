package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reslice/internal/config"
	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/queue"
	"reslice/internal/records"
)

// Manager coordinates queue processing using the registered stage handlers.
// A fixed pool of workers claims queued jobs and drives each one through the
// full pipeline graph.
type Manager struct {
	cfg     *config.Config
	store   *queue.Store
	status  *jobstatus.Store
	records records.Service
	logger  *slog.Logger
	stages  StageSet

	pollInterval       time.Duration
	errorRetryInterval time.Duration
	softTimeout        time.Duration
	hardTimeout        time.Duration
	workers            int

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, status *jobstatus.Store, recordsSvc records.Service, stages StageSet, logger *slog.Logger) *Manager {
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		cfg:                cfg,
		store:              store,
		status:             status,
		records:            recordsSvc,
		logger:             logging.NewComponentLogger(logger, "workflow"),
		stages:             stages,
		pollInterval:       time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		softTimeout:        time.Duration(cfg.Workflow.StageSoftTimeout) * time.Second,
		hardTimeout:        time.Duration(cfg.Workflow.StageHardTimeout) * time.Second,
		workers:            workers,
	}
}

// LastError returns the most recent queue access failure, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// Running reports whether background processing is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
