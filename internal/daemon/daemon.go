package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reslice/internal/api"
	"reslice/internal/config"
	"reslice/internal/jobstatus"
	"reslice/internal/logging"
	"reslice/internal/queue"
	"reslice/internal/stage"
	"reslice/internal/workflow"
)

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	status   *jobstatus.Store
	workflow *workflow.Manager
	jobSvc   *api.JobService
	server   *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	QueueDBPath  string
	LockFilePath string
	QueueStats   map[string]int
	StatusStore  bool
	StageHealth  []stage.Health
	LastError    error
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, status *jobstatus.Store, jobSvc *api.JobService, wf *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil || jobSvc == nil {
		return nil, errors.New("daemon requires config, store, job service, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "resliced.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		status:   status,
		workflow: wf,
		jobSvc:   jobSvc,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.server = server
	return d, nil
}

// Start acquires the daemon lock, fails over stuck jobs from a previous
// run, and launches the workflow manager, API server, and sweep loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reslice daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if reset, err := d.store.ResetStuckProcessing(d.ctx); err != nil {
		d.logger.Warn("failed to reset stuck jobs", logging.Error(err))
	} else if reset > 0 {
		d.logger.Info("failed stuck jobs from previous run", logging.Int64("count", reset))
	}

	if err := d.workflow.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	if d.server != nil {
		if err := d.server.start(d.ctx); err != nil {
			d.workflow.Stop()
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}

	go d.runSweeper(d.ctx)

	d.running.Store(true)
	d.logger.Info("reslice daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if d.server != nil {
		d.server.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("reslice daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// runSweeper periodically prunes the status store's timestamp index of
// entries older than the record TTL.
func (d *Daemon) runSweeper(ctx context.Context) {
	interval := time.Duration(d.cfg.Redis.SweepInterval) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	ttl := time.Duration(d.cfg.Redis.StatusTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := d.status.Sweep(ctx, ttl)
			if err != nil {
				d.logger.Warn("status sweep failed", logging.Error(err))
				continue
			}
			if removed > 0 {
				d.logger.Debug("status index swept", logging.Int64("removed", removed))
			}
		}
	}
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	merged := make(map[string]int, len(stats))
	for status, count := range stats {
		merged[string(status)] = count
	}

	lastErr := d.workflow.LastError()
	if lastErr == nil {
		lastErr = err
	}

	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		QueueStats:   merged,
		StatusStore:  d.status.Available(),
		StageHealth:  d.workflow.Health(ctx),
		LastError:    lastErr,
	}
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}
