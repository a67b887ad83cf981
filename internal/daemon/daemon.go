// Package daemon schedules the watch runners and enforces
// single-instance execution through file locks.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"libwatch/internal/config"
	"libwatch/internal/logging"
	"libwatch/internal/runlog"
)

// Job is one scheduled watch pass. Schedule is a standard five-field
// cron expression evaluated in local time.
type Job struct {
	Domain   string
	Schedule string
	Run      func(ctx context.Context) (runlog.Entry, error)
}

// Daemon runs the configured jobs on their cron schedules. One daemon
// per host: Start takes a file lock that a second instance cannot.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	jobs   []Job

	lockPath string
	lock     *flock.Flock
	cron     *cron.Cron

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon and validates every job schedule up front.
func New(cfg *config.Config, logger *slog.Logger, jobs []Job) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if len(jobs) == 0 {
		return nil, errors.New("daemon requires at least one job")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	for _, job := range jobs {
		if _, err := cron.ParseStandard(job.Schedule); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", job.Schedule, job.Domain, err)
		}
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "libwatchd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		jobs:     jobs,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins cron scheduling. It does
// not block; cancel the context or call Stop to shut down.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another libwatch daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.cron = cron.New()
	for _, job := range d.jobs {
		job := job
		if _, err := d.cron.AddFunc(job.Schedule, func() { d.runJob(job) }); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx, d.cancel = nil, nil
			return fmt.Errorf("schedule %s: %w", job.Domain, err)
		}
		d.logger.Info("job scheduled",
			logging.String(logging.FieldDomain, job.Domain),
			logging.String("schedule", job.Schedule))
	}
	d.cron.Start()

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// RunNow executes every job once, sequentially, outside the cron
// schedule. Used for an initial pass at daemon startup.
func (d *Daemon) RunNow() {
	for _, job := range d.jobs {
		d.runJob(job)
	}
}

func (d *Daemon) runJob(job Job) {
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	lock, acquired, err := LockDomain(d.cfg, job.Domain)
	if err != nil {
		d.logger.Warn("domain lock failed", logging.Error(err), logging.String(logging.FieldDomain, job.Domain))
		return
	}
	if !acquired {
		d.logger.Warn("previous run still in progress, skipping",
			logging.String(logging.FieldDomain, job.Domain))
		return
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			d.logger.Warn("domain unlock failed", logging.Error(err), logging.String(logging.FieldDomain, job.Domain))
		}
	}()

	started := time.Now()
	entry, err := job.Run(ctx)
	if err != nil {
		d.logger.Error("watch run failed",
			logging.Error(err),
			logging.String(logging.FieldDomain, job.Domain),
			logging.Duration("elapsed", time.Since(started)))
		return
	}
	d.logger.Info("watch run finished",
		logging.String(logging.FieldDomain, job.Domain),
		logging.String(logging.FieldRunID, entry.ID),
		logging.Int("items", entry.Items),
		logging.Int("changes", entry.Changes()),
		logging.Duration("elapsed", time.Since(started)))
}

// Stop halts scheduling, waits for an in-flight job trigger to return,
// and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.cron != nil {
		<-d.cron.Stop().Done()
		d.cron = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// LockPath returns the daemon lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// LockDomain takes the per-domain run lock so scheduled and manual runs
// of the same watcher never overlap. The caller must Unlock the
// returned lock when acquired is true.
func LockDomain(cfg *config.Config, domain string) (lock *flock.Flock, acquired bool, err error) {
	path := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("libwatch-%s.lock", domain))
	lock = flock.New(path)
	acquired, err = lock.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s lock: %w", domain, err)
	}
	return lock, acquired, nil
}
