package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"alchemy/internal/assets"
	"alchemy/internal/campaign"
	"alchemy/internal/config"
	"alchemy/internal/logging"
	"alchemy/internal/progress"
)

// Daemon owns the long-lived services: the progress bus, the campaign
// runner, the asset store, and the HTTP API. A file lock enforces a
// single instance per media directory.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	bus    *progress.Bus
	runner *campaign.Runner
	store  *assets.Store

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	api     *apiServer
}

// Status reports daemon runtime information.
type Status struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	APIAddress   string `json:"apiAddress,omitempty"`
	MediaDir     string `json:"mediaDir"`
	LockFilePath string `json:"lockFilePath"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, bus *progress.Bus, runner *campaign.Runner, store *assets.Store) (*Daemon, error) {
	if cfg == nil || logger == nil || bus == nil || runner == nil || store == nil {
		return nil, errors.New("daemon requires config, logger, bus, runner, and asset store")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "alchemyd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		runner:   runner,
		store:    store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another alchemy daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("alchemy daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API down and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("alchemy daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime state.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		MediaDir:     d.cfg.Paths.MediaDir,
		LockFilePath: d.lockPath,
	}
	if d.api != nil {
		status.APIAddress = d.api.addr()
	}
	return status
}

// APIAddress exposes the bound listener address, useful when the config
// asked for an ephemeral port.
func (d *Daemon) APIAddress() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// runContext outlives individual HTTP requests so detached campaign
// runs survive the POST that started them.
func (d *Daemon) runContext() context.Context {
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}
