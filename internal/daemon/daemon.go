package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"fastslice/internal/config"
	"fastslice/internal/deps"
	"fastslice/internal/ffmpeg"
	"fastslice/internal/history"
	"fastslice/internal/logging"
	"fastslice/internal/pipeline"
	"fastslice/internal/preflight"
)

// ErrBusy reports that a batch is already running.
var ErrBusy = errors.New("a slicing batch is already running")

// Daemon owns the serve lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *history.Store
	tools   deps.Tools
	runner  ffmpeg.Runner
	prober  *ffmpeg.Prober
	locator deps.Locator

	lockPath string
	lock     *flock.Flock

	batch   sync.Mutex
	busy    atomic.Bool
	running atomic.Bool
	server  *apiServer
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	Busy          bool
	Encoder       string
	OutputDir     string
	HistoryDBPath string
	LockFilePath  string
	Dependencies  []deps.Status
}

// New constructs a daemon. store may be nil when history is disabled.
func New(cfg *config.Config, tools deps.Tools, runner ffmpeg.Runner, store *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires a config")
	}
	if runner == nil {
		runner = ffmpeg.NewExecRunner()
	}
	lockPath := filepath.Join(cfg.Paths.StateDir, "fastslice-serve.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		tools:    tools,
		runner:   runner,
		prober:   ffmpeg.NewProber(tools.FFmpeg, runner, pipeline.EncodeSettings(cfg), logger),
		locator:  preflight.ToolLocator(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and starts the HTTP server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fastslice server is already running")
	}

	for _, result := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "run 'fastslice status' for details"),
		)
	}

	d.server = newAPIServer(d.cfg, d, d.logger)
	if err := d.server.start(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}
	d.running.Store(true)
	d.logger.Info("fastslice server started", logging.String("lock", d.lockPath))
	return nil
}

// Addr returns the listening address once started.
func (d *Daemon) Addr() string {
	if d.server == nil || d.server.listener == nil {
		return ""
	}
	return d.server.listener.Addr().String()
}

// Stop shuts down the server and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("fastslice server stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// pipelineFor builds a pipeline logging through logger. The prober is shared
// so hardware detection runs once per process.
func (d *Daemon) pipelineFor(logger *slog.Logger) *pipeline.Pipeline {
	opts := pipeline.Options{
		Tools:          d.tools,
		Runner:         d.runner,
		Settings:       pipeline.EncodeSettings(d.cfg),
		Prober:         d.prober,
		VideoExtension: d.cfg.Slice.VideoExtension,
		AllowedVideo:   d.cfg.IsAllowedVideo,
		PreviewDir:     d.cfg.Paths.PreviewDir,
		Logger:         logger,
		Verbose:        d.cfg.Logging.Verbose,
	}
	if d.store != nil {
		opts.History = d.store
	}
	return pipeline.New(opts)
}

// RunBatch runs req with the managed overwrite policy. It fails with ErrBusy
// instead of waiting when another batch holds the server.
func (d *Daemon) RunBatch(ctx context.Context, req pipeline.Request, logger *slog.Logger) (pipeline.Result, error) {
	if !d.batch.TryLock() {
		return pipeline.Result{}, ErrBusy
	}
	defer d.batch.Unlock()
	d.busy.Store(true)
	defer d.busy.Store(false)

	return d.pipelineFor(logger).Run(ctx, req, nil)
}

// Runs lists recorded runs, newest first.
func (d *Daemon) Runs(ctx context.Context, limit int) ([]history.Run, error) {
	if d.store == nil {
		return nil, nil
	}
	return d.store.ListRuns(ctx, limit)
}

// Run returns one recorded run and its artifacts, or nil when unknown.
func (d *Daemon) Run(ctx context.Context, id string) (*history.Run, []history.Artifact, error) {
	if d.store == nil {
		return nil, nil, nil
	}
	run, err := d.store.GetRun(ctx, id)
	if err != nil || run == nil {
		return nil, nil, err
	}
	artifacts, err := d.store.Artifacts(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, artifacts, nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	encoder := ffmpeg.SoftwareConfig(pipeline.EncodeSettings(d.cfg)).Name
	if d.cfg.Slice.UseHWAccel {
		encoder = d.prober.Probe(ctx).Name
	}
	status := Status{
		Running:      d.running.Load(),
		Busy:         d.busy.Load(),
		Encoder:      encoder,
		OutputDir:    d.cfg.Paths.OutputDir,
		LockFilePath: d.lockPath,
		Dependencies: preflight.CheckSystemDeps(ctx, d.locator),
	}
	if d.store != nil {
		status.HistoryDBPath = d.store.Path()
	}
	return status
}
