package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fastslice/internal/deps"
	"fastslice/internal/ffmpeg"
	"fastslice/internal/fileutil"
	"fastslice/internal/history"
	"fastslice/internal/logging"
	"fastslice/internal/media/ffprobe"
	"fastslice/internal/ranges"
	"fastslice/internal/services"
	"fastslice/internal/subtitles"
)

// Options wires a Pipeline to its collaborators.
type Options struct {
	Tools    deps.Tools
	Runner   ffmpeg.Runner
	Settings ffmpeg.EncodeSettings
	// Prober is consulted only when a precise range runs with hardware
	// acceleration enabled. Nil means software only.
	Prober *ffmpeg.Prober
	// VideoExtension is the clip container extension, including the dot.
	VideoExtension string
	// AllowedVideo filters source extensions; nil accepts any regular file.
	AllowedVideo func(path string) bool
	PreviewDir   string
	History      Recorder
	Logger       *slog.Logger
	Verbose      bool
}

// Pipeline runs slicing batches. It is safe to reuse across runs but a
// single Pipeline runs one batch at a time per output directory.
type Pipeline struct {
	opts   Options
	logger *slog.Logger
	newID  func() string
}

// New builds a pipeline. Runner defaults to an ExecRunner.
func New(opts Options) *Pipeline {
	if opts.Runner == nil {
		opts.Runner = ffmpeg.NewExecRunner()
	}
	if opts.Settings == (ffmpeg.EncodeSettings{}) {
		opts.Settings = ffmpeg.DefaultEncodeSettings()
	}
	if strings.TrimSpace(opts.VideoExtension) == "" {
		opts.VideoExtension = ".mp4"
	}
	return &Pipeline{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "pipeline"),
		newID:  uuid.NewString,
	}
}

type run struct {
	p        *Pipeline
	ctx      context.Context
	req      Request
	progress ProgressFunc
	result   Result
	logger   *slog.Logger
	recorded bool
}

// Run executes req. The returned Result is populated even when err is
// non-nil; its State is the terminal state reached.
func (p *Pipeline) Run(ctx context.Context, req Request, progress ProgressFunc) (Result, error) {
	runID := p.newID()
	ctx = services.WithRunID(ctx, runID)
	r := &run{
		p:        p,
		ctx:      ctx,
		req:      req,
		progress: progress,
		result:   Result{RunID: runID, State: StateIdle},
		logger:   logging.WithContext(ctx, p.logger),
	}
	err := r.execute()
	r.finish(err)
	return r.result, err
}

func (r *run) execute() error {
	r.enter(StateValidating, 0, 0, "validating input")
	plan, err := r.p.validate(r.req)
	if err != nil {
		return err
	}
	r.logger.Info("batch validated",
		logging.String(logging.FieldEventType, "batch_validated"),
		logging.Int("ranges", len(plan.ranges)),
		logging.Int("cues", len(plan.cues)),
		logging.String("output_dir", plan.outputDir),
	)

	lock, err := fileutil.LockDir(plan.outputDir)
	if err != nil {
		if errors.Is(err, fileutil.ErrLocked) {
			return services.Wrap(services.ErrConflict, string(StateValidating), "lock output", "another batch is writing to "+plan.outputDir, err)
		}
		return fmt.Errorf("%w: lock output directory: %v", services.ErrFile, err)
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			r.logger.Warn("failed to release output lock",
				logging.Error(unlockErr),
				logging.String(logging.FieldEventType, "output_unlock_failed"),
				logging.String(logging.FieldErrorHint, "remove "+lock.Path()+" by hand"),
			)
		}
	}()

	r.record(func(rec Recorder) error {
		return rec.StartRun(context.WithoutCancel(r.ctx), history.Run{
			ID:           r.result.RunID,
			VideoPath:    plan.videoPath,
			SubtitlePath: plan.subtitlePath,
			OutputDir:    plan.outputDir,
			Source:       r.req.Source,
			RangeCount:   len(plan.ranges),
		})
	})
	r.recorded = true

	if r.req.CheckDuration {
		r.enter(StateCheckingDuration, 0, len(plan.ranges), "checking source duration")
		duration, err := r.p.checkDuration(r.ctx, plan)
		if err != nil {
			return err
		}
		r.result.Duration = duration
	}

	extractor := r.p.extractor(r.ctx, plan, r.req.UseHWAccel)
	r.result.Encoder = encoderLabel(plan, extractor.Encoder)
	r.record(func(rec Recorder) error {
		return rec.SetEncoder(context.WithoutCancel(r.ctx), r.result.RunID, r.result.Encoder)
	})

	total := len(plan.ranges)
	for i, rng := range plan.ranges {
		index := i + 1
		if err := r.ctx.Err(); err != nil {
			return services.Wrap(services.ErrCancelled, string(StateProcessingRange), "cancel",
				fmt.Sprintf("stopped before range %d of %d", index, total), err)
		}
		artifact, err := r.processRange(extractor, plan, rng, index, total)
		if err != nil {
			return err
		}
		r.result.Artifacts = append(r.result.Artifacts, artifact)
	}
	return nil
}

func (r *run) processRange(extractor *ffmpeg.Extractor, plan *plan, rng ranges.TimeRange, index, total int) (Artifact, error) {
	ctx := services.WithRangeIndex(r.ctx, index)
	logger := logging.WithContext(ctx, r.p.logger)
	base := ranges.BaseName(rng, index, r.req.AppendTime)
	artifact := Artifact{
		Index:        index,
		Range:        rng,
		VideoPath:    filepath.Join(plan.outputDir, base+r.p.opts.VideoExtension),
		SubtitlePath: filepath.Join(plan.outputDir, base+subtitles.Extension),
	}
	r.enter(StateProcessingRange, index, total, fmt.Sprintf("range %d/%d: %s", index, total, rng.Label))

	if r.req.Overwrite {
		for _, path := range []string{artifact.VideoPath, artifact.SubtitlePath} {
			if err := fileutil.RemoveIfExists(path); err != nil {
				return artifact, fmt.Errorf("%w: remove stale output %s: %v", services.ErrFile, path, err)
			}
		}
	} else if fileutil.Exists(artifact.SubtitlePath) {
		return artifact, services.Wrap(services.ErrConflict, string(StateProcessingRange), "check destination",
			"output already exists, refusing to overwrite: "+artifact.SubtitlePath, nil)
	}

	started := time.Now()
	job := ffmpeg.Job{
		Source:         plan.videoPath,
		Destination:    artifact.VideoPath,
		Start:          rng.Start,
		End:            rng.End,
		Precise:        rng.Precise,
		AllowOverwrite: r.req.Overwrite,
	}
	// An extraction in flight is never interrupted by batch cancellation.
	if err := extractor.Extract(context.WithoutCancel(ctx), job); err != nil {
		return artifact, fmt.Errorf("range %d (%s): %w", index, rng.Label, err)
	}

	if err := writeSubtitle(artifact.SubtitlePath, plan.cues, rng); err != nil {
		return artifact, fmt.Errorf("range %d (%s): %w", index, rng.Label, err)
	}

	logger.Info("range completed",
		logging.String(logging.FieldEventType, "range_complete"),
		logging.String("label", rng.Label),
		logging.String("video", artifact.VideoPath),
		logging.String("subtitles", artifact.SubtitlePath),
		logging.Bool("precise", rng.Precise),
		logging.Duration("elapsed", time.Since(started)),
	)
	r.record(func(rec Recorder) error {
		return rec.AddArtifact(context.WithoutCancel(ctx), r.result.RunID, history.Artifact{
			RangeIndex:   index,
			Label:        rng.Label,
			Precise:      rng.Precise,
			VideoPath:    artifact.VideoPath,
			SubtitlePath: artifact.SubtitlePath,
		})
	})
	return artifact, nil
}

func writeSubtitle(path string, cues []subtitles.Cue, rng ranges.TimeRange) error {
	if strings.TrimSpace(rng.SubtitleOverride) != "" {
		return subtitles.WriteText(path, rng.SubtitleOverride)
	}
	return subtitles.WriteFile(path, subtitles.Slice(cues, rng.Start, rng.End))
}

func (r *run) enter(state State, index, total int, description string) {
	r.result.State = state
	if state == StateValidating || state == StateCheckingDuration {
		r.logger.Info("stage started",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.String(logging.FieldStage, string(state)),
		)
	}
	if r.progress != nil {
		r.progress(Event{
			RunID:       r.result.RunID,
			State:       state,
			Index:       index,
			Total:       total,
			Description: description,
		})
	}
}

func (r *run) finish(err error) {
	status := history.StatusDone
	state := StateDone
	message := ""
	switch {
	case err == nil:
	case errors.Is(err, services.ErrCancelled), errors.Is(err, context.Canceled):
		status, state, message = history.StatusCancelled, StateCancelled, err.Error()
	default:
		status, state, message = history.StatusFailed, StateFailed, err.Error()
	}

	if err != nil {
		r.logger.Error("batch stopped",
			logging.String(logging.FieldEventType, "batch_"+string(state)),
			logging.Int("completed", len(r.result.Artifacts)),
			logging.Error(err),
		)
	} else {
		r.logger.Info("batch completed",
			logging.String(logging.FieldEventType, "batch_complete"),
			logging.Int("clips", len(r.result.Artifacts)),
			logging.String("encoder", r.result.Encoder),
		)
	}
	r.enter(state, len(r.result.Artifacts), len(r.result.Artifacts), message)

	if r.recorded {
		r.record(func(rec Recorder) error {
			return rec.FinishRun(context.WithoutCancel(r.ctx), r.result.RunID, status, message)
		})
	}
}

// record applies fn to the history recorder. History failures are logged and
// never fail the batch. Writes ignore cancellation so a cancelled run is
// still recorded.
func (r *run) record(fn func(Recorder) error) {
	if r.p.opts.History == nil {
		return
	}
	if err := fn(r.p.opts.History); err != nil {
		r.logger.Warn("history update failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_write_failed"),
			logging.String(logging.FieldErrorHint, "run 'fastslice history' to inspect the database"),
		)
	}
}

func (p *Pipeline) checkDuration(ctx context.Context, plan *plan) (float64, error) {
	ctx = services.WithStage(ctx, string(StateCheckingDuration))
	duration, err := ffprobe.Duration(ctx, p.opts.Runner, p.opts.Tools.FFprobe, plan.videoPath)
	if err != nil {
		return 0, err
	}
	for _, rng := range plan.ranges {
		if rng.End > duration {
			return duration, services.Wrap(services.ErrDurationExceeded, string(StateCheckingDuration), "compare",
				fmt.Sprintf("range exceeds video duration (video about %.2f s): %s", duration, rng.Label), nil)
		}
	}
	logging.WithContext(ctx, p.logger).Info("duration verified",
		logging.Seconds("duration_seconds", duration),
	)
	return duration, nil
}

// extractor resolves the encoder once per run and only when a precise range
// needs it.
func (p *Pipeline) extractor(ctx context.Context, plan *plan, useHWAccel bool) *ffmpeg.Extractor {
	encoder := ffmpeg.SoftwareConfig(p.opts.Settings)
	if plan.anyPrecise() && useHWAccel && p.opts.Prober != nil {
		encoder = p.opts.Prober.Probe(ctx)
	}
	return &ffmpeg.Extractor{
		Binary:   p.opts.Tools.FFmpeg,
		Runner:   p.opts.Runner,
		Settings: p.opts.Settings,
		Encoder:  encoder,
		Verbose:  p.opts.Verbose,
		Logger:   p.opts.Logger,
	}
}

func encoderLabel(plan *plan, encoder ffmpeg.HWAccelConfig) string {
	if !plan.anyPrecise() {
		return "stream copy"
	}
	return encoder.Name
}
