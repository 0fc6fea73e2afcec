package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fastslice/internal/ffmpeg"
	"fastslice/internal/fileutil"
	"fastslice/internal/logging"
	"fastslice/internal/ranges"
	"fastslice/internal/services"
	"fastslice/internal/subtitles"
)

// PreviewRequest renders a single range for inspection.
type PreviewRequest struct {
	VideoPath    string
	SubtitlePath string
	Range        ranges.TimeRange
	UseHWAccel   bool
}

// PreviewResult points at the rendered clip and carries the subtitles that
// a full run would write for the same range.
type PreviewResult struct {
	VideoPath    string
	SubtitleText string
	Cues         []subtitles.Cue
	Encoder      string
}

// Preview renders req.Range into the preview directory under a fresh name.
// Unlike Run, cancelling ctx terminates the extraction.
func (p *Pipeline) Preview(ctx context.Context, req PreviewRequest) (PreviewResult, error) {
	ctx = services.WithStage(ctx, "preview")
	rng := req.Range
	if rng.Start < 0 || rng.Start >= rng.End {
		return PreviewResult{}, fmt.Errorf("%w: range %q must satisfy 0 <= start < end", services.ErrRange, rng.Label)
	}
	videoPath, err := p.checkVideo(req.VideoPath)
	if err != nil {
		return PreviewResult{}, err
	}
	subtitlePath, err := checkRegularFile("subtitle", req.SubtitlePath)
	if err != nil {
		return PreviewResult{}, err
	}
	cues, err := subtitles.ReadFile(subtitlePath)
	if err != nil {
		return PreviewResult{}, err
	}

	dir := strings.TrimSpace(p.opts.PreviewDir)
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "fastslice-preview")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return PreviewResult{}, fmt.Errorf("%w: create preview directory: %v", services.ErrFile, err)
	}
	dest := filepath.Join(dir, "preview_"+strings.ReplaceAll(p.newID(), "-", "")+p.opts.VideoExtension)
	if err := fileutil.RemoveIfExists(dest); err != nil {
		return PreviewResult{}, fmt.Errorf("%w: remove stale preview: %v", services.ErrFile, err)
	}

	single := &plan{videoPath: videoPath, ranges: []ranges.TimeRange{rng}}
	extractor := p.extractor(ctx, single, req.UseHWAccel)
	job := ffmpeg.Job{
		Source:         videoPath,
		Destination:    dest,
		Start:          rng.Start,
		End:            rng.End,
		Precise:        rng.Precise,
		AllowOverwrite: true,
	}
	if err := extractor.Extract(ctx, job); err != nil {
		return PreviewResult{}, fmt.Errorf("preview %s: %w", rng.Label, err)
	}

	sliced := subtitles.Slice(cues, rng.Start, rng.End)
	text := subtitles.Format(sliced)
	if strings.TrimSpace(rng.SubtitleOverride) != "" {
		text = strings.TrimSpace(rng.SubtitleOverride) + "\n"
	}
	logging.WithContext(ctx, p.logger).Info("preview rendered",
		logging.String("path", dest),
		logging.Int("cues", len(sliced)),
	)
	return PreviewResult{
		VideoPath:    dest,
		SubtitleText: text,
		Cues:         sliced,
		Encoder:      encoderLabel(single, extractor.Encoder),
	}, nil
}
