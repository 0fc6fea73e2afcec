package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fastslice/internal/ranges"
	"fastslice/internal/services"
	"fastslice/internal/subtitles"
)

// plan is a fully validated batch.
type plan struct {
	videoPath    string
	subtitlePath string
	outputDir    string
	ranges       []ranges.TimeRange
	cues         []subtitles.Cue
}

func (p *plan) anyPrecise() bool {
	for _, rng := range p.ranges {
		if rng.Precise {
			return true
		}
	}
	return false
}

// validate checks everything that can be checked without running a tool.
func (p *Pipeline) validate(req Request) (*plan, error) {
	rngs, err := resolveRanges(req)
	if err != nil {
		return nil, err
	}
	if err := ranges.EnforceUniqueTitles(rngs); err != nil {
		return nil, err
	}
	if err := checkBaseNames(rngs, req.AppendTime); err != nil {
		return nil, err
	}

	videoPath, err := p.checkVideo(req.VideoPath)
	if err != nil {
		return nil, err
	}
	subtitlePath, err := checkRegularFile("subtitle", req.SubtitlePath)
	if err != nil {
		return nil, err
	}
	cues, err := subtitles.ReadFile(subtitlePath)
	if err != nil {
		return nil, err
	}

	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		return nil, fmt.Errorf("%w: output directory is required", services.ErrFile)
	}
	if info, err := os.Stat(outputDir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("%w: output path %s is not a directory", services.ErrFile, outputDir)
	}

	return &plan{
		videoPath:    videoPath,
		subtitlePath: subtitlePath,
		outputDir:    filepath.Clean(outputDir),
		ranges:       rngs,
		cues:         cues,
	}, nil
}

func resolveRanges(req Request) ([]ranges.TimeRange, error) {
	if len(req.Ranges) > 0 {
		out := make([]ranges.TimeRange, len(req.Ranges))
		copy(out, req.Ranges)
		for _, rng := range out {
			if rng.Start < 0 || rng.Start >= rng.End {
				return nil, fmt.Errorf("%w: range %q must satisfy 0 <= start < end", services.ErrRange, rng.Label)
			}
		}
		return out, nil
	}

	out := make([]ranges.TimeRange, 0, len(req.Specs))
	for _, spec := range req.Specs {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		rng, err := ranges.Parse(spec)
		if err != nil {
			return nil, err
		}
		rng.Precise = req.Precise
		out = append(out, rng)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one range is required", services.ErrFormat)
	}
	return out, nil
}

// checkBaseNames rejects batches where a title collides with a positional
// name such as clip_002.
func checkBaseNames(rngs []ranges.TimeRange, appendTime bool) error {
	seen := make(map[string]string, len(rngs))
	for i, rng := range rngs {
		base := ranges.BaseName(rng, i+1, appendTime)
		if first, ok := seen[base]; ok {
			return fmt.Errorf("%w: ranges %q and %q both write %s", services.ErrDuplicateTitle, first, rng.Label, base)
		}
		seen[base] = rng.Label
	}
	return nil
}

func (p *Pipeline) checkVideo(path string) (string, error) {
	path, err := checkRegularFile("video", path)
	if err != nil {
		return "", err
	}
	if p.opts.AllowedVideo != nil && !p.opts.AllowedVideo(path) {
		return "", fmt.Errorf("%w: video %s has an unsupported extension", services.ErrFile, path)
	}
	if strings.EqualFold(filepath.Ext(path), subtitles.Extension) {
		return "", fmt.Errorf("%w: video %s looks like a subtitle file", services.ErrFile, path)
	}
	return path, nil
}

func checkRegularFile(kind, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: %s path is required", services.ErrFile, kind)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s %s does not exist", services.ErrFile, kind, path)
		}
		return "", fmt.Errorf("%w: stat %s %s: %v", services.ErrFile, kind, path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s %s is not a regular file", services.ErrFile, kind, path)
	}
	return path, nil
}
