package preflight

import (
	"context"

	"fastslice/internal/config"
	"fastslice/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// ToolLocator builds the binary locator described by cfg.
func ToolLocator(cfg *config.Config) deps.Locator {
	overrides := map[string]string{}
	if cfg != nil {
		overrides["ffmpeg"] = cfg.Tools.FFmpeg
		overrides["ffprobe"] = cfg.Tools.FFprobe
		return deps.Locator{Overrides: overrides, BinDirs: cfg.Tools.BinDirs}
	}
	return deps.Locator{Overrides: overrides}
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := CheckTools(ctx, ToolLocator(cfg))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	}
	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
