package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"fastslice/internal/api"
	"fastslice/internal/config"
	"fastslice/internal/ffmpeg"
	"fastslice/internal/pipeline"
	"fastslice/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check tools, directories and the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			locator := preflight.ToolLocator(cfg)
			dependencies := preflight.CheckSystemDeps(cmd.Context(), locator)
			checks := preflight.RunAll(cmd.Context(), cfg)
			serverRunning := serverLockHeld(cfg)

			encoder := ffmpeg.SoftwareConfig(pipeline.EncodeSettings(cfg)).Name
			if probe && cfg.Slice.UseHWAccel {
				if tools, err := locator.FindTools(); err == nil {
					encoder = ffmpeg.NewProber(tools.FFmpeg, ctx.processRunner(), pipeline.EncodeSettings(cfg), ctx.log()).Probe(cmd.Context()).Name
				}
			}

			if ctx.jsonFlag {
				return writeJSON(cmd, api.ServerStatus{
					Running:       serverRunning,
					Encoder:       encoder,
					OutputDir:     cfg.Paths.OutputDir,
					HistoryDBPath: historyPath(cfg),
					LockFilePath:  serverLockPath(cfg),
					Dependencies:  api.FromDependencies(dependencies),
				})
			}

			out := cmd.OutOrStdout()
			report := newStatusReport(out)

			report.section("Configuration")
			if ctx.configExists {
				report.add("Config", statusOK, ctx.configPath)
			} else {
				report.add("Config", statusInfo, "defaults (no file at "+ctx.configPath+")")
			}
			report.add("Encoder", statusInfo, encoder)
			report.add("Hardware accel", statusInfo, yesNo(cfg.Slice.UseHWAccel))

			report.section("Dependencies")
			for _, dep := range dependencies {
				switch {
				case dep.Available:
					report.add(dep.Name, statusOK, dep.Command)
				case dep.Optional:
					report.add(dep.Name, statusWarn, dep.Detail)
				default:
					report.add(dep.Name, statusError, dep.Detail)
				}
			}

			report.section("Directories")
			for _, check := range checks {
				if !strings.HasSuffix(check.Name, "directory") {
					continue
				}
				kind := statusOK
				if !check.Passed {
					kind = statusError
				}
				report.add(check.Name, kind, check.Detail)
			}

			report.section("Server")
			if serverRunning {
				report.add("HTTP API", statusOK, "Running on "+cfg.API.Bind)
			} else {
				report.add("HTTP API", statusInfo, "Not running (start with 'fastslice serve')")
			}
			if cfg.History.Enabled {
				report.add("History", statusOK, historyPath(cfg))
			} else {
				report.add("History", statusWarn, "Disabled")
			}

			fmt.Fprintln(out, report)
			if failed := preflight.Failed(checks); len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "Run ffmpeg to detect the hardware encoder")
	return cmd
}

func serverLockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.StateDir, "fastslice-serve.lock")
}

// serverLockHeld reports whether a serve process holds the state directory.
func serverLockHeld(cfg *config.Config) bool {
	lock := flock.New(serverLockPath(cfg))
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = lock.Unlock()
		return false
	}
	return true
}

func historyPath(cfg *config.Config) string {
	if !cfg.History.Enabled {
		return ""
	}
	return cfg.HistoryPath()
}
