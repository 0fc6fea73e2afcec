package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"fastslice/internal/api"
	"fastslice/internal/config"
	"fastslice/internal/fileutil"
	"fastslice/internal/manifest"
	"fastslice/internal/pipeline"
	"fastslice/internal/ranges"
	"fastslice/internal/services"
	"fastslice/internal/subtitles"
	"fastslice/internal/timecode"
)

type sliceOptions struct {
	video           string
	subs            string
	specs           []string
	manifestPath    string
	saveManifest    string
	precise         bool
	output          string
	appendTime      bool
	noDurationCheck bool
	hwaccel         bool
	overwrite       bool
	preview         bool
	previewAt       float64
	previewSave     string
}

func newSliceCommand(ctx *commandContext) *cobra.Command {
	opts := &sliceOptions{}
	cmd := &cobra.Command{
		Use:   "slice [video subtitles]",
		Short: "Cut ranges from a video and slice its subtitles to match",
		Long: `Cut one or more ranges from a video. Each range is written as a clip and a
subtitle file whose cues are clipped and shifted to start at zero.

Ranges use the form "[title,]HH:MM:SS -> HH:MM:SS" and may be repeated:

  fastslice slice --video talk.mp4 --subs talk.srt \
    --range "Intro,00:00:05 -> 00:00:42" --range "00:10:00 -> 00:11:30"

Stream copy is the default; --precise re-encodes for frame-accurate cuts.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.video = args[0]
			}
			if len(args) > 1 {
				opts.subs = args[1]
			}
			return runSlice(cmd, ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.video, "video", "", "Source video file")
	flags.StringVar(&opts.subs, "subs", "", "Source subtitle file (.srt)")
	flags.StringArrayVarP(&opts.specs, "range", "r", nil, `Range to cut, "[title,]HH:MM:SS -> HH:MM:SS" (repeatable)`)
	flags.StringVarP(&opts.manifestPath, "manifest", "m", "", "YAML batch manifest listing the video, subtitles and ranges")
	flags.StringVar(&opts.saveManifest, "save-manifest", "", "Write the batch to a YAML manifest before running")
	flags.BoolVar(&opts.precise, "precise", false, "Re-encode every range for frame-accurate cuts")
	flags.StringVarP(&opts.output, "output", "o", "", "Output directory (defaults to paths.output_dir)")
	flags.BoolVar(&opts.appendTime, "append-time", false, "Append start and end clocks to untitled clip names")
	flags.BoolVar(&opts.noDurationCheck, "no-duration-check", false, "Skip probing the source duration")
	flags.BoolVar(&opts.hwaccel, "hwaccel", true, "Use a detected hardware encoder for precise ranges")
	flags.BoolVar(&opts.overwrite, "overwrite", false, "Replace existing clips instead of failing")
	flags.BoolVar(&opts.preview, "preview", false, "Render only the first range into the preview directory")
	flags.Float64Var(&opts.previewAt, "at", -1, "With --preview, print the cue shown at this clip time (seconds)")
	flags.StringVar(&opts.previewSave, "save", "", "With --preview, copy the rendered clip to this path")
	return cmd
}

func runSlice(cmd *cobra.Command, ctx *commandContext, opts *sliceOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	batch, err := buildBatch(cfg, opts)
	if err != nil {
		return err
	}
	rngs, err := batch.TimeRanges()
	if err != nil {
		return err
	}
	if opts.saveManifest != "" {
		if err := batch.Save(opts.saveManifest); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved manifest to %s\n", opts.saveManifest)
	}

	tools, err := ctx.tools()
	if err != nil {
		return err
	}
	store, err := ctx.openHistory()
	if err != nil {
		return err
	}
	var recorder pipeline.Recorder
	if store != nil {
		defer store.Close()
		recorder = store
	}
	p := pipeline.NewFromConfig(cfg, tools, ctx.processRunner(), recorder, ctx.log())

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	useHWAccel := cfg.Slice.UseHWAccel
	if cmd.Flags().Changed("hwaccel") {
		useHWAccel = opts.hwaccel
	}

	if opts.preview {
		return runPreview(signalCtx, cmd, ctx, p, opts, pipeline.PreviewRequest{
			VideoPath:    batch.Video,
			SubtitlePath: batch.Subtitles,
			Range:        rngs[0],
			UseHWAccel:   useHWAccel,
		})
	}

	req := pipeline.RequestDefaults(cfg, pipeline.Request{
		VideoPath:    batch.Video,
		SubtitlePath: batch.Subtitles,
		Ranges:       rngs,
		OutputDir:    batch.OutputDir,
		Source:       "cli",
	})
	req.UseHWAccel = useHWAccel
	if opts.noDurationCheck {
		req.CheckDuration = false
	} else if batch.CheckDuration != nil {
		req.CheckDuration = *batch.CheckDuration
	}
	if opts.appendTime {
		req.AppendTime = true
	}
	if opts.overwrite {
		req.Overwrite = true
	}

	progress := func(ev pipeline.Event) {
		if ctx.jsonFlag {
			return
		}
		if ev.State == pipeline.StateProcessingRange {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", ev.Index, ev.Total, ev.Description)
		}
	}
	result, runErr := p.Run(signalCtx, req, progress)
	if ctx.jsonFlag {
		if err := writeJSON(cmd, api.FromResult(result, req.OutputDir, runErr)); err != nil {
			return err
		}
		return runErr
	}
	printSliceResult(cmd, result, req.AppendTime)
	if errors.Is(runErr, services.ErrCancelled) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Cancelled after %d of %d range(s)\n", len(result.Artifacts), len(rngs))
	}
	return runErr
}

// buildBatch merges the manifest (if any) with command-line inputs. Flags win
// over manifest fields.
func buildBatch(cfg *config.Config, opts *sliceOptions) (*manifest.Manifest, error) {
	var batch *manifest.Manifest
	if opts.manifestPath != "" {
		loaded, err := manifest.Load(opts.manifestPath)
		if err != nil {
			return nil, err
		}
		batch = loaded
		for _, spec := range opts.specs {
			batch.Ranges = append(batch.Ranges, manifest.Entry{Spec: spec})
		}
		if opts.video != "" {
			batch.Video = opts.video
		}
		if opts.subs != "" {
			batch.Subtitles = opts.subs
		}
		if opts.precise || batch.Precise == nil {
			precise := opts.precise || cfg.Slice.Precise
			batch.Precise = &precise
		}
	} else {
		if strings.TrimSpace(opts.video) == "" || strings.TrimSpace(opts.subs) == "" {
			return nil, fmt.Errorf("%w: --video and --subs are required without --manifest", services.ErrFile)
		}
		var specs []string
		for _, spec := range opts.specs {
			if strings.TrimSpace(spec) != "" {
				specs = append(specs, spec)
			}
		}
		if len(specs) == 0 {
			return nil, fmt.Errorf("%w: at least one --range is required", services.ErrFormat)
		}
		batch = manifest.FromSpecs(opts.video, opts.subs, specs, opts.precise || cfg.Slice.Precise)
	}
	if opts.output != "" {
		batch.OutputDir = opts.output
	}
	return batch, nil
}

func printSliceResult(cmd *cobra.Command, result pipeline.Result, appendTime bool) {
	out := cmd.OutOrStdout()
	if len(result.Artifacts) == 0 {
		fmt.Fprintln(out, "No clips were written.")
		return
	}
	rows := make([][]string, 0, len(result.Artifacts))
	for _, a := range result.Artifacts {
		mode := "copy"
		if a.Range.Precise {
			mode = "precise"
		}
		rows = append(rows, []string{
			strconv.Itoa(a.Index),
			ranges.BaseName(a.Range, a.Index, appendTime),
			timecode.Tool(a.Range.Start),
			timecode.Tool(a.Range.End),
			mode,
			filepath.Base(a.VideoPath),
			filepath.Base(a.SubtitlePath),
		})
	}
	caption := fmt.Sprintf("run %s · %s · %s", result.RunID, result.Encoder, result.State)
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Name", "Start", "End", "Mode", "Video", "Subtitles"},
		rows,
		[]columnAlignment{alignRight},
		caption,
	))
	fmt.Fprintf(out, "Output: %s\n", filepath.Dir(result.Artifacts[0].VideoPath))
}

func runPreview(runCtx context.Context, cmd *cobra.Command, ctx *commandContext, p *pipeline.Pipeline, opts *sliceOptions, req pipeline.PreviewRequest) error {
	preview, err := p.Preview(runCtx, req)
	if err != nil {
		return err
	}
	if opts.previewSave != "" {
		if err := fileutil.CopyFileMode(preview.VideoPath, opts.previewSave, 0o644); err != nil {
			return fmt.Errorf("save preview: %w", err)
		}
	}

	var active *subtitles.Cue
	if opts.previewAt >= 0 {
		if cue, ok := subtitles.CueAt(preview.Cues, opts.previewAt); ok {
			active = &cue
		}
	}

	if ctx.jsonFlag {
		payload := map[string]any{
			"video":     preview.VideoPath,
			"encoder":   preview.Encoder,
			"subtitles": preview.SubtitleText,
		}
		if opts.previewSave != "" {
			payload["saved"] = opts.previewSave
		}
		if active != nil {
			payload["cue"] = active.Text()
		}
		return writeJSON(cmd, payload)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Preview: %s (%s)\n", preview.VideoPath, preview.Encoder)
	if opts.previewSave != "" {
		fmt.Fprintf(out, "Saved:   %s\n", opts.previewSave)
	}
	rows := make([][]string, 0, len(preview.Cues))
	for i, cue := range preview.Cues {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			timecode.Subtitle(cue.Start),
			timecode.Subtitle(cue.End),
			strings.ReplaceAll(cue.Text(), "\n", " / "),
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"#", "Start", "End", "Text"}, rows, []columnAlignment{alignRight}, ""))
	} else {
		fmt.Fprintln(out, "No subtitles fall inside this range.")
	}
	if opts.previewAt >= 0 {
		if active != nil {
			fmt.Fprintf(out, "At %.3fs: %s\n", opts.previewAt, active.Text())
		} else {
			fmt.Fprintf(out, "At %.3fs: (no subtitle)\n", opts.previewAt)
		}
	}
	return nil
}
