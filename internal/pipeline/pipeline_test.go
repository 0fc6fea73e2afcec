package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"fastslice/internal/deps"
	"fastslice/internal/ffmpeg"
	"fastslice/internal/fileutil"
	"fastslice/internal/history"
	"fastslice/internal/ranges"
	"fastslice/internal/services"
	"fastslice/internal/testsupport"
)

type fixture struct {
	pipeline *Pipeline
	runner   *testsupport.FakeRunner
	store    *history.Store
	video    string
	subs     string
	output   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	dir := t.TempDir()
	video, subs := testsupport.Inputs(t, dir)
	runner := testsupport.NewFakeRunner().Script("ffprobe", testsupport.Response{Stdout: "120.000000\n"})
	store := testsupport.MustOpenHistory(t, cfg)
	p := NewFromConfig(cfg, toolsFor(), runner, store, nil)
	return &fixture{pipeline: p, runner: runner, store: store, video: video, subs: subs, output: cfg.Paths.OutputDir}
}

func toolsFor() deps.Tools {
	return deps.Tools{FFmpeg: "/opt/bin/ffmpeg", FFprobe: "/opt/bin/ffprobe"}
}

func (f *fixture) request(specs ...string) Request {
	return Request{
		VideoPath:     f.video,
		SubtitlePath:  f.subs,
		Specs:         specs,
		OutputDir:     f.output,
		CheckDuration: true,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRunFastBatch(t *testing.T) {
	f := newFixture(t)
	var events []Event
	result, err := f.pipeline.Run(context.Background(), f.request("Intro,00:00:05 -> 00:00:09", "00:00:00 -> 00:00:02"), func(ev Event) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.State != StateDone || result.Duration != 120 || result.Encoder != "stream copy" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(result.Artifacts))
	}

	intro := result.Artifacts[0]
	if intro.VideoPath != filepath.Join(f.output, "Intro.mp4") || intro.SubtitlePath != filepath.Join(f.output, "Intro.srt") {
		t.Fatalf("unexpected intro paths %+v", intro)
	}
	wantSubs := "1\n00:00:00,000 --> 00:00:01,000\ntwo\n\n2\n00:00:02,000 --> 00:00:04,000\nthree\n"
	if got := readFile(t, intro.SubtitlePath); got != wantSubs {
		t.Fatalf("intro subtitles =\n%q\nwant\n%q", got, wantSubs)
	}
	if result.Artifacts[1].VideoPath != filepath.Join(f.output, "clip_002.mp4") {
		t.Fatalf("untitled range should use positional name, got %s", result.Artifacts[1].VideoPath)
	}

	if probes := f.runner.CallsTo("ffprobe"); len(probes) != 1 {
		t.Fatalf("expected a single duration probe, got %d", len(probes))
	}
	cuts := f.runner.CallsTo("ffmpeg")
	if len(cuts) != 2 {
		t.Fatalf("expected 2 ffmpeg calls, got %d", len(cuts))
	}
	if cuts[0].Binary != "/opt/bin/ffmpeg" || !slices.Contains(cuts[0].Args, "copy") {
		t.Fatalf("unexpected first cut %+v", cuts[0])
	}

	var states []State
	for _, ev := range events {
		states = append(states, ev.State)
	}
	want := []State{StateValidating, StateCheckingDuration, StateProcessingRange, StateProcessingRange, StateDone}
	if !slices.Equal(states, want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	if events[2].Index != 1 || events[2].Total != 2 || !strings.Contains(events[2].Description, "Intro") {
		t.Fatalf("unexpected progress event %+v", events[2])
	}

	run, err := f.store.GetRun(context.Background(), result.RunID)
	if err != nil || run == nil {
		t.Fatalf("history run missing: %v", err)
	}
	if run.Status != history.StatusDone || run.RangeCount != 2 {
		t.Fatalf("unexpected history %+v", run)
	}
	artifacts, err := f.store.Artifacts(context.Background(), result.RunID)
	if err != nil || len(artifacts) != 2 {
		t.Fatalf("history artifacts = %v, %v", artifacts, err)
	}
	if fileutil.Exists(filepath.Join(f.output, fileutil.LockFileName)) {
		t.Fatal("output lock not released")
	}
}

func TestRunValidationFailsBeforeTools(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, f *fixture, req *Request)
		want   error
	}{
		{name: "range order", mutate: func(_ *testing.T, _ *fixture, req *Request) { req.Specs = []string{"Intro,00:00:10 -> 00:00:05"} }, want: services.ErrRange},
		{name: "bad clock", mutate: func(_ *testing.T, _ *fixture, req *Request) { req.Specs = []string{"00:61:00 -> 00:62:00"} }, want: services.ErrFormat},
		{name: "duplicate titles", mutate: func(_ *testing.T, _ *fixture, req *Request) {
			req.Specs = []string{"精華 1,00:00:00 -> 00:00:01", "精華_1,00:00:02 -> 00:00:03"}
		}, want: services.ErrDuplicateTitle},
		{name: "title shadows positional name", mutate: func(_ *testing.T, _ *fixture, req *Request) {
			req.Specs = []string{"00:00:00 -> 00:00:01", "clip_001,00:00:02 -> 00:00:03"}
		}, want: services.ErrDuplicateTitle},
		{name: "no ranges", mutate: func(_ *testing.T, _ *fixture, req *Request) { req.Specs = []string{"  "} }, want: services.ErrFormat},
		{name: "missing video", mutate: func(t *testing.T, f *fixture, req *Request) { req.VideoPath = filepath.Join(filepath.Dir(f.video), "absent.mp4") }, want: services.ErrFile},
		{name: "video is a directory", mutate: func(t *testing.T, f *fixture, req *Request) { req.VideoPath = filepath.Dir(f.video) }, want: services.ErrFile},
		{name: "unsupported video extension", mutate: func(t *testing.T, f *fixture, req *Request) {
			path := filepath.Join(filepath.Dir(f.video), "notes.txt")
			testsupport.WriteFile(t, path, 10)
			req.VideoPath = path
		}, want: services.ErrFile},
		{name: "subtitle extension", mutate: func(t *testing.T, f *fixture, req *Request) {
			req.SubtitlePath = testsupport.WriteSRT(t, filepath.Dir(f.subs), "source.vtt", testsupport.SampleSRT)
		}, want: services.ErrFile},
		{name: "malformed subtitles", mutate: func(t *testing.T, f *fixture, req *Request) {
			req.SubtitlePath = testsupport.WriteSRT(t, filepath.Dir(f.subs), "broken.srt", "1\n00:00:00 --> 00:00:01\nx\n")
		}, want: services.ErrSubtitleFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := f.request("00:00:00 -> 00:00:01")
			tt.mutate(t, f, &req)
			result, err := f.pipeline.Run(context.Background(), req, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !services.IsValidation(err) || services.ExitCode(err) != 2 {
				t.Fatalf("expected validation exit code for %v", err)
			}
			if result.State != StateFailed {
				t.Fatalf("state = %s, want failed", result.State)
			}
			if calls := f.runner.Calls(); len(calls) != 0 {
				t.Fatalf("tools invoked during validation: %+v", calls)
			}
			if runs, _ := f.store.ListRuns(context.Background(), 0); len(runs) != 0 {
				t.Fatalf("validation failures must not be recorded, got %d runs", len(runs))
			}
		})
	}
}

func TestRunDurationExceeded(t *testing.T) {
	f := newFixture(t)
	f.runner = testsupport.NewFakeRunner().Script("ffprobe", testsupport.Response{Stdout: "8.004\n"})
	f.pipeline.opts.Runner = f.runner

	result, err := f.pipeline.Run(context.Background(), f.request("00:00:00 -> 00:00:05", "Late,00:00:05 -> 00:00:09"), nil)
	if !errors.Is(err, services.ErrDurationExceeded) {
		t.Fatalf("err = %v, want ErrDurationExceeded", err)
	}
	if !strings.Contains(err.Error(), "video about 8.00 s") || !strings.Contains(err.Error(), "Late,00:00:05 -> 00:00:09") {
		t.Fatalf("message should name duration and range: %v", err)
	}
	if len(f.runner.CallsTo("ffmpeg")) != 0 || len(result.Artifacts) != 0 {
		t.Fatal("no range may run after a failed duration check")
	}
	run, _ := f.store.GetRun(context.Background(), result.RunID)
	if run == nil || run.Status != history.StatusFailed {
		t.Fatalf("history should record failure, got %+v", run)
	}
}

func TestRunSkipsDurationCheckWhenDisabled(t *testing.T) {
	f := newFixture(t)
	req := f.request("00:00:00 -> 00:00:01")
	req.CheckDuration = false
	if _, err := f.pipeline.Run(context.Background(), req, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.runner.CallsTo("ffprobe")) != 0 {
		t.Fatal("ffprobe should not run when the duration check is off")
	}
}

func TestRunCancellationBetweenRanges(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.runner.Before = func(c testsupport.Call) {
		if strings.HasSuffix(c.Binary, "ffmpeg") {
			cancel()
		}
	}

	result, err := f.pipeline.Run(ctx, f.request("A,00:00:00 -> 00:00:01", "B,00:00:02 -> 00:00:03"), nil)
	if !errors.Is(err, services.ErrCancelled) || services.ExitCode(err) != 130 {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if result.State != StateCancelled {
		t.Fatalf("state = %s, want cancelled", result.State)
	}
	if len(result.Artifacts) != 1 || !fileutil.Exists(result.Artifacts[0].SubtitlePath) {
		t.Fatalf("range in flight must complete, got %+v", result.Artifacts)
	}
	if len(f.runner.CallsTo("ffmpeg")) != 1 {
		t.Fatal("no range may start after cancellation")
	}
	run, _ := f.store.GetRun(context.Background(), result.RunID)
	if run == nil || run.Status != history.StatusCancelled {
		t.Fatalf("history should record cancellation, got %+v", run)
	}
}

func TestRunCancelledDuringDurationCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	video, subs := testsupport.Inputs(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := testsupport.NewFakeRunner().Script("ffprobe", testsupport.Response{
		Err: &services.ToolError{Tool: "ffprobe", ExitCode: -1, Err: context.Canceled},
	})
	runner.Before = func(testsupport.Call) { cancel() }
	store := testsupport.MustOpenHistory(t, cfg)
	p := NewFromConfig(cfg, toolsFor(), runner, store, nil)

	result, err := p.Run(ctx, Request{
		VideoPath:     video,
		SubtitlePath:  subs,
		Specs:         []string{"00:00:00 -> 00:00:01"},
		OutputDir:     cfg.Paths.OutputDir,
		CheckDuration: true,
	}, nil)
	if !errors.Is(err, context.Canceled) || services.ExitCode(err) != 130 {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result.State != StateCancelled {
		t.Fatalf("state = %s, want cancelled", result.State)
	}
	if len(runner.CallsTo("ffmpeg")) != 0 {
		t.Fatal("no range may start after cancellation")
	}
	run, _ := store.GetRun(context.Background(), result.RunID)
	if run == nil || run.Status != history.StatusCancelled {
		t.Fatalf("history should record cancellation, got %+v", run)
	}
}

func TestRunStopsOnToolFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.Script("ffmpeg",
		testsupport.Response{},
		testsupport.Response{ExitCode: 1, Stderr: "Conversion failed!"},
	)
	result, err := f.pipeline.Run(context.Background(), f.request("A,00:00:00 -> 00:00:01", "B,00:00:02 -> 00:00:03", "C,00:00:04 -> 00:00:05"), nil)
	if !errors.Is(err, services.ErrToolExecution) {
		t.Fatalf("err = %v, want ErrToolExecution", err)
	}
	var toolErr *services.ToolError
	if !errors.As(err, &toolErr) || toolErr.Stderr != "Conversion failed!" {
		t.Fatalf("expected tool stderr in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "B,00:00:02 -> 00:00:03") {
		t.Fatalf("error should name the failing range: %v", err)
	}
	if len(result.Artifacts) != 1 || !fileutil.Exists(filepath.Join(f.output, "A.srt")) {
		t.Fatalf("earlier clips must be kept, got %+v", result.Artifacts)
	}
	if len(f.runner.CallsTo("ffmpeg")) != 2 {
		t.Fatal("processing must stop at the first failure")
	}
}

func TestRunConflictAndManagedOverwrite(t *testing.T) {
	f := newFixture(t)
	stale := filepath.Join(f.output, "Intro.mp4")
	testsupport.WriteFile(t, stale, 64)

	_, err := f.pipeline.Run(context.Background(), f.request("Intro,00:00:00 -> 00:00:01"), nil)
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if len(f.runner.CallsTo("ffmpeg")) != 0 {
		t.Fatal("ffmpeg must not run against an existing destination")
	}

	testsupport.WriteSRT(t, f.output, "Intro.srt", "stale")
	req := f.request("Intro,00:00:00 -> 00:00:01")
	req.Overwrite = true
	if _, err := f.pipeline.Run(context.Background(), req, nil); err != nil {
		t.Fatalf("managed run: %v", err)
	}
	if got := readFile(t, stale); got != "clip" {
		t.Fatalf("stale video not replaced, got %q", got)
	}
	if got := readFile(t, filepath.Join(f.output, "Intro.srt")); !strings.Contains(got, "one") {
		t.Fatalf("stale subtitles not replaced, got %q", got)
	}
}

func TestRunRefusesExistingSubtitle(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteSRT(t, f.output, "clip_001.srt", "keep me")
	_, err := f.pipeline.Run(context.Background(), f.request("00:00:00 -> 00:00:01"), nil)
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if got := readFile(t, filepath.Join(f.output, "clip_001.srt")); got != "keep me" {
		t.Fatalf("existing subtitle modified: %q", got)
	}
}

func TestRunLockedOutput(t *testing.T) {
	f := newFixture(t)
	lock, err := fileutil.LockDir(f.output)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Unlock()

	_, err = f.pipeline.Run(context.Background(), f.request("00:00:00 -> 00:00:01"), nil)
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestRunPreciseProbesOnce(t *testing.T) {
	f := newFixture(t)
	f.runner.Script("ffmpeg", testsupport.Response{Stdout: " ------\n V....D h264_videotoolbox VideoToolbox H.264\n V....D h264_nvenc NVENC\n V....D h264_amf AMF\n"}, testsupport.Response{})

	req := f.request("A,00:00:00 -> 00:00:01", "B,00:00:02 -> 00:00:03")
	req.Precise = true
	req.UseHWAccel = true
	result, err := f.pipeline.Run(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var probes, encodes int
	for _, c := range f.runner.CallsTo("ffmpeg") {
		if slices.Contains(c.Args, "-encoders") {
			probes++
			continue
		}
		encodes++
		codec := c.Args[slices.Index(c.Args, "-c:v")+1]
		if codec == "libx264" || !strings.HasPrefix(codec, "h264_") {
			t.Fatalf("expected hardware codec, got %s", codec)
		}
		if !slices.Contains(c.Args, "-t") || slices.Contains(c.Args, "-to") {
			t.Fatalf("precise mode must bound by duration: %v", c.Args)
		}
	}
	if probes != 1 || encodes != 2 {
		t.Fatalf("probes=%d encodes=%d, want 1 and 2", probes, encodes)
	}
	if result.Encoder == "" || result.Encoder == "stream copy" {
		t.Fatalf("unexpected encoder label %q", result.Encoder)
	}
}

func TestRunPreciseSoftwareWithoutHWAccel(t *testing.T) {
	f := newFixture(t)
	rngA, _ := ranges.Parse("A,00:00:00 -> 00:00:01")
	rngA.Precise = true
	rngB, _ := ranges.Parse("B,00:00:02 -> 00:00:03")
	req := f.request()
	req.Ranges = []ranges.TimeRange{rngA, rngB}

	result, err := f.pipeline.Run(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	cuts := f.runner.CallsTo("ffmpeg")
	if len(cuts) != 2 {
		t.Fatalf("expected 2 calls without a probe, got %d", len(cuts))
	}
	if !slices.Contains(cuts[0].Args, "libx264") || !slices.Contains(cuts[1].Args, "copy") {
		t.Fatalf("per-range precise flag ignored: %v / %v", cuts[0].Args, cuts[1].Args)
	}
	if result.Encoder != ffmpeg.SoftwareConfig(ffmpeg.DefaultEncodeSettings()).Name {
		t.Fatalf("encoder = %q", result.Encoder)
	}
}

func TestRunWritesSubtitleOverride(t *testing.T) {
	f := newFixture(t)
	rng, _ := ranges.Parse("Edited,00:00:05 -> 00:00:09")
	rng.SubtitleOverride = "\n1\n00:00:00,000 --> 00:00:01,500\nhand edited\n\n\n"
	req := f.request()
	req.Ranges = []ranges.TimeRange{rng}

	if _, err := f.pipeline.Run(context.Background(), req, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := readFile(t, filepath.Join(f.output, "Edited.srt"))
	if got != "1\n00:00:00,000 --> 00:00:01,500\nhand edited\n" {
		t.Fatalf("override not written verbatim: %q", got)
	}
}

func TestRunAppendTimeNaming(t *testing.T) {
	f := newFixture(t)
	req := f.request("00:01:10 -> 00:01:45")
	req.AppendTime = true
	result, err := f.pipeline.Run(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := filepath.Join(f.output, "clip_001__00-01-10__00-01-45.mp4")
	if result.Artifacts[0].VideoPath != want {
		t.Fatalf("video path = %s, want %s", result.Artifacts[0].VideoPath, want)
	}
	args := f.runner.CallsTo("ffmpeg")[0].Args
	if args[slices.Index(args, "-ss")+1] != "00:01:10.000" || args[slices.Index(args, "-to")+1] != "00:01:45.000" {
		t.Fatalf("unexpected trim args %v", args)
	}
}
