package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"fastslice/internal/services"
)

type call struct {
	binary string
	args   []string
}

type recordingRunner struct {
	calls  []call
	result Result
	err    error
}

func (r *recordingRunner) Run(_ context.Context, binary string, args []string) (Result, error) {
	r.calls = append(r.calls, call{binary: binary, args: slices.Clone(args)})
	return r.result, r.err
}

func indexOf(args []string, value string) int {
	return slices.Index(args, value)
}

func TestFastArgsSeekBeforeInput(t *testing.T) {
	args := FastArgs("in.mp4", "out.mp4", 70, 105)
	want := []string{"-y", "-ss", "00:01:10.000", "-to", "00:01:45.000", "-i", "in.mp4", "-c", "copy", "out.mp4"}
	if !slices.Equal(args, want) {
		t.Fatalf("FastArgs = %v, want %v", args, want)
	}
	if indexOf(args, "-ss") > indexOf(args, "-i") || indexOf(args, "-to") > indexOf(args, "-i") {
		t.Fatalf("trim arguments must precede -i: %v", args)
	}
	for _, forbidden := range []string{"-c:v", "-vf", "-crf", "-c:a"} {
		if slices.Contains(args, forbidden) {
			t.Fatalf("fast mode must not re-encode, found %s in %v", forbidden, args)
		}
	}
}

func TestPreciseArgsSoftware(t *testing.T) {
	settings := DefaultEncodeSettings()
	args := PreciseArgs("in.mp4", "out.mp4", 70, 105.5, settings, HWAccelConfig{})
	want := []string{
		"-y",
		"-ss", "00:01:10.000",
		"-i", "in.mp4",
		"-t", "00:00:35.500",
		"-c:v", "libx264", "-preset", "ultrafast", "-crf", "20",
		"-vf", "scale=-2:360",
		"-c:a", "aac", "-ac", "2", "-b:a", "96k",
		"-movflags", "+faststart",
		"out.mp4",
	}
	if !slices.Equal(args, want) {
		t.Fatalf("PreciseArgs =\n%v\nwant\n%v", args, want)
	}
	if slices.Contains(args, "-to") {
		t.Fatal("precise mode bounds by duration, not absolute end")
	}
}

func TestPreciseArgsHardware(t *testing.T) {
	settings := DefaultEncodeSettings()
	accel, ok := SelectAccelerator([]string{"libx264", "h264_videotoolbox"}, "darwin", settings.HardwareBitrate)
	if !ok {
		t.Fatal("expected videotoolbox to be selected")
	}
	args := PreciseArgs("in.mov", "out.mp4", 5, 9, settings, accel)
	if !slices.Equal(args[:3], []string{"-y", "-hwaccel", "videotoolbox"}) {
		t.Fatalf("hwaccel args must lead: %v", args)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-c:v h264_videotoolbox -b:v 8M -pix_fmt yuv420p") {
		t.Fatalf("unexpected encoder args: %s", joined)
	}
	if strings.Contains(joined, "libx264") || strings.Contains(joined, "-crf") {
		t.Fatalf("software options leaked into hardware command: %s", joined)
	}
	if indexOf(args, "-hwaccel") > indexOf(args, "-i") {
		t.Fatalf("hwaccel must precede input: %v", args)
	}
}

func TestPreciseArgsVAAPIFilter(t *testing.T) {
	settings := DefaultEncodeSettings()
	accel, ok := SelectAccelerator([]string{"h264_vaapi"}, "linux", settings.HardwareBitrate)
	if !ok {
		t.Fatal("expected vaapi to be selected")
	}
	args := PreciseArgs("in.mkv", "out.mp4", 0, 1, settings, accel)
	vf := args[indexOf(args, "-vf")+1]
	if vf != "scale=-2:360,format=nv12,hwupload" {
		t.Fatalf("unexpected filter %q", vf)
	}
}

func TestExtractRefusesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "clip_001.mp4")
	if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := &recordingRunner{}
	ex := &Extractor{Binary: "ffmpeg", Runner: runner, Settings: DefaultEncodeSettings()}

	for _, precise := range []bool{false, true} {
		err := ex.Extract(context.Background(), Job{Source: "in.mp4", Destination: dest, Start: 0, End: 1, Precise: precise})
		if !errors.Is(err, services.ErrConflict) {
			t.Fatalf("precise=%v err = %v, want ErrConflict", precise, err)
		}
	}
	if len(runner.calls) != 0 {
		t.Fatalf("runner should not be invoked on conflict, got %d calls", len(runner.calls))
	}

	if err := ex.Extract(context.Background(), Job{Source: "in.mp4", Destination: dest, End: 1, AllowOverwrite: true}); err != nil {
		t.Fatalf("AllowOverwrite: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected one invocation, got %d", len(runner.calls))
	}
}

func TestExtractSelectsStrategy(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{}
	ex := &Extractor{Binary: "/usr/bin/ffmpeg", Runner: runner, Settings: DefaultEncodeSettings()}

	if err := ex.Extract(context.Background(), Job{Source: "in.mp4", Destination: filepath.Join(dir, "a.mp4"), Start: 1, End: 2}); err != nil {
		t.Fatal(err)
	}
	if err := ex.Extract(context.Background(), Job{Source: "in.mp4", Destination: filepath.Join(dir, "b.mp4"), Start: 1, End: 2, Precise: true}); err != nil {
		t.Fatal(err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(runner.calls))
	}
	if runner.calls[0].binary != "/usr/bin/ffmpeg" {
		t.Fatalf("unexpected binary %q", runner.calls[0].binary)
	}
	if !slices.Contains(runner.calls[0].args, "copy") || slices.Contains(runner.calls[0].args, "-c:v") {
		t.Fatalf("first call should be stream copy: %v", runner.calls[0].args)
	}
	if !slices.Contains(runner.calls[1].args, "libx264") {
		t.Fatalf("second call should re-encode: %v", runner.calls[1].args)
	}
}

func TestExtractSurfacesToolError(t *testing.T) {
	runner := &recordingRunner{
		result: Result{ExitCode: 1, Stderr: "Invalid data found when processing input"},
		err:    &services.ToolError{Tool: "ffmpeg", ExitCode: 1, Stderr: "Invalid data found when processing input"},
	}
	ex := &Extractor{Binary: "ffmpeg", Runner: runner, Settings: DefaultEncodeSettings()}
	err := ex.Extract(context.Background(), Job{Source: "in.mp4", Destination: filepath.Join(t.TempDir(), "x.mp4"), End: 1})
	if !errors.Is(err, services.ErrToolExecution) {
		t.Fatalf("err = %v, want ErrToolExecution", err)
	}
	var toolErr *services.ToolError
	if !errors.As(err, &toolErr) || !strings.Contains(toolErr.Stderr, "Invalid data") {
		t.Fatalf("expected ToolError with stderr, got %v", err)
	}
}
