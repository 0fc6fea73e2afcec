package deps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fastslice/internal/services"
)

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func fixedDir(dir string) func() (string, error) {
	return func() (string, error) { return dir, nil }
}

func TestCheckBinaries(t *testing.T) {
	present := filepath.Join(t.TempDir(), "present")
	writeStub(t, present)
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestLocatorPrefersOverride(t *testing.T) {
	tmp := t.TempDir()
	override := filepath.Join(tmp, "custom", executableName("ffmpeg"))
	writeStub(t, override)
	writeStub(t, filepath.Join(tmp, "work", "bin", executableName("ffmpeg")))

	loc := Locator{
		Overrides:  map[string]string{"ffmpeg": override},
		Executable: fixedDir(filepath.Join(tmp, "app", "fastslice")),
		WorkDir:    fixedDir(filepath.Join(tmp, "work")),
	}
	got, err := loc.Find("ffmpeg")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got != override {
		t.Fatalf("Find = %q, want override %q", got, override)
	}
}

func TestLocatorSearchOrder(t *testing.T) {
	tmp := t.TempDir()
	configured := filepath.Join(tmp, "configured")
	exeBin := filepath.Join(tmp, "app", "bin", executableName("ffprobe"))
	workBin := filepath.Join(tmp, "work", "bin", executableName("ffprobe"))
	writeStub(t, exeBin)
	writeStub(t, workBin)
	t.Setenv("PATH", "")

	loc := Locator{
		BinDirs:    []string{configured},
		Executable: fixedDir(filepath.Join(tmp, "app", "fastslice")),
		WorkDir:    fixedDir(filepath.Join(tmp, "work")),
	}
	got, err := loc.Find("ffprobe")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got != exeBin {
		t.Fatalf("Find = %q, want executable-relative %q", got, exeBin)
	}

	writeStub(t, filepath.Join(configured, executableName("ffprobe")))
	got, err = loc.Find("ffprobe")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got != filepath.Join(configured, executableName("ffprobe")) {
		t.Fatalf("configured dir should win, got %q", got)
	}
}

func TestLocatorPathFallback(t *testing.T) {
	binDir := t.TempDir()
	stub := filepath.Join(binDir, executableName("ffmpeg"))
	writeStub(t, stub)
	t.Setenv("PATH", binDir)

	empty := t.TempDir()
	loc := Locator{Executable: fixedDir(filepath.Join(empty, "x")), WorkDir: fixedDir(empty)}
	got, err := loc.Find("ffmpeg")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got != stub {
		t.Fatalf("Find = %q, want %q", got, stub)
	}
}

func TestLocatorMissing(t *testing.T) {
	t.Setenv("PATH", "")
	empty := t.TempDir()
	loc := Locator{
		Overrides:  map[string]string{"ffmpeg": filepath.Join(empty, "nope")},
		Executable: fixedDir(filepath.Join(empty, "x")),
		WorkDir:    fixedDir(empty),
	}
	if _, err := loc.Find("ffmpeg"); !errors.Is(err, services.ErrToolMissing) {
		t.Fatalf("err = %v, want ErrToolMissing", err)
	}
	if _, err := loc.FindTools(); !errors.Is(err, services.ErrToolMissing) {
		t.Fatalf("FindTools err = %v, want ErrToolMissing", err)
	}
}

func TestFindTools(t *testing.T) {
	tmp := t.TempDir()
	writeStub(t, filepath.Join(tmp, "bin", executableName("ffmpeg")))
	writeStub(t, filepath.Join(tmp, "bin", executableName("ffprobe")))
	t.Setenv("PATH", "")

	loc := Locator{Executable: fixedDir(filepath.Join(tmp, "fastslice")), WorkDir: fixedDir(t.TempDir())}
	tools, err := loc.FindTools()
	if err != nil {
		t.Fatalf("FindTools: %v", err)
	}
	if tools.FFmpeg != filepath.Join(tmp, "bin", executableName("ffmpeg")) || tools.FFprobe != filepath.Join(tmp, "bin", executableName("ffprobe")) {
		t.Fatalf("unexpected tools: %+v", tools)
	}

	reqs := loc.Requirements()
	if reqs[0].Command != tools.FFmpeg {
		t.Fatalf("requirements should carry resolved path, got %q", reqs[0].Command)
	}
}
