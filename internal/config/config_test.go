package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"fastslice/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("FVS_FFMPEG", "")
	t.Setenv("FASTSLICE_API_TOKEN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "fastslice", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.LogDir != filepath.Join(tempHome, ".local", "share", "fastslice", "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Paths.PreviewDir != filepath.Join(tempHome, ".cache", "fastslice", "preview") {
		t.Fatalf("unexpected preview dir: %q", cfg.Paths.PreviewDir)
	}
	if !filepath.IsAbs(cfg.Paths.OutputDir) || filepath.Base(cfg.Paths.OutputDir) != "clips" {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if !cfg.Slice.CheckDuration || !cfg.Slice.UseHWAccel {
		t.Fatal("expected duration check and hwaccel enabled by default")
	}
	if cfg.Slice.Overwrite || cfg.Slice.Precise {
		t.Fatal("expected overwrite and precise disabled by default")
	}
	if cfg.Encode.SoftwareCodec != "libx264" || cfg.Encode.SoftwareCRF != 20 || cfg.Encode.ScaleHeight != 360 {
		t.Fatalf("unexpected encode defaults: %+v", cfg.Encode)
	}
	if cfg.API.Bind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.HistoryPath() != filepath.Join(tempHome, ".local", "share", "fastslice", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "fastslice.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Slice struct {
			Precise                bool     `toml:"precise"`
			VideoExtension         string   `toml:"video_extension"`
			AllowedVideoExtensions []string `toml:"allowed_video_extensions"`
		} `toml:"slice"`
		Logging struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Slice.Precise = true
	custom.Slice.VideoExtension = "MKV"
	custom.Slice.AllowedVideoExtensions = []string{"MP4", ".mkv", " mp4 "}
	custom.Logging.Format = "JSON"
	custom.Logging.Level = "Debug"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to be used, got %q (exists=%v)", resolved, exists)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "out") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if !cfg.Slice.Precise {
		t.Fatal("expected precise to be enabled")
	}
	if cfg.Slice.VideoExtension != ".mkv" {
		t.Fatalf("unexpected video extension: %q", cfg.Slice.VideoExtension)
	}
	if strings.Join(cfg.Slice.AllowedVideoExtensions, ",") != ".mp4,.mkv" {
		t.Fatalf("unexpected allowed extensions: %v", cfg.Slice.AllowedVideoExtensions)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if !cfg.IsAllowedVideo("/x/movie.MKV") || cfg.IsAllowedVideo("/x/movie.avi") {
		t.Fatal("IsAllowedVideo disagrees with configured extensions")
	}
}

func TestLoadEnvironmentFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FVS_FFMPEG", " /opt/ffmpeg/bin/ffmpeg ")
	t.Setenv("FVS_FFPROBE", "/opt/ffmpeg/bin/ffprobe")
	t.Setenv("FASTSLICE_API_TOKEN", "secret")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Tools.FFmpeg != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("unexpected ffmpeg override: %q", cfg.Tools.FFmpeg)
	}
	if cfg.Tools.FFprobe != "/opt/ffmpeg/bin/ffprobe" {
		t.Fatalf("unexpected ffprobe override: %q", cfg.Tools.FFprobe)
	}
	if cfg.API.Token != "secret" {
		t.Fatalf("unexpected api token: %q", cfg.API.Token)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"crf":     "[encode]\nsoftware_crf = 99\n",
		"bind":    "[api]\nbind = \"nonsense\"\n",
		"level":   "[logging]\nlevel = \"loud\"\n",
		"srt ext": "[slice]\nvideo_extension = \"srt\"\n",
		"unknown": "[slice]\nmystery = true\n",
		"syntax":  "[slice\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			path := filepath.Join(t.TempDir(), "fastslice.toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestSampleConfigLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path, false); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if err := config.CreateSample(path, false); !errors.Is(err, config.ErrConfigExists) {
		t.Fatalf("second CreateSample err = %v, want ErrConfigExists", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Encode.HardwareBitrate != "8M" {
		t.Fatalf("unexpected hardware bitrate: %q", cfg.Encode.HardwareBitrate)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := config.Default()
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), "[slice]") || !strings.Contains(string(data), "libx264") {
		t.Fatalf("unexpected encoding:\n%s", data)
	}
}
