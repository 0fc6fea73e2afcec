package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fastslice/internal/config"
	"fastslice/internal/logging"
	"fastslice/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("written to file")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "fastslice.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "written to file") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleSubjectFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWriterLogger(&buf, "console", "info")
	if err != nil {
		t.Fatal(err)
	}

	ctx := services.WithRunID(context.Background(), "0123456789abcdef")
	ctx = services.WithRangeIndex(ctx, 2)
	ctx = services.WithStage(ctx, "processing")
	component := logging.NewComponentLogger(logger, "pipeline")
	logging.WithContext(ctx, component).Info("range complete", logging.String("video", "clip_002.mp4"))

	out := buf.String()
	for _, want := range []string{"INFO [pipeline] Run 01234567 · Range 2 (processing) – range complete", "    - video: clip_002.mp4"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "run_id") {
		t.Fatalf("subject fields should not repeat at info level:\n%s", out)
	}
}

func TestJSONLoggerCarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWriterLogger(&buf, "json", "info")
	if err != nil {
		t.Fatal(err)
	}

	ctx := services.WithRunID(context.Background(), "run-xyz")
	ctx = services.WithRangeIndex(ctx, 3)
	ctx = services.WithStage(ctx, "processing")
	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record[logging.FieldRunID] != "run-xyz" {
		t.Fatalf("run_id = %v", record[logging.FieldRunID])
	}
	if record[logging.FieldRangeIndex] != float64(3) {
		t.Fatalf("range_index = %v", record[logging.FieldRangeIndex])
	}
	if record[logging.FieldStage] != "processing" {
		t.Fatalf("stage = %v", record[logging.FieldStage])
	}
	if record["level"] != "info" {
		t.Fatalf("level = %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatal("expected ts key")
	}
}

func TestTeeLoggerDuplicatesOutput(t *testing.T) {
	var primary, captured bytes.Buffer
	base, err := logging.NewWriterLogger(&primary, "console", "info")
	if err != nil {
		t.Fatal(err)
	}
	capture, err := logging.NewWriterHandler(&captured, "console", "info")
	if err != nil {
		t.Fatal(err)
	}

	logging.TeeLogger(base, capture).With(logging.String(logging.FieldComponent, "api")).Info("tee message")

	if !strings.Contains(primary.String(), "tee message") || !strings.Contains(captured.String(), "[api]") {
		t.Fatalf("expected message in both sinks:\nprimary=%q\ncaptured=%q", primary.String(), captured.String())
	}
}

func TestTeeLoggerSkipsEmptyTargets(t *testing.T) {
	logger := logging.TeeLogger(nil, nil, logging.NoopHandler{})
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("tee of only nil and no-op handlers should be disabled")
	}
}

func TestNopLogger(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should be disabled at every level")
	}
	logging.WithContext(context.Background(), nil).Info("ignored")
}
