package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"fastslice/internal/history"
	"fastslice/internal/pipeline"
	"fastslice/internal/services"
)

func TestSliceRequestToTimeRanges(t *testing.T) {
	req := SliceRequest{Ranges: []RangeInput{
		{Title: "開場 白", Start: "00:00:01", End: "00:00:04", Precise: true},
		{Start: "00:01:00", End: "00:01:30", Subtitle: "1\n00:00:00,000 --> 00:00:01,000\nx"},
	}}
	rngs, err := req.ToTimeRanges()
	if err != nil {
		t.Fatalf("ToTimeRanges: %v", err)
	}
	if rngs[0].SafeTitle != "開場_白" || !rngs[0].Precise || rngs[0].Label != "開場 白,00:00:01 -> 00:00:04" {
		t.Fatalf("unexpected first range %+v", rngs[0])
	}
	if rngs[1].HasTitle() || rngs[1].Start != 60 || rngs[1].SubtitleOverride == "" {
		t.Fatalf("unexpected second range %+v", rngs[1])
	}
}

func TestSliceRequestTitleWithComma(t *testing.T) {
	req := SliceRequest{Ranges: []RangeInput{{Title: "精華, part 2", Start: "00:00:01", End: "00:00:04"}}}
	rngs, err := req.ToTimeRanges()
	if err != nil {
		t.Fatalf("ToTimeRanges: %v", err)
	}
	if rngs[0].SafeTitle != "精華_part_2" || rngs[0].Title != "精華, part 2" || rngs[0].End != 4 {
		t.Fatalf("unexpected range %+v", rngs[0])
	}
}

func TestSliceRequestToTimeRangesErrors(t *testing.T) {
	if _, err := (SliceRequest{}).ToTimeRanges(); !errors.Is(err, services.ErrFormat) {
		t.Fatalf("empty ranges: %v", err)
	}
	req := SliceRequest{Ranges: []RangeInput{{Start: "00:00:05", End: "00:00:01"}}}
	_, err := req.ToTimeRanges()
	if !errors.Is(err, services.ErrRange) {
		t.Fatalf("err = %v, want ErrRange", err)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("x: %w", services.ErrTitle), http.StatusBadRequest},
		{services.ErrDurationExceeded, http.StatusBadRequest},
		{services.ErrConflict, http.StatusBadRequest},
		{&services.ToolError{Tool: "ffmpeg", ExitCode: 1}, http.StatusInternalServerError},
		{services.ErrToolMissing, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestFromResult(t *testing.T) {
	result := pipeline.Result{
		RunID:   "abc",
		Encoder: "stream copy",
		Artifacts: []pipeline.Artifact{
			{Index: 1, VideoPath: "/out/A.mp4", SubtitlePath: "/out/A.srt"},
		},
	}
	ok := FromResult(result, "/out", nil)
	if ok.Status != StatusSuccess || len(ok.Files) != 2 || ok.Files[1] != "/out/A.srt" || ok.OutputDir != "/out" {
		t.Fatalf("unexpected success response %+v", ok)
	}
	failed := FromResult(result, "/out", errors.New("ffmpeg failed"))
	if failed.Status != StatusError || failed.Message != "ffmpeg failed" || len(failed.Files) != 2 {
		t.Fatalf("partial files should be reported on failure: %+v", failed)
	}
}

func TestFromRun(t *testing.T) {
	started := time.Date(2026, 3, 4, 5, 6, 7, 8_000_000, time.UTC)
	summary := FromRun(history.Run{ID: "r1", Status: history.StatusDone, StartedAt: started, ErrorMessage: "  "}, []history.Artifact{{RangeIndex: 1, Label: "A"}})
	if summary.StartedAt != "2026-03-04T05:06:07.008Z" || summary.FinishedAt != "" {
		t.Fatalf("unexpected timestamps %+v", summary)
	}
	if summary.ErrorMessage != "" || len(summary.Artifacts) != 1 || summary.Status != "done" {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
