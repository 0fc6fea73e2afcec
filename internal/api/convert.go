package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fastslice/internal/deps"
	"fastslice/internal/history"
	"fastslice/internal/pipeline"
	"fastslice/internal/ranges"
	"fastslice/internal/services"
)

// ToTimeRanges parses the submitted ranges. Errors name the 1-based entry.
func (r SliceRequest) ToTimeRanges() ([]ranges.TimeRange, error) {
	if len(r.Ranges) == 0 {
		return nil, fmt.Errorf("%w: at least one range is required", services.ErrFormat)
	}
	out := make([]ranges.TimeRange, 0, len(r.Ranges))
	for i, in := range r.Ranges {
		rng, err := ranges.FromParts(in.Title, in.Start, in.End)
		if err != nil {
			return nil, fmt.Errorf("range %d: %w", i+1, err)
		}
		rng.Precise = in.Precise
		rng.SubtitleOverride = in.Subtitle
		out = append(out, rng)
	}
	return out, nil
}

// FromResult converts a finished batch.
func FromResult(result pipeline.Result, outputDir string, err error) SliceResponse {
	files := result.Files()
	resp := SliceResponse{
		Status:    StatusSuccess,
		Files:     files,
		OutputDir: outputDir,
		RunID:     result.RunID,
		Encoder:   result.Encoder,
	}
	if err != nil {
		resp.Status = StatusError
		resp.Message = err.Error()
		return resp
	}
	resp.Message = fmt.Sprintf("finished %d clip(s)", len(result.Artifacts))
	return resp
}

// HTTPStatus maps a pipeline error to a response code: input problems are
// 400, everything else 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case services.IsValidation(err),
		errors.Is(err, services.ErrDurationExceeded),
		errors.Is(err, services.ErrConflict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// FromRun converts a history row and its artifacts.
func FromRun(run history.Run, artifacts []history.Artifact) RunSummary {
	summary := RunSummary{
		ID:           run.ID,
		Status:       string(run.Status),
		Source:       run.Source,
		StartedAt:    FormatTime(run.StartedAt),
		FinishedAt:   FormatTime(run.FinishedAt),
		VideoPath:    run.VideoPath,
		SubtitlePath: run.SubtitlePath,
		OutputDir:    run.OutputDir,
		Encoder:      run.Encoder,
		RangeCount:   run.RangeCount,
		ErrorMessage: strings.TrimSpace(run.ErrorMessage),
	}
	for _, a := range artifacts {
		summary.Artifacts = append(summary.Artifacts, ArtifactInfo{
			Index:        a.RangeIndex,
			Label:        a.Label,
			Precise:      a.Precise,
			VideoPath:    a.VideoPath,
			SubtitlePath: a.SubtitlePath,
		})
	}
	return summary
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

// FormatTime renders t for API payloads; the zero time renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
