package pipeline

import (
	"context"

	"fastslice/internal/history"
	"fastslice/internal/ranges"
)

// State names a step of a run.
type State string

const (
	StateIdle             State = "idle"
	StateValidating       State = "validating"
	StateCheckingDuration State = "checking_duration"
	StateProcessingRange  State = "processing_range"
	StateDone             State = "done"
	StateCancelled        State = "cancelled"
	StateFailed           State = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}

// Event is published on every state entry. Index and Total are set while
// processing ranges; Index is 1-based.
type Event struct {
	RunID       string
	State       State
	Index       int
	Total       int
	Description string
}

// ProgressFunc receives events synchronously on the run's goroutine.
type ProgressFunc func(Event)

// Request describes one batch.
type Request struct {
	VideoPath    string
	SubtitlePath string
	// Specs are raw "[title,]HH:MM:SS -> HH:MM:SS" texts. Ignored when
	// Ranges is non-empty.
	Specs []string
	// Ranges are pre-parsed ranges carrying per-range precise flags and
	// subtitle overrides.
	Ranges []ranges.TimeRange
	// Precise applies to ranges parsed from Specs.
	Precise       bool
	OutputDir     string
	CheckDuration bool
	AppendTime    bool
	// Overwrite removes stale destinations before extraction. Without it an
	// existing destination is an ErrConflict.
	Overwrite  bool
	UseHWAccel bool
	// Source tags the front end for history ("cli", "api").
	Source string
}

// Artifact is the clip pair produced for one range.
type Artifact struct {
	Index        int
	Range        ranges.TimeRange
	VideoPath    string
	SubtitlePath string
}

// Result summarizes a run. On failure it still lists the artifacts produced
// before the error.
type Result struct {
	RunID     string
	State     State
	Encoder   string
	Duration  float64
	Artifacts []Artifact
}

// Files returns every produced path, video then subtitle per range.
func (r Result) Files() []string {
	out := make([]string, 0, len(r.Artifacts)*2)
	for _, a := range r.Artifacts {
		out = append(out, a.VideoPath, a.SubtitlePath)
	}
	return out
}

// Recorder persists run history. *history.Store satisfies it.
type Recorder interface {
	StartRun(ctx context.Context, run history.Run) error
	SetEncoder(ctx context.Context, runID, encoder string) error
	AddArtifact(ctx context.Context, runID string, artifact history.Artifact) error
	FinishRun(ctx context.Context, runID string, status history.Status, message string) error
}
