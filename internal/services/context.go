package services

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	rangeIndexKey contextKey = "range_index"
	stageKey      contextKey = "stage"
)

// WithRunID annotates context with the batch run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRangeIndex annotates context with the 1-based range index being processed.
func WithRangeIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, rangeIndexKey, index)
}

// RangeIndexFromContext extracts the range index if present.
func RangeIndexFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(rangeIndexKey).(int)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
