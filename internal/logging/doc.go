// Package logging assembles structured slog loggers for fastslice.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context-aware helpers so pipeline code tags log lines with the run ID,
// range index, and stage automatically. NewNop serves tests and wiring code
// that cannot fail.
package logging
