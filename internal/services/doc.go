// Package services defines shared utilities consumed by the slicing pipeline
// and its front ends.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, range indexes, and stage names for
//     logging and history records.
//   - Sentinel error markers for every failure kind the pipeline reports, plus
//     the Wrap helper that attaches stage context while keeping errors.Is
//     classification intact.
//   - ToolError, which carries captured ffmpeg/ffprobe diagnostics.
//
// Use these helpers when wiring new front ends so error reporting and exit
// codes stay uniform across the CLI and the HTTP API.
package services
