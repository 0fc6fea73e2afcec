// Package ffprobe wraps the ffprobe queries the slicer needs: the
// container duration used for range validation, and a typed stream listing
// for the inspect command.
//
// Both entry points run through an ffmpeg.Runner so tests can script the
// tool's output.
package ffprobe
