// Package ffmpeg synthesizes and runs ffmpeg invocations for clip extraction.
//
// Two strategies exist. Fast mode seeks before the input and stream-copies,
// which is lossless but snaps to the preceding keyframe. Precise mode seeks
// before the input, bounds the output by duration, and re-encodes with either
// a probed hardware encoder or the software preset, so boundaries are frame
// accurate.
//
// All process execution goes through the Runner interface so callers can
// substitute a recording fake in tests.
package ffmpeg
