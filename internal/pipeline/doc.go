// Package pipeline drives a slicing batch from raw user input to clip files.
//
// A run walks a fixed sequence of states:
//
//	Idle -> Validating -> CheckingDuration -> ProcessingRange[1..N] -> Done
//
// with Cancelled and Failed reachable from any in-progress state.
// Validation covers every range and both input files before any external
// tool runs, so input mistakes never leave partial output behind. Ranges
// are processed strictly in order; cancellation is observed only between
// ranges and an extraction already in flight always runs to completion.
// The first execution error stops the batch and earlier clips are kept.
//
// Pipeline is shared by the slice command and the HTTP front end. Both hand
// it the same Request shape and differ only in overwrite policy.
package pipeline
