// Package main hosts the fastslice CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration once, locates the
// ffmpeg toolchain, and hands batches to the slicing pipeline. It also
// exposes hardware encoder detection, dependency status, run history, config
// scaffolding, and the HTTP front end.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
