// Package daemon runs the long-lived "fastslice serve" process.
//
// It wires configuration, the run history store, and a shared slicing
// pipeline behind the HTTP API, with flock-based locking to prevent two
// servers from sharing a state directory. Batches are serialized: a second
// POST /api/slice while one is running is refused with 409 rather than
// queued.
//
// Each request gets its own pipeline logger that tees into a buffer, so the
// response can carry the run's log lines back to the upload page.
package daemon
