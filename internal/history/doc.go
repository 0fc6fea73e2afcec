// Package history records slicing runs in a SQLite database so the CLI and
// the HTTP front end can list what was produced, when, and why a run failed.
//
// Each run row is keyed by the pipeline's run ID; artifacts hang off the run
// with their 1-based range index. The schema version lives in SQLite's
// user_version header. A mismatch is reported as ErrSchemaMismatch and the
// database must be removed by hand.
package history
