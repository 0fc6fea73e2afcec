// Package api defines wire-format types and converters for the HTTP front
// end. It translates pipeline results and history rows into
// transport-friendly DTOs without coupling consumers to internal types.
//
// # Key Types
//
// SliceRequest/SliceResponse: the body accepted by POST /api/slice and the
// reply, mirroring the upload page's {status, message, files, output_dir}
// shape with the run ID, encoder, and captured log lines added.
//
// RunSummary: one history row with its artifacts.
//
// ServerStatus: dependency availability, encoder, and storage paths.
//
// # Design Notes
//
// Request and response DTOs use snake_case JSON tags to match the upload
// page. Timestamps use RFC3339 with milliseconds.
package api
