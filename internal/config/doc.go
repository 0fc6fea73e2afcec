// Package config loads, normalizes, and validates fastslice configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as FVS_FFMPEG and
// FASTSLICE_API_TOKEN. The Config value is loaded once at process start and
// passed down explicitly; nothing in the pipeline reads ambient settings.
package config
