// Package preflight provides readiness checks for the media tools and the
// directories a slicing run writes into.
//
// These checks run in two contexts:
//   - The serve command calls RunAll at startup and logs each failure so a
//     missing ffmpeg is reported before the first request arrives.
//   - The CLI "fastslice status" command renders the same results as a table.
package preflight
