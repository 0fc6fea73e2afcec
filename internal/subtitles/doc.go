// Package subtitles reads, slices, and writes SubRip (.srt) subtitle files.
//
// Parse turns a document into an ordered list of cues, tolerating a leading
// byte-order mark, CRLF line endings, and blocks with or without an index
// line. Slice intersects cues with a clip interval, clips their boundaries,
// and shifts them so the clip starts at zero. Format serializes cues back to
// the same dialect, always renumbering from 1.
//
// The parsed cue list is shared read-only across every range of a batch;
// Slice never mutates its input.
package subtitles
