// Package timecode parses and formats the timestamps used by range
// specifications, subtitle files, and ffmpeg arguments.
//
// Clock times are HH:MM:SS with unbounded hours. Subtitle times add a comma
// and exactly three millisecond digits. Formatting rounds to the nearest
// millisecond with halves rounded away from zero (math.Round on seconds*1000),
// so Subtitle(ParseSubtitle(t)) == t for every well-formed t.
package timecode
