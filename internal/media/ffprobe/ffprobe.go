package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"fastslice/internal/ffmpeg"
	"fastslice/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// DurationArgs returns the argument list for a bare duration query.
func DurationArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

// Duration returns the container duration of path in seconds. A failed
// invocation surfaces ffprobe's stderr; unparsable output is an
// ErrToolExecution.
func Duration(ctx context.Context, runner ffmpeg.Runner, binary, path string) (float64, error) {
	res, err := runner.Run(ctx, binary, DurationArgs(path))
	if err != nil {
		return 0, fmt.Errorf("probe duration of %s: %w", path, err)
	}
	text := strings.TrimSpace(res.Stdout)
	value, parseErr := strconv.ParseFloat(text, 64)
	if parseErr != nil || math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, services.Wrap(services.ErrToolExecution, "probe", "parse duration",
			fmt.Sprintf("unexpected ffprobe output %q for %s", text, path), nil)
	}
	return value, nil
}

// Inspect runs ffprobe against path and decodes the JSON stream listing.
func Inspect(ctx context.Context, runner ffmpeg.Runner, binary, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, fmt.Errorf("%w: ffprobe inspect: empty path", services.ErrFile)
	}
	res, err := runner.Run(ctx, binary, []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path})
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	raw := []byte(res.Stdout)
	result := Result{raw: raw}
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, services.Wrap(services.ErrToolExecution, "probe", "parse inspect output", "ffprobe returned invalid JSON", err)
	}
	return result, nil
}

// RawJSON returns a copy of the ffprobe payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// Summary is the numeric view of a Result. Fields ffprobe left empty or
// reported as non-numbers are zero.
type Summary struct {
	Format          string
	DurationSeconds float64
	SizeBytes       uint64
	BitRate         uint64
	VideoStreams    int
	AudioStreams    int
	SubtitleStreams int
}

// Summarize converts the string-typed format fields and counts streams by type.
func (r Result) Summarize() Summary {
	s := Summary{
		Format:          r.Format.FormatName,
		DurationSeconds: number(r.Format.Duration),
		SizeBytes:       uint64(number(r.Format.Size)),
		BitRate:         uint64(number(r.Format.BitRate)),
	}
	for _, stream := range r.Streams {
		switch strings.ToLower(stream.CodecType) {
		case "video":
			s.VideoStreams++
		case "audio":
			s.AudioStreams++
		case "subtitle":
			s.SubtitleStreams++
		}
	}
	return s
}

func number(value string) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed < 0 {
		return 0
	}
	return parsed
}
